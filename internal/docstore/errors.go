package docstore

import (
	"errors"

	"github.com/dmitrijs2005/famtree/internal/common"
)

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
