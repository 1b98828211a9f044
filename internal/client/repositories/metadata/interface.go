// Package metadata is the CLI's local key/value cache. It keeps the signed-in
// session between invocations.
package metadata

import (
	"context"
)

// Repository stores string values by key. Get reports a missing key as
// common.ErrorNotFound.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, keys ...string) error
}
