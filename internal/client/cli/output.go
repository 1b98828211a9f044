package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func table(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
}

func row(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func mark(b bool) string {
	if b {
		return "*"
	}
	return ""
}
