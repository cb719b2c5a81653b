package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// printer renders command results as JSON or an aligned table.
type printer struct {
	w      io.Writer
	format string
}

func (p printer) validate() error {
	switch p.format {
	case outputTable, outputJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want %s or %s)", p.format, outputTable, outputJSON)
}

// render writes v as JSON, or calls table with a tab-separated writer.
func (p printer) render(v any, table func(w io.Writer)) error {
	if p.format == outputJSON {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// message prints a confirmation line. JSON output prints v instead.
func (p printer) message(v any, format string, args ...any) error {
	if p.format == outputJSON && v != nil {
		return p.render(v, nil)
	}
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

func row(w io.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
