// Package format serializes command output as JSON, YAML, or a styled table.
package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
)

// Table is the tabular projection of a value: commands decide which columns a
// listing gets, the formats decide how to draw them.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Print writes v in the requested format. The table projection is lazy so
// JSON and YAML output skip building it.
func Print(w io.Writer, format string, v any, tbl func() Table) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding output as JSON: %w", err)
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding output as YAML: %w", err)
		}
		return nil
	case "table":
		if tbl == nil {
			return fmt.Errorf("no table representation for this output")
		}
		t := tbl()
		fmt.Fprintln(w, renderTable(t))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json, yaml, or table)", format)
	}
}

func renderTable(t Table) string {
	tw := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(t.Headers...).
		Rows(t.Rows...)
	return tw.Render()
}
