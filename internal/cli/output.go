package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Format is an output format for command results.
type Format string

const (
	// FormatTable renders a table for humans.
	FormatTable Format = "table"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
)

// ParseFormat converts a flag value to a Format. An empty value auto-detects.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON:
		return f, nil
	case "":
		return DetectFormat(), nil
	default:
		return "", fmt.Errorf("invalid format %q: must be one of: table, json", s)
	}
}

// DetectFormat picks table output for terminals and JSON for pipes and redirects.
func DetectFormat() Format {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// TableData is a result already rendered to display strings.
type TableData struct {
	Headers []string
	Rows    [][]string
	// RightAligned marks numeric columns by index.
	RightAligned map[int]bool
}

func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeTable(w io.Writer, data TableData) error {
	config := tablewriter.Config{}
	if len(data.RightAligned) > 0 {
		align := make([]tw.Align, len(data.Headers))
		for i := range align {
			align[i] = tw.AlignLeft
			if data.RightAligned[i] {
				align[i] = tw.AlignRight
			}
		}
		config.Row.Alignment = tw.CellAlignment{PerColumn: align}
	}

	table := tablewriter.NewTable(w, tablewriter.WithConfig(config))

	headers := make([]any, len(data.Headers))
	for i, h := range data.Headers {
		headers[i] = h
	}
	table.Header(headers...)

	for _, row := range data.Rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}

// render writes raw as JSON or table as a table, depending on format.
func render(w io.Writer, format Format, raw any, table func() TableData) error {
	if format == FormatJSON {
		return writeJSON(w, raw)
	}
	return writeTable(w, table())
}
