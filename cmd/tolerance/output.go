package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/nhle/tolerance-rules/internal/theme"
)

// tabular is implemented by results that can render as a table.
type tabular interface {
	headers() []string
	rows() [][]string
}

// outputResult writes result to w in the requested format.
func outputResult(w io.Writer, format string, result any) error {
	switch format {
	case "json":
		return outputJSON(w, result)
	case "yaml":
		return outputYAML(w, result)
	case "table", "":
		if t, ok := result.(tabular); ok {
			return outputTable(w, t)
		}
		return outputJSON(w, result)
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func outputJSON(w io.Writer, result any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputYAML goes through JSON first so field names match the json tags.
func outputYAML(w io.Writer, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return err
	}
	return encoder.Close()
}

func outputTable(w io.Writer, t tabular) error {
	rows := t.rows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, theme.HelpStyle.Render("No results."))
		return err
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(t.headers()...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeaderStyle
			}
			return theme.TableCellStyle
		})

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
