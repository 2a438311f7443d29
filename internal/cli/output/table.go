package output

import (
	"encoding/hex"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Rows renders a result set in the renderer's effective mode.
func (r *Renderer) Rows(cols []string, rows [][]any) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.rowsJSON(cols, rows)
	case ModeCSV:
		r.newTable(cols, rows).RenderCSV()
		return nil
	case ModeMarkdown:
		if len(rows) == 0 {
			r.Println("(0 rows)")
			return nil
		}
		r.newTable(cols, rows).RenderMarkdown()
		return nil
	default:
		if len(rows) == 0 {
			r.Println("(0 rows)")
			return nil
		}
		t := r.newTable(cols, rows)
		t.SetStyle(table.StyleLight)
		t.Render()
		r.Printf("(%d rows)\n", len(rows))
		return nil
	}
}

func (r *Renderer) newTable(cols []string, rows [][]any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range rows {
		out := make(table.Row, len(row))
		for i, v := range row {
			out[i] = FormatValue(v)
		}
		t.AppendRow(out)
	}
	return t
}

func (r *Renderer) rowsJSON(cols []string, rows [][]any) error {
	results := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(cols))
		for i, col := range cols {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		results = append(results, obj)
	}
	return r.JSON(results)
}

// FormatValue renders one cell for text output.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "0x" + hex.EncodeToString(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
