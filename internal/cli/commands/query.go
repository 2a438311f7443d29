package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/storelens/internal/inspector"
)

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <database> <sql>",
		Short: "Run a query against a store",
		Long: `Run a query the way a devtools client would.

The only supported statement is a full table read:

  SELECT rowid, * FROM "<table>"

Rows are limited and ordered by the limit and order settings.`,
		Example: `  storelens query ./data/app.objdb 'SELECT rowid, * FROM "class_Person"'
  storelens query ./data/app.objdb 'SELECT rowid, * FROM "class_Person"' --order desc --limit 10 -o csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			resp := cmdCtx.Inspector.ExecuteSQL(cmd.Context(), inspector.ExecuteSQLRequest{
				DatabaseID: databaseID(args[0]),
				Query:      args[1],
			})
			if resp.SQLError != nil {
				return errors.New(resp.SQLError.Message)
			}
			return cmdCtx.Renderer.Rows(resp.ColumnNames, chunkRows(resp.Values, len(resp.ColumnNames)))
		},
	}
}

// chunkRows splits a flat value list into rows of width cells.
func chunkRows(values []any, width int) [][]any {
	if width == 0 {
		return nil
	}
	rows := make([][]any, 0, len(values)/width)
	for start := 0; start+width <= len(values); start += width {
		rows = append(rows, values[start:start+width])
	}
	return rows
}
