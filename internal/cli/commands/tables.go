package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/storelens/internal/cli/output"
	"github.com/leapstack-labs/storelens/internal/inspector"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <database>",
		Short: "List the tables of a store",
		Long: `List the tables of a store.

Only object tables are listed unless with_meta_tables is enabled.`,
		Example: `  storelens tables ./data/app.objdb
  storelens tables ./data/app.objdb --with-meta-tables`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			resp, err := cmdCtx.Inspector.GetDatabaseTableNames(cmd.Context(), inspector.GetDatabaseTableNamesRequest{
				DatabaseID: databaseID(args[0]),
			})
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(resp)
			default:
				rows := make([][]any, 0, len(resp.TableNames))
				for _, name := range resp.TableNames {
					rows = append(rows, []any{name})
				}
				return r.Rows([]string{"table"}, rows)
			}
		},
	}
}
