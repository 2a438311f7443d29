package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/storelens/internal/cli/output"
)

// NewDatabasesCommand creates the databases command.
func NewDatabasesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "databases",
		Aliases: []string{"dbs"},
		Short:   "List the stores found under the configured roots",
		Example: `  storelens databases --root ./data
  storelens databases --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			dbs := cmdCtx.Inspector.Databases()
			r := cmdCtx.Renderer
			if len(dbs) == 0 {
				r.Warning(noDatabasesMessage(cmdCtx.Catalog.Roots()))
			}
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(dbs)
			default:
				rows := make([][]any, 0, len(dbs))
				for _, d := range dbs {
					rows = append(rows, []any{d.ID, d.Name, d.Domain, d.Version})
				}
				return r.Rows([]string{"id", "name", "domain", "version"}, rows)
			}
		},
	}
}

func noDatabasesMessage(roots []string) string {
	return "no databases found under " + strings.Join(roots, ", ")
}
