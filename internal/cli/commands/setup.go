package commands

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/storelens/internal/catalog"
	"github.com/leapstack-labs/storelens/internal/cli/config"
	"github.com/leapstack-labs/storelens/internal/cli/output"
	intconfig "github.com/leapstack-labs/storelens/internal/config"
	"github.com/leapstack-labs/storelens/internal/flatten"
	"github.com/leapstack-labs/storelens/internal/inspector"
	"github.com/leapstack-labs/storelens/internal/session"
	"github.com/leapstack-labs/storelens/pkg/objectstore/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *intconfig.Config
	Logger    *slog.Logger
	Renderer  *output.Renderer
	Catalog   *catalog.Catalog
	Inspector *inspector.Inspector
}

// NewCommandContext wires the catalog, session opener and inspector from the
// loaded configuration.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	cat, err := catalog.New(cfg.Roots, cfg.NamePattern, cfg.Domain)
	if err != nil {
		return nil, err
	}
	keys, err := cfg.KeyRing()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opener := session.NewOpener(sqlite.New(logger),
		session.WithKeys(keys),
		session.WithLogger(logger),
	)
	insp := inspector.New(cat, opener,
		inspector.WithLimit(cfg.Limit),
		inspector.WithAscending(cfg.Ascending()),
		inspector.WithMetaTables(cfg.WithMetaTables),
		inspector.WithStrictQueries(cfg.StrictQueries),
		inspector.WithFlattener(flatten.New(
			flatten.WithDateLayout(cfg.DateFormat),
			flatten.WithLocation(loc),
		)),
		inspector.WithLogger(logger),
	)

	return &CommandContext{
		Cfg:       cfg,
		Logger:    logger,
		Renderer:  newRenderer(cmd, cfg),
		Catalog:   cat,
		Inspector: insp,
	}, nil
}

func newRenderer(cmd *cobra.Command, cfg *intconfig.Config) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
}

// getConfig returns the current configuration, or the defaults when no
// configuration was loaded.
func getConfig() *intconfig.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg := intconfig.Default()
	for i, root := range cfg.Roots {
		if abs, err := filepath.Abs(root); err == nil {
			cfg.Roots[i] = abs
		}
	}
	return cfg
}

// databaseID resolves a database argument to the absolute path used as its id.
func databaseID(arg string) string {
	if abs, err := filepath.Abs(arg); err == nil {
		return abs
	}
	return arg
}
