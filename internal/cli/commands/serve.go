package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/storelens/internal/devtools"
)

// NewServeCommand creates the serve command.
func NewServeCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Database devtools domain",
		Long: `Start the devtools endpoint.

Clients discover the inspector on /json and connect to the websocket
it lists. Every store under the configured roots is announced to a client
when it enables the Database domain.`,
		Example: `  # Serve stores under ./data
  storelens serve --root ./data

  # Listen on all interfaces and announce new stores as they appear
  storelens serve --listen 0.0.0.0:9229 --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, version)
		},
	}

	cmd.Flags().String("listen", "", "Address to listen on (default: 127.0.0.1:9229)")
	cmd.Flags().Bool("watch", false, "Announce stores created while serving")

	return cmd
}

func runServe(cmd *cobra.Command, version string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	server := devtools.NewServer(devtools.Config{
		Inspector: cmdCtx.Inspector,
		Catalog:   cmdCtx.Catalog,
		Listen:    cmdCtx.Cfg.Listen,
		Watch:     cmdCtx.Cfg.Watch,
		Version:   version,
		Logger:    cmdCtx.Logger,
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	count := len(cmdCtx.Catalog.Files())
	if count == 0 && !cmdCtx.Cfg.Watch {
		cmdCtx.Renderer.Warning(noDatabasesMessage(cmdCtx.Catalog.Roots()))
	}
	cmdCtx.Renderer.Printf("Serving %d database(s) on http://%s/json\n", count, cmdCtx.Cfg.Listen)
	cmdCtx.Renderer.Println(cmdCtx.Renderer.Muted("Press Ctrl+C to stop"))

	return server.Serve(ctx)
}
