package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixbrock/crayon/internal/app"
)

func ServeCmd(flags *rootFlags) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web app",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if port != "" {
				config.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, release, err := recordStore(ctx, config)
			if err != nil {
				return err
			}
			defer release()

			logger := app.NewInteractionLogger(store)

			return app.New(assistant(config), logger, config).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on, overrides GOPORT")
	return cmd
}
