package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlanghorne/ghactions/internal/bridge"
	"github.com/mlanghorne/ghactions/internal/config"
	"github.com/mlanghorne/ghactions/internal/logging"
)

func serveCmd(projectDir *string) *cobra.Command {
	var host string
	var port int

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the local webhook bridge",
		Long: "Listen for webhook deliveries and store each accepted payload " +
			"under .ghactions/deliveries/. Signatures are verified when a " +
			"shared secret is configured.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := resolveProjectDir(projectDir)
			if err != nil {
				return err
			}
			if err := config.InitDotDir(root); err != nil {
				return err
			}
			cfg, err := config.NewConfig(root)
			if err != nil {
				return err
			}
			logger, err := logging.New(root)
			if err != nil {
				return err
			}
			defer logger.Close()

			settings := bridge.SettingsFromConfig(cfg)
			if host != "" {
				settings.Host = host
			}
			if port > 0 {
				settings.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := bridge.NewServer(settings, bridge.WithLogger(logger))
			if err := server.Start(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Listening on %s\n", server.BaseURL())
			fmt.Fprintf(out, "Deliveries are stored in %s\n", settings.DeliveriesDir)
			if settings.Secret == "" {
				fmt.Fprintln(out, "Warning: no shared secret configured; accepting unsigned deliveries")
			}

			<-ctx.Done()
			fmt.Fprintln(out, "Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	c.Flags().StringVar(&host, "host", "", "Bind host (overrides config)")
	c.Flags().IntVar(&port, "port", 0, "Bind port (overrides config)")
	return c
}
