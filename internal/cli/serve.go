package cli

import (
	"github.com/spf13/cobra"

	"github.com/docbt/docbt/internal/config"
	"github.com/docbt/docbt/internal/logging"
	"github.com/docbt/docbt/internal/server"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP chat server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			p := cfg.DefaultLLM()
			logging.Logger().Info("starting server",
				"listen", cfg.Server.Listen,
				"provider", p.Provider,
				"model", p.Model,
			)
			return server.NewServer(cfg).Start()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides server.listen)")

	return cmd
}
