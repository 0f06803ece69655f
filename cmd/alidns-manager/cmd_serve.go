package main

import (
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/server"
)

func newCmdServe() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP record service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := ctrl.Log.WithName("setup")
			log.Info("starting alidns-manager", "version", version)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			client, err := newProvider(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			srv := server.New(ctrl.Log.WithName("server"), client, server.Options{
				Domain:         cfg.Domain,
				AllowedOrigins: cfg.AllowedOrigins,
			})
			return srv.Run(ctrl.SetupSignalHandler(), cfg.Listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides the config file)")
	return cmd
}
