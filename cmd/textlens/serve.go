package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/textlens/internal/certs"
	"github.com/Veraticus/textlens/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve analysis, optimization, cost tracking and settings over HTTP.

Routes live under /api: analyze, optimize, keywords/status, costs and settings.
With --tls a self-signed localhost certificate is created on first use.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := server.Config{
				Addr:    appConfig.Server.Addr,
				Version: version,
				// Leave room for the LLM client timeout.
				RequestTimeout: appConfig.LLM.Timeout + appConfig.Watson.Timeout,
			}
			if appConfig.Server.TLS {
				manager := certs.NewFileManager(appConfig.Server.CertDir)
				cert, err := manager.LoadOrCreate()
				if err != nil {
					return fmt.Errorf("failed to load TLS certificate: %w", err)
				}
				certFile, _ := manager.Paths()
				a.logger.Info("Using self-signed certificate", "cert", certFile)
				cfg.TLSCertificate = &cert
			}

			srv, err := server.New(server.Deps{
				Analyzer:  a.analysis,
				Optimizer: a.optimizer,
				Keys:      a.resolver,
				Costs:     a.tracker,
				Store:     a.store,
				Vault:     a.vault,
				Logger:    a.logger,
			}, cfg)
			if err != nil {
				return err
			}

			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}
