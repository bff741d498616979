package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jaikumar96/fincategorizer/internal/api"
	"github.com/Jaikumar96/fincategorizer/internal/certs"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve batch upload, review, correction, analytics and category endpoints.
Requests identify their user with the X-User-Id header.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	apiCfg := api.Config{Addr: a.cfg.Server.Addr}
	if a.cfg.Server.TLS {
		cert, err := serverCertificate(a.cfg.Server.Addr, a.cfg.Server.CertDir)
		if err != nil {
			return err
		}
		apiCfg.TLSCertificate = &cert
	}

	srv, err := api.NewServer(api.Deps{
		Pipeline:     a.pipeline(nil),
		Review:       a.review,
		Analytics:    a.analytics,
		Transactions: a.store,
		Categories:   a.store,
		Metrics:      a.metrics,
		Logger:       a.logger,
		Health:       a.health,
	}, apiCfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server stopped")
	return nil
}

// serverCertificate loads or creates the self-signed certificate, adding
// the listen host when it names a specific interface.
func serverCertificate(addr, certDir string) (tls.Certificate, error) {
	var hosts []string
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" && host != "0.0.0.0" && host != "::" {
		hosts = append(hosts, host)
	}

	m := certs.NewFileManager(certDir, hosts...)
	cert, err := m.GetOrCreateCertificate()
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to prepare TLS certificate: %w", err)
	}
	certFile, _ := m.Paths()
	slog.Info("Using self-signed certificate", "path", certFile)
	return cert, nil
}
