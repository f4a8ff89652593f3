package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/renami-app/renami/internal/api"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from [api] in config.toml)")
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Serve the rename, verify, settings and history operations over HTTP so a
desktop shell or script can drive renami. Binds to loopback by default.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.API.Addr()
	}

	srv := api.NewServer(a.renamer, a.settings, a.engine)
	srv.SetVersion(Version)
	srv.SetAllowedOrigins(a.cfg.API.AllowedOrigins)
	srv.SetAllowedHosts(a.cfg.API.Host)
	if h, _, err := net.SplitHostPort(addr); err == nil {
		srv.SetAllowedHosts(h)
	}
	if a.history != nil {
		srv.SetHistory(a.history)
	}
	if a.cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] listening on http://%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[api] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
