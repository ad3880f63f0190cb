package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"jobglob-engine/internal/httpapi"
	"jobglob-engine/internal/poll"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the board poller",
		Long: heredoc.Doc(`
			Serve the local API on 127.0.0.1:<app.port> and poll every active
			board on the configured interval inside business hours. Only one
			engine may serve a data directory at a time.
		`),
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, o)
		},
	}
}

func serve(ctx context.Context, o *rootOptions) error {
	lock := flock.New(filepath.Join(o.dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine is already serving %s", o.dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	e, err := newEngine(o)
	if err != nil {
		return err
	}
	defer e.Close()

	// Keep config reloadable
	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(e.cfg)

	poll.StartPoller(ctx, e.poller, &cfgVal)

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          e.db,
		Hub:         e.hub,
		Metrics:     e.metrics,
		CfgVal:      &cfgVal,
		UserCfgPath: o.configPath,
		LoadCfg:     o.loadConfig,
		Table:       e.table,
		Poller:      e.poller,
		Discover:    e.discover,
		Prober:      e.classifier,
		Crawl:       e.crawl,
		Background:  ctx,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", e.cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           httpapi.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	token, err := randomToken(16)
	if err != nil {
		return err
	}
	tokenPath := filepath.Join(o.dataDir, "shutdown.token")
	if err := os.WriteFile(tokenPath, []byte(token), 0o600); err != nil {
		return err
	}
	defer os.Remove(tokenPath)
	mux.Handle("/shutdown", shutdownHandler(token, srv))

	log.Info().
		Str("addr", "http://"+addr).
		Str("data_dir", o.dataDir).
		Str("config", o.configPath).
		Msg("engine listening")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
