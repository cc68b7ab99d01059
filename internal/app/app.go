package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"dapp/internal/telemetry"
)

// Version is set at build time with -ldflags "-X dapp/internal/app.Version=...".
var Version = "dev"

const shutdownTimeout = 5 * time.Second

// Serve starts the gate and serves the site on ln until ctx ends, then
// shuts both down.
func (w *Wire) Serve(ctx context.Context, ln net.Listener) error {
	logger := w.Logger.With("component", "serve")

	shutdownTracing, err := telemetry.Setup(ctx, "dapp", Version, w.Config.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", "err", err)
		}
	}()

	srv := &http.Server{
		Handler:           w.Site.Router(w.Gate),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := w.Gate.Start(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		logger.Info("listening", "addr", ln.Addr().String(), "remote", w.Config.RemoteURL)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		st, err := w.Gate.Wait(gctx)
		if err != nil {
			return nil
		}
		logger.Info("stages resolved",
			"view", w.Gate.View().String(),
			"account", st.Resolved.Wallet.Account.String(),
		)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		w.Gate.Close()
		logger.Info("stopped")
		return err
	})
	return g.Wait()
}
