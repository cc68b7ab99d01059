package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dapp/internal/domain"
	"dapp/internal/remote"
	"dapp/internal/store/sqlite"
)

type options struct {
	db        string
	addr      string
	networkID int64
	whitelist string
	symbol    string
	rates     map[string]string
	insecure  bool
	debug     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "dacservice",
		Short:        "Serve the DAC service API over a SQLite database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.db, "db", "dacservice.db", "SQLite database path")
	f.StringVar(&o.addr, "addr", ":3030", "listen address")
	f.Int64Var(&o.networkID, "network-id", 1, "network id reported to clients")
	f.StringVar(&o.whitelist, "whitelist", "", "JSON whitelist file; empty disables whitelisting")
	f.StringVar(&o.symbol, "rate-symbol", "ETH", "currency symbol the --rate prices are for")
	f.StringToStringVar(&o.rates, "rate", nil, "fiat price of one symbol unit, e.g. --rate EUR=1850.5; repeatable")
	f.BoolVar(&o.insecure, "insecure", false, "accept unsigned writes")
	f.BoolVar(&o.debug, "debug", false, "log every request")
	return cmd
}

func run(ctx context.Context, o options) error {
	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	wl, err := loadWhitelist(o.whitelist)
	if err != nil {
		return err
	}
	db, err := sqlite.Open(o.db)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := seedRates(ctx, db, o.symbol, o.rates); err != nil {
		return err
	}

	opts := []remote.ServerOption{
		remote.WithWhitelist(wl),
		remote.WithNetworkID(o.networkID),
		remote.WithServerLogger(logger),
	}
	if o.insecure {
		logger.Warn("accepting unsigned writes")
		opts = append(opts, remote.WithoutSignatures())
	}
	srv := &http.Server{
		Addr:              o.addr,
		Handler:           remote.NewServer(db, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dacservice listening", "addr", o.addr, "db", o.db, "whitelist", wl.Enforced)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// loadWhitelist reads the whitelist file. A present file enforces the
// whitelist unless it says otherwise.
func loadWhitelist(path string) (domain.Whitelist, error) {
	if path == "" {
		return domain.Whitelist{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Whitelist{}, fmt.Errorf("read whitelist: %w", err)
	}
	wl := domain.Whitelist{Enforced: true}
	if err := json.Unmarshal(data, &wl); err != nil {
		return domain.Whitelist{}, fmt.Errorf("parse whitelist %s: %w", path, err)
	}
	return wl, nil
}

// seedRates records the --rate flags so clients can show fiat equivalents.
func seedRates(ctx context.Context, db *sqlite.Store, symbol string, rates map[string]string) error {
	for cur, v := range rates {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse rate %s=%s: %w", cur, v, err)
		}
		if err := db.SetConversionRate(ctx, symbol, cur, rate); err != nil {
			return err
		}
	}
	return nil
}
