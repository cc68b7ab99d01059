package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dapp/internal/analytics"
	"dapp/internal/domain"
	"dapp/internal/gate"
	"dapp/internal/remote"
	entitysvc "dapp/internal/services/entity"
	ratessvc "dapp/internal/services/rates"
	sessionsvc "dapp/internal/services/session"
	walletsvc "dapp/internal/services/wallet"
	whitelistsvc "dapp/internal/services/whitelist"
	"dapp/internal/store"
	"dapp/internal/toast"
	"dapp/internal/upload"
	"dapp/internal/web"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config Config
	Logger *slog.Logger

	Remote    *remote.HTTP
	Keys      domain.KeyStore
	Prefs     domain.PreferenceStore
	Whitelist *whitelistsvc.Service
	Wallet    *walletsvc.Service
	Sessions  *sessionsvc.Service
	Entities  *entitysvc.Service
	Rates     *ratessvc.Service
	Toasts    *toast.Hub
	Tracker   *analytics.Tracker
	Images    domain.ImageStore

	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry
	Site     *web.Site
	Gate     *gate.Gate
}

// NewWire constructs the dependency graph from cfg. The gate is built but
// not started.
func NewWire(cfg Config, logger *slog.Logger) (*Wire, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("create home dir: %w", err)
	}

	// Metrics are registered only when enabled; a nil Registerer keeps the
	// collectors private.
	var (
		registry   *prometheus.Registry
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registerer, gatherer = registry, registry
	}

	// File-based stores
	keys := store.NewKeyFileStore(cfg.Home)
	prefs := store.NewPreferenceFileStore(cfg.Home, logger)

	rc := remote.NewHTTP(cfg.RemoteURL)

	// Stage services. Unlocking the wallet makes the remote client sign
	// writes with the wallet key.
	whitelist := whitelistsvc.New(rc, logger)
	wallet := walletsvc.New(keys, rc,
		walletsvc.WithPassphrase(cfg.Passphrase),
		walletsvc.WithNetworkID(cfg.NetworkID),
		walletsvc.WithUnlockHook(func(k domain.WalletKey) { rc.UseSigner(remote.NewSigner(k)) }),
		walletsvc.WithLogger(logger),
	)
	sessions := sessionsvc.New(rc, prefs, logger)

	tracker := analytics.New(registerer, cfg.AnalyticsEnabled, logger)
	entities := entitysvc.New(rc, tracker, logger)
	hub := toast.NewHub(logger)
	fiat := ratessvc.New(rc, ratessvc.WithLogger(logger))

	images, uploadDir, err := newImageStore(cfg)
	if err != nil {
		return nil, err
	}

	site, err := web.NewSite(web.Deps{
		Remote:     rc,
		Entities:   entities,
		Profiles:   sessions,
		Toasts:     hub,
		Tracker:    tracker,
		Images:     images,
		Rates:      fiat,
		UploadDir:  uploadDir,
		Gatherer:   gatherer,
		BetaBanner: cfg.BetaBanner,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	g := gate.New(gate.Initializers{
		Whitelist: whitelist.LoadWhitelist,
		Wallet:    wallet.Connect,
		Session:   sessions.LoadSession,
	}, site.Table(),
		gate.WithPolicy(gate.Policy{StrictStages: cfg.StrictStages}),
		gate.WithLogger(logger.With("component", "gate")),
		gate.WithRegisterer(registerer),
		gate.WithViews(site),
	)

	return &Wire{
		Config:    cfg,
		Logger:    logger,
		Remote:    rc,
		Keys:      keys,
		Prefs:     prefs,
		Whitelist: whitelist,
		Wallet:    wallet,
		Sessions:  sessions,
		Entities:  entities,
		Rates:     fiat,
		Toasts:    hub,
		Tracker:   tracker,
		Images:    images,
		Registry:  registry,
		Site:      site,
		Gate:      g,
	}, nil
}

// s3ConfigTimeout bounds credential resolution, which may query the instance
// metadata service.
const s3ConfigTimeout = 10 * time.Second

// newImageStore picks S3 when a bucket is configured and local disk
// otherwise. uploadDir is the directory to serve, "" for S3.
func newImageStore(cfg Config) (domain.ImageStore, string, error) {
	if cfg.S3Bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), s3ConfigTimeout)
		defer cancel()
		client, err := upload.NewS3Client(ctx, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, "", err
		}
		return upload.NewS3Store(client, cfg.S3Bucket, "images/", cfg.S3BaseURL), "", nil
	}
	disk, err := upload.NewDiskStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return nil, "", err
	}
	return disk, cfg.UploadDir, nil
}
