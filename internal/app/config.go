package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home      string `env:"DAPP_HOME"`                                   // state directory, default $HOME/.dapp
	Addr      string `env:"DAPP_ADDR"       envDefault:"127.0.0.1:3010"` // browser-facing listen address
	RemoteURL string `env:"DAPP_REMOTE_URL" envDefault:"http://127.0.0.1:3030"`
	// Passphrase unlocks the wallet keystore. Empty runs read-only.
	Passphrase   string `env:"DAPP_PASSPHRASE,unset"`
	NetworkID    int64  `env:"DAPP_NETWORK_ID"    envDefault:"1"`
	StrictStages bool   `env:"DAPP_STRICT_STAGES"`

	UploadDir  string `env:"DAPP_UPLOAD_DIR"` // default <Home>/uploads
	S3Bucket   string `env:"DAPP_S3_BUCKET"`  // when set, images go to S3 instead of UploadDir
	S3Region   string `env:"DAPP_S3_REGION"   envDefault:"us-east-1"`
	S3Endpoint string `env:"DAPP_S3_ENDPOINT"`
	S3BaseURL  string `env:"DAPP_S3_PUBLIC_URL"`

	OTLPEndpoint     string `env:"DAPP_OTLP_ENDPOINT"`
	MetricsEnabled   bool   `env:"DAPP_METRICS_ENABLED"   envDefault:"true"`
	AnalyticsEnabled bool   `env:"DAPP_ANALYTICS_ENABLED" envDefault:"true"`
	// BetaBanner shows the beta notice on every page.
	BetaBanner bool `env:"DAPP_BETA_BANNER"`
}

// LoadConfig reads Config from the environment. Call Resolve once flags
// have been applied.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Resolve fills defaults that depend on other fields.
func (c *Config) Resolve() error {
	if c.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home dir: %w", err)
		}
		c.Home = filepath.Join(home, ".dapp")
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.Home, "uploads")
	}
	return nil
}
