package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dapp/internal/app"
)

var (
	cfg  app.Config
	wire *app.Wire

	// flagCfg receives flag values; only flags set on the command line
	// override the environment.
	flagCfg   app.Config
	logLevel  string
	logFormat string
)

// Execute runs the CLI with ctx as the root context.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dapp",
		Short:        "Readiness-gated dapp for Funds, Campaigns and Milestones",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
			if err != nil {
				return err
			}
			if cfg, err = app.LoadConfig(); err != nil {
				return err
			}
			applyFlags(cmd.Flags(), &cfg)
			if err := cfg.Resolve(); err != nil {
				return err
			}
			wire, err = app.NewWire(cfg, logger)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagCfg.Home, "home", "", "state dir (default ~/.dapp)")
	pf.StringVar(&flagCfg.RemoteURL, "remote", "", "DAC service base URL")
	pf.StringVarP(&flagCfg.Passphrase, "passphrase", "p", "", "passphrase protecting the wallet key")
	pf.Int64Var(&flagCfg.NetworkID, "network-id", 0, "expected network id")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(serveCmd(), accountCmd(), routesCmd())
	return root
}

// applyFlags copies the flags set on the command line over c.
func applyFlags(fs *pflag.FlagSet, c *app.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("home", func() { c.Home = flagCfg.Home })
	set("remote", func() { c.RemoteURL = flagCfg.RemoteURL })
	set("passphrase", func() { c.Passphrase = flagCfg.Passphrase })
	set("network-id", func() { c.NetworkID = flagCfg.NetworkID })
	set("addr", func() { c.Addr = flagCfg.Addr })
	set("strict-stages", func() { c.StrictStages = flagCfg.StrictStages })
	set("upload-dir", func() { c.UploadDir = flagCfg.UploadDir })
	set("otlp-endpoint", func() { c.OTLPEndpoint = flagCfg.OTLPEndpoint })
	set("beta", func() { c.BetaBanner = flagCfg.BetaBanner })
}
