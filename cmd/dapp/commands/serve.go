package commands

import (
	"net"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Resolve the start-up stages and serve the dapp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			return wire.Serve(cmd.Context(), ln)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flagCfg.Addr, "addr", "", "listen address (default 127.0.0.1:3010)")
	f.BoolVar(&flagCfg.StrictStages, "strict-stages", false, "treat every stage failure as fatal")
	f.StringVar(&flagCfg.UploadDir, "upload-dir", "", "directory for uploaded images (default <home>/uploads)")
	f.StringVar(&flagCfg.OTLPEndpoint, "otlp-endpoint", "", "OTLP/HTTP traces endpoint; empty disables tracing")
	f.BoolVar(&flagCfg.BetaBanner, "beta", false, "show the beta banner")
	return cmd
}
