package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the wallet key",
	}
	cmd.AddCommand(accountInitCmd(), accountShowCmd())
	return cmd
}

func accountInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the wallet key and store it securely",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			addr, fp, err := wire.Wallet.GenerateKey(cfg.Passphrase)
			if err != nil {
				return err
			}
			// A profile cached for another account must not outlive it.
			if err := wire.Sessions.Forget(); err != nil {
				wire.Logger.Warn("clear cached profile", "err", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wallet created.\nAddress: %s\nFingerprint: %s\n", addr, fp)
			return nil
		},
	}
}

func accountShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the wallet address and key fingerprint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := wire.Wallet.Account(cfg.Passphrase)
			if err != nil {
				return err
			}
			fp, err := wire.Wallet.Fingerprint(cfg.Passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\nFingerprint: %s\n", addr, fp)
			return nil
		},
	}
}
