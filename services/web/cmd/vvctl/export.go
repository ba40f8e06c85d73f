package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"volunteerverse/services/web/internal/config"
	"volunteerverse/services/web/internal/export"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Signed public catalogue bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newExportBuildCommand())
	cmd.AddCommand(newExportVerifyCommand())
	cmd.AddCommand(newExportKeygenCommand())
	return cmd
}

func newExportBuildCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the NGO and event catalogue to a signed tar.zst",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			st, cfg, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			signer, err := export.NewSigner(cfg.ExportSigningKey, cfg.ExportPublicKey)
			if err != nil {
				return fmt.Errorf("EXPORT_SIGNING_KEY: %w", err)
			}
			_, err = export.Build(ctx, export.BuildConfig{
				Source: st,
				Output: output,
				Signer: signer,
				Stdout: cmd.OutOrStdout(),
			})
			return err
		},
	}

	cmd.Flags().StringVar(&output, "output", "catalogue.tar.zst", "Destination bundle file (tar.zst)")
	return cmd
}

func newExportVerifyCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the hashes and signature of a catalogue bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := config.LoadExport(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			signer, err := export.NewSigner(cfg.ExportSigningKey, cfg.ExportPublicKey)
			if err != nil {
				return fmt.Errorf("EXPORT_SIGNING_KEY or EXPORT_PUBLIC_KEY: %w", err)
			}
			manifest, err := export.Verify(ctx, file, signer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d ngos, %d events, created %s)\n",
				file, manifest.NGOs, manifest.Events, manifest.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the bundle tar.zst")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExportKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an export signing key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, public, err := export.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "EXPORT_SIGNING_KEY=%s\nEXPORT_PUBLIC_KEY=%s\n", secret, public)
			return nil
		},
	}
}
