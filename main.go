package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uof-sdk/config"
	"uof-sdk/pkg/routing"
)

func main() {
	root := &cobra.Command{
		Use:          "uof-sdk",
		Short:        "Betradar Unified Odds Feed consumer",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "Print the routing keys bound by each configured session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			interests, err := cfg.Interests()
			if err != nil {
				return err
			}
			keys, err := routing.GenerateKeys(interests, cfg.NodeID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, sessionKeys := range keys {
				fmt.Fprintf(out, "%s (%s)\n", cfg.SessionName(i), interests[i])
				for _, k := range sessionKeys {
					fmt.Fprintf(out, "  %s\n", k)
				}
			}
			return nil
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
