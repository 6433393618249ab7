package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	applog "rocktheauction/internal/log"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "load the demo auction, catalogue and lots into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		return rt.deps.Seeder.Seed(cmd.Context())
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "recompute every catalogue aggregate and report the ones that drifted",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		report, err := rt.deps.Catalogues.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		applog.L().Info("catalogue.reconcile.done", zap.Int("checked", report.Checked), zap.Strings("repaired", report.Repaired))
		fmt.Fprintf(cmd.OutOrStdout(), "checked %d catalogues, repaired %d\n", report.Checked, len(report.Repaired))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd, reconcileCmd)
}
