package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sweepCmd deletes jobs and reports past the retention window.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete jobs and reports older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := buildReconService()
		if err != nil {
			return err
		}
		defer logg.Sync()

		if err := svc.SweepExpired(context.Background()); err != nil {
			return err
		}
		logg.Info("Retention sweep finished", zap.String("command", "sweep"))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(sweepCmd)
}
