package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"archive-auditor/core/config"
	"archive-auditor/core/database"
	"archive-auditor/core/logger"
	"archive-auditor/core/storage"
	"archive-auditor/feature/recon"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reconcileLocation      string
	reconcileInventoryTime string
	reconcileBucket        string
	reconcileRegion        string
	reconcileFiles         []string
	reconcileColumns       []string
	reconcileJobID         int64
)

// reconcileCmd is the parent command for reconciliation operations.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the file catalog against a storage inventory",
	Long: `Reconcile the catalog against a provider inventory snapshot to detect
phantom files, orphaned objects, and metadata mismatches.`,
}

// reconcileRunCmd runs the full pipeline for one inventory snapshot:
// create the job, stage the inventory, generate the reports.
var reconcileRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Create a job, stage an inventory snapshot, and generate reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := buildReconService()
		if err != nil {
			return err
		}
		defer logg.Sync()

		inventoryTime, err := time.Parse(time.RFC3339, reconcileInventoryTime)
		if err != nil {
			return fmt.Errorf("invalid --inventory-time (want RFC3339): %w", err)
		}

		ctx := context.Background()
		job, err := svc.CreateJob(ctx, reconcileLocation, inventoryTime)
		if err != nil {
			return err
		}
		logg.Info("Job created", zap.Int64("job_id", job.ID))

		manifest := recon.Manifest{
			SourceBucket: reconcileBucket,
			CreationTime: inventoryTime,
			FileKeys:     reconcileFiles,
			Columns:      splitColumns(reconcileColumns),
			BucketRegion: reconcileRegion,
		}
		staged, err := svc.ImportInventory(ctx, job.ID, manifest)
		if err != nil {
			return err
		}
		logg.Info("Inventory staged", zap.Int64("job_id", job.ID), zap.Int64("rows", staged))

		if err := svc.PerformReconcile(ctx, job.ID); err != nil {
			return err
		}
		logg.Info("Reconciliation complete", zap.Int64("job_id", job.ID))
		return nil
	},
}

// reconcileJobCmd runs report generation for a job that is already STAGED,
// for example when the queue trigger that should have started it was lost.
// Terminal jobs cannot be re-run; a SUCCESS job is a no-op and an ERROR job
// needs a fresh `reconcile run`.
var reconcileJobCmd = &cobra.Command{
	Use:   "job",
	Short: "Generate reports for an already staged job",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := buildReconService()
		if err != nil {
			return err
		}
		defer logg.Sync()

		if err := svc.PerformReconcile(context.Background(), reconcileJobID); err != nil {
			return err
		}
		logg.Info("Reconciliation complete", zap.Int64("job_id", reconcileJobID))
		return nil
	},
}

// buildReconService wires the service the same way the server does, minus
// the HTTP surface.
func buildReconService() (*recon.Service, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	policy := cfg.Retry.Policy(database.IsTransient)
	return recon.NewService(db, store, logg, cfg.Recon, policy), logg, nil
}

// splitColumns accepts both repeated flags and one comma-separated value.
func splitColumns(values []string) []string {
	var out []string
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

func init() {
	reconcileRunCmd.Flags().StringVar(&reconcileLocation, "location", "", "Archive location to reconcile (required)")
	reconcileRunCmd.Flags().StringVar(&reconcileInventoryTime, "inventory-time", "", "Inventory snapshot creation time, RFC3339 (required)")
	reconcileRunCmd.Flags().StringVar(&reconcileBucket, "bucket", "", "Bucket holding the inventory listing files (required)")
	reconcileRunCmd.Flags().StringVar(&reconcileRegion, "region", "", "Region of the inventory bucket")
	reconcileRunCmd.Flags().StringSliceVar(&reconcileFiles, "file", nil, "Inventory listing file key (repeatable, required)")
	reconcileRunCmd.Flags().StringSliceVar(&reconcileColumns, "columns", nil, "Column layout of the listing files (required)")
	_ = reconcileRunCmd.MarkFlagRequired("location")
	_ = reconcileRunCmd.MarkFlagRequired("inventory-time")
	_ = reconcileRunCmd.MarkFlagRequired("bucket")
	_ = reconcileRunCmd.MarkFlagRequired("file")
	_ = reconcileRunCmd.MarkFlagRequired("columns")

	reconcileJobCmd.Flags().Int64Var(&reconcileJobID, "id", 0, "Job id to reconcile (required)")
	_ = reconcileJobCmd.MarkFlagRequired("id")

	reconcileCmd.AddCommand(reconcileRunCmd)
	reconcileCmd.AddCommand(reconcileJobCmd)
	RootCmd.AddCommand(reconcileCmd)
}
