package recon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archive-auditor/feature/recon/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateJob inserts a new reconciliation job at PENDING for one archive
// location and one inventory snapshot. The insert is a single statement, so
// a failure never leaves a half-created job.
func (s *Service) CreateJob(ctx context.Context, archiveLocation string, inventoryCreationTime time.Time) (*models.Job, error) {
	if archiveLocation == "" {
		return nil, fmt.Errorf("%w: archive location is required", ErrValidation)
	}
	if inventoryCreationTime.IsZero() {
		return nil, fmt.Errorf("%w: inventory creation time is required", ErrValidation)
	}

	now := time.Now().UTC()
	job := models.Job{
		ArchiveLocation:       archiveLocation,
		InventoryCreationTime: inventoryCreationTime.UTC(),
		Status:                models.JobStatusPending,
		StartTime:             now,
		LastUpdate:            now,
	}

	err := s.withRetry(ctx, "create job", func() error {
		return s.db.WithContext(ctx).Create(&job).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Created reconciliation job",
		zap.Int64("job_id", job.ID),
		zap.String("archive_location", archiveLocation),
	)
	return &job, nil
}

// GetJob loads a job by id.
func (s *Service) GetJob(ctx context.Context, jobID int64) (*models.Job, error) {
	var job models.Job
	err := s.withRetry(ctx, "get job", func() error {
		return s.db.WithContext(ctx).First(&job, jobID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: job %d", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	return &job, nil
}

// UpdateJobStatus applies a status transition. Calling it twice with the
// same terminal state is a no-op; any other transition that the state
// machine forbids is a validation error.
func (s *Service) UpdateJobStatus(ctx context.Context, jobID int64, status models.JobStatus, errorMessage string) error {
	return s.withRetry(ctx, "update job status", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var job models.Job
			if err := tx.First(&job, jobID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: job %d", ErrNotFound, jobID)
				}
				return err
			}

			// Idempotent re-application of the same terminal outcome.
			if job.Status == status && status.IsTerminal() {
				return nil
			}
			if !job.Status.CanTransitionTo(status) {
				return fmt.Errorf("%w: illegal status transition %s -> %s for job %d",
					ErrValidation, job.Status, status, jobID)
			}

			now := time.Now().UTC()
			updates := map[string]any{
				"status":        status,
				"last_update":   now,
				"error_message": errorMessage,
			}
			if status == models.JobStatusSuccess {
				updates["error_message"] = ""
			}
			if status.IsTerminal() {
				updates["end_time"] = now
			}
			return tx.Model(&models.Job{}).Where("id = ?", jobID).Updates(updates).Error
		})
	})
}

// PerformReconcile runs the diff engine for a staged job and transitions it
// to SUCCESS or ERROR. Any failure during report generation is recorded on
// the job before the error is returned; status recording is never skipped.
// Re-invoking on an already SUCCESS job is a no-op so that queue redelivery
// after a lost acknowledgement converges instead of deadlettering.
func (s *Service) PerformReconcile(ctx context.Context, jobID int64) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status == models.JobStatusSuccess {
		s.logger.Info("Job already reconciled, skipping", zap.Int64("job_id", jobID))
		return nil
	}

	if err := s.UpdateJobStatus(ctx, jobID, models.JobStatusGeneratingReports, ""); err != nil {
		return err
	}

	// The whole diff runs inside one transaction, so a transient failure
	// rolls back cleanly and the retry starts from nothing.
	genErr := s.withRetry(ctx, "generate reports", func() error {
		return s.generateReports(ctx, job)
	})
	if genErr != nil {
		if stErr := s.UpdateJobStatus(ctx, jobID, models.JobStatusError, genErr.Error()); stErr != nil {
			s.logger.Error("Failed to record job error status",
				zap.Int64("job_id", jobID),
				zap.Error(stErr),
			)
		}
		return fmt.Errorf("report generation failed for job %d: %w", jobID, genErr)
	}

	s.dropStagingTable(ctx, jobID)

	return s.UpdateJobStatus(ctx, jobID, models.JobStatusSuccess, "")
}
