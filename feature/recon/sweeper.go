package recon

import (
	"context"
	"fmt"
	"time"

	"archive-auditor/feature/recon/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SweepExpired deletes all reports and jobs whose last_update is older than
// the configured retention window, child tables before the job rows. Each
// delete is retried independently; deleting zero rows is not an error.
func (s *Service) SweepExpired(ctx context.Context) error {
	days := s.cfg.RetentionDays
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	// Collect the ids up front so leftover staging relations can be dropped.
	var expiredIDs []int64
	err := s.withRetry(ctx, "find expired jobs", func() error {
		return s.db.WithContext(ctx).Model(&models.Job{}).
			Where("last_update < ?", cutoff).
			Pluck("id", &expiredIDs).Error
	})
	if err != nil {
		return fmt.Errorf("failed to find expired jobs: %w", err)
	}
	if len(expiredIDs) == 0 {
		s.logger.Info("Retention sweep found nothing to delete",
			zap.Time("cutoff", cutoff),
		)
		return nil
	}

	expiredJobs := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Job{}).
			Select("id").
			Where("last_update < ?", cutoff)
	}

	reportTables := []struct {
		name  string
		model any
	}{
		{"mismatch_reports", &models.MismatchReport{}},
		{"orphan_reports", &models.OrphanReport{}},
		{"phantom_reports", &models.PhantomReport{}},
	}

	for _, table := range reportTables {
		var deleted int64
		err := s.withRetry(ctx, "sweep "+table.name, func() error {
			result := s.db.WithContext(ctx).
				Where("job_id IN (?)", expiredJobs()).
				Delete(table.model)
			deleted = result.RowsAffected
			return result.Error
		})
		if err != nil {
			return fmt.Errorf("failed to sweep %s: %w", table.name, err)
		}
		s.logger.Info("Swept expired report rows",
			zap.String("table", table.name),
			zap.Int64("deleted", deleted),
		)
	}

	for _, jobID := range expiredIDs {
		s.dropStagingTable(ctx, jobID)
	}

	var deletedJobs int64
	err = s.withRetry(ctx, "sweep jobs", func() error {
		result := s.db.WithContext(ctx).
			Where("last_update < ?", cutoff).
			Delete(&models.Job{})
		deletedJobs = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return fmt.Errorf("failed to sweep jobs: %w", err)
	}

	s.logger.Info("Retention sweep complete",
		zap.Time("cutoff", cutoff),
		zap.Int("retention_days", days),
		zap.Int64("deleted_jobs", deletedJobs),
	)
	return nil
}
