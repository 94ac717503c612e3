package recon

import (
	"context"
	"fmt"
	"time"

	"archive-auditor/feature/recon/models"

	"gorm.io/gorm"
)

// PageSize is the fixed page size shared by every list endpoint.
const PageSize = 100

// JobFilters narrows the jobs listing.
type JobFilters struct {
	ArchiveLocation string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}

// ListJobs returns one page of jobs ordered by inventory creation time,
// newest first, ties broken by id. Each query over-fetches one row beyond
// the page size; the extra row only signals that another page exists.
func (s *Service) ListJobs(ctx context.Context, pageIndex int, filters JobFilters) (*models.JobPage, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("%w: page index must not be negative", ErrValidation)
	}

	var jobs []models.Job
	err := s.withRetry(ctx, "list jobs", func() error {
		q := s.db.WithContext(ctx).Model(&models.Job{})
		if filters.ArchiveLocation != "" {
			q = q.Where("archive_location = ?", filters.ArchiveLocation)
		}
		if filters.CreatedAfter != nil {
			q = q.Where("inventory_creation_time >= ?", *filters.CreatedAfter)
		}
		if filters.CreatedBefore != nil {
			q = q.Where("inventory_creation_time <= ?", *filters.CreatedBefore)
		}
		return q.Order("inventory_creation_time DESC, id DESC").
			Limit(PageSize + 1).
			Offset(pageIndex * PageSize).
			Find(&jobs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs, anotherPage := trimPage(jobs)
	page := &models.JobPage{
		Jobs:        make([]models.JobRow, 0, len(jobs)),
		PageIndex:   pageIndex,
		AnotherPage: anotherPage,
	}
	for _, j := range jobs {
		page.Jobs = append(page.Jobs, models.JobRow{
			ID:                    j.ID,
			ArchiveLocation:       j.ArchiveLocation,
			InventoryCreationTime: models.ToMillis(j.InventoryCreationTime),
			Status:                string(j.Status),
			StartTime:             models.ToMillis(j.StartTime),
			LastUpdate:            models.ToMillis(j.LastUpdate),
			EndTime:               models.ToMillisPtr(j.EndTime),
			ErrorMessage:          j.ErrorMessage,
			StagedCount:           j.StagedCount,
		})
	}
	return page, nil
}

// ListPhantoms returns one page of a job's phantom reports, ordered by
// (collection_id, granule_id, key_path). An optional key-path prefix
// narrows the listing.
func (s *Service) ListPhantoms(ctx context.Context, jobID int64, pageIndex int, keyPrefix string) (*models.PhantomPage, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("%w: page index must not be negative", ErrValidation)
	}

	var rows []models.PhantomReport
	err := s.withRetry(ctx, "list phantoms", func() error {
		return reportQuery(s.db.WithContext(ctx).Model(&models.PhantomReport{}), jobID, keyPrefix).
			Offset(pageIndex * PageSize).
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list phantoms for job %d: %w", jobID, err)
	}

	rows, anotherPage := trimPage(rows)
	page := &models.PhantomPage{
		Phantoms:    make([]models.PhantomRow, 0, len(rows)),
		PageIndex:   pageIndex,
		AnotherPage: anotherPage,
	}
	for _, r := range rows {
		page.Phantoms = append(page.Phantoms, models.PhantomRow{
			JobID:        r.JobID,
			CollectionID: r.CollectionID,
			GranuleID:    r.GranuleID,
			Filename:     r.Filename,
			KeyPath:      r.KeyPath,
			Etag:         r.Etag,
			SizeInBytes:  r.SizeInBytes,
			LastUpdate:   models.ToMillis(r.LastUpdate),
		})
	}
	return page, nil
}

// ListOrphans returns one page of a job's orphan reports. Orphans carry no
// catalog identity, so they order by key_path alone.
func (s *Service) ListOrphans(ctx context.Context, jobID int64, pageIndex int, keyPrefix string) (*models.OrphanPage, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("%w: page index must not be negative", ErrValidation)
	}

	var rows []models.OrphanReport
	err := s.withRetry(ctx, "list orphans", func() error {
		q := s.db.WithContext(ctx).Model(&models.OrphanReport{}).Where("job_id = ?", jobID)
		if keyPrefix != "" {
			q = q.Where("key_path LIKE ?", keyPrefix+"%")
		}
		return q.Order("key_path").
			Limit(PageSize + 1).
			Offset(pageIndex * PageSize).
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orphans for job %d: %w", jobID, err)
	}

	rows, anotherPage := trimPage(rows)
	page := &models.OrphanPage{
		Orphans:     make([]models.OrphanRow, 0, len(rows)),
		PageIndex:   pageIndex,
		AnotherPage: anotherPage,
	}
	for _, r := range rows {
		page.Orphans = append(page.Orphans, models.OrphanRow{
			JobID:        r.JobID,
			KeyPath:      r.KeyPath,
			Etag:         r.Etag,
			SizeInBytes:  r.SizeInBytes,
			StorageClass: r.StorageClass,
			LastUpdate:   models.ToMillis(r.LastUpdate),
		})
	}
	return page, nil
}

// ListMismatches returns one page of a job's mismatch reports, ordered by
// (collection_id, granule_id, key_path).
func (s *Service) ListMismatches(ctx context.Context, jobID int64, pageIndex int, keyPrefix string) (*models.MismatchPage, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("%w: page index must not be negative", ErrValidation)
	}

	var rows []models.MismatchReport
	err := s.withRetry(ctx, "list mismatches", func() error {
		return reportQuery(s.db.WithContext(ctx).Model(&models.MismatchReport{}), jobID, keyPrefix).
			Offset(pageIndex * PageSize).
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mismatches for job %d: %w", jobID, err)
	}

	rows, anotherPage := trimPage(rows)
	page := &models.MismatchPage{
		Mismatches:  make([]models.MismatchRow, 0, len(rows)),
		PageIndex:   pageIndex,
		AnotherPage: anotherPage,
	}
	for _, r := range rows {
		page.Mismatches = append(page.Mismatches, models.MismatchRow{
			JobID:              r.JobID,
			CollectionID:       r.CollectionID,
			GranuleID:          r.GranuleID,
			Filename:           r.Filename,
			KeyPath:            r.KeyPath,
			CatalogEtag:        r.CatalogEtag,
			StorageEtag:        r.StorageEtag,
			CatalogSizeInBytes: r.CatalogSizeInBytes,
			StorageSizeInBytes: r.StorageSizeInBytes,
			CatalogLastUpdate:  models.ToMillis(r.CatalogLastUpdate),
			StorageLastUpdate:  models.ToMillis(r.StorageLastUpdate),
			DiscrepancyType:    r.DiscrepancyType,
		})
	}
	return page, nil
}

// reportQuery applies the shared filter and ordering for catalog-identified
// report listings.
func reportQuery(q *gorm.DB, jobID int64, keyPrefix string) *gorm.DB {
	q = q.Where("job_id = ?", jobID)
	if keyPrefix != "" {
		q = q.Where("key_path LIKE ?", keyPrefix+"%")
	}
	return q.Order("collection_id, granule_id, key_path").Limit(PageSize + 1)
}

// trimPage cuts the over-fetched row and reports whether one was present.
func trimPage[T any](rows []T) ([]T, bool) {
	if len(rows) > PageSize {
		return rows[:PageSize], true
	}
	return rows, false
}
