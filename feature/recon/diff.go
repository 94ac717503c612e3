package recon

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"archive-auditor/core/database"
	"archive-auditor/feature/recon/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reportBatchSize = 500

// unknownDiscrepancy is the defensive fallback label; the join predicate
// guarantees at least one differing field, so it should never appear.
const unknownDiscrepancy = "UNKNOWN"

// generateReports computes phantom, orphan, and mismatch rows for one job
// and writes all three sets inside a single transaction. Identity is
// (archive location, key path): the catalog side is filtered to the job's
// location and the staged side is already scoped by the job's relation.
func (s *Service) generateReports(ctx context.Context, job *models.Job) error {
	staging := StagingTableName(job.ID)
	if err := database.ValidateIdentifier(staging); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var catalog []models.CatalogFile
		if err := tx.Where("archive_location = ?", job.ArchiveLocation).Find(&catalog).Error; err != nil {
			return fmt.Errorf("failed to load catalog files: %w", err)
		}

		var staged []models.StagedObject
		if err := tx.Table(staging).Find(&staged).Error; err != nil {
			return fmt.Errorf("failed to load staged inventory: %w", err)
		}

		// Index both sides by key path, then walk each index once.
		catalogIndex := make(map[string]models.CatalogFile, len(catalog))
		for _, f := range catalog {
			catalogIndex[f.KeyPath] = f
		}
		stagedIndex := make(map[string]models.StagedObject, len(staged))
		for _, o := range staged {
			stagedIndex[o.KeyPath] = o
		}

		var phantoms []models.PhantomReport
		var mismatches []models.MismatchReport
		for _, f := range catalog {
			o, ok := stagedIndex[f.KeyPath]
			if !ok {
				phantoms = append(phantoms, models.PhantomReport{
					JobID:        job.ID,
					CollectionID: f.CollectionID,
					GranuleID:    f.GranuleID,
					Filename:     f.Filename,
					KeyPath:      f.KeyPath,
					Etag:         f.Etag,
					SizeInBytes:  f.SizeInBytes,
					LastUpdate:   f.LastUpdate,
				})
				continue
			}
			if fields := differingFields(f, o); len(fields) > 0 {
				mismatches = append(mismatches, models.MismatchReport{
					JobID:              job.ID,
					CollectionID:       f.CollectionID,
					GranuleID:          f.GranuleID,
					Filename:           f.Filename,
					KeyPath:            f.KeyPath,
					CatalogEtag:        f.Etag,
					StorageEtag:        o.Etag,
					CatalogSizeInBytes: f.SizeInBytes,
					StorageSizeInBytes: o.SizeInBytes,
					CatalogLastUpdate:  f.IngestTime,
					StorageLastUpdate:  o.LastUpdate,
					DiscrepancyType:    discrepancyType(fields),
				})
			}
		}

		var orphans []models.OrphanReport
		for _, o := range staged {
			if _, ok := catalogIndex[o.KeyPath]; ok {
				continue
			}
			orphans = append(orphans, models.OrphanReport{
				JobID:        job.ID,
				KeyPath:      o.KeyPath,
				Etag:         o.Etag,
				SizeInBytes:  o.SizeInBytes,
				StorageClass: o.StorageClass,
				LastUpdate:   o.LastUpdate,
			})
		}

		// Sort for deterministic insert order
		sort.Slice(phantoms, func(i, j int) bool { return phantoms[i].KeyPath < phantoms[j].KeyPath })
		sort.Slice(orphans, func(i, j int) bool { return orphans[i].KeyPath < orphans[j].KeyPath })
		sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].KeyPath < mismatches[j].KeyPath })

		if len(phantoms) > 0 {
			if err := tx.CreateInBatches(&phantoms, reportBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert phantom reports: %w", err)
			}
		}
		if len(orphans) > 0 {
			if err := tx.CreateInBatches(&orphans, reportBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert orphan reports: %w", err)
			}
		}
		if len(mismatches) > 0 {
			if err := tx.CreateInBatches(&mismatches, reportBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert mismatch reports: %w", err)
			}
		}

		s.logger.Info("Reconciliation reports generated",
			zap.Int64("job_id", job.ID),
			zap.Int("catalog_files", len(catalog)),
			zap.Int("staged_objects", len(staged)),
			zap.Int("phantoms", len(phantoms)),
			zap.Int("orphans", len(orphans)),
			zap.Int("mismatches", len(mismatches)),
		)
		return nil
	})
}

// differingFields compares a catalog file against its staged counterpart
// and returns the differing fields in the fixed order
// etag, size_in_bytes, last_update.
//
// Etag comparison is a raw string comparison: the importer preserves the
// provider's literal quoting, so both sides must already agree on
// representation. Size was coerced to 0 at load time when absent.
func differingFields(f models.CatalogFile, o models.StagedObject) []string {
	var fields []string
	if f.Etag != o.Etag {
		fields = append(fields, "etag")
	}
	if f.SizeInBytes != o.SizeInBytes {
		fields = append(fields, "size_in_bytes")
	}
	if !f.IngestTime.Equal(o.LastUpdate) {
		fields = append(fields, "last_update")
	}
	return fields
}

// discrepancyType renders the differing fields as the report label.
func discrepancyType(fields []string) string {
	if len(fields) == 0 {
		return unknownDiscrepancy
	}
	return strings.Join(fields, ", ")
}
