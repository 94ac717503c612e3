package recon

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"archive-auditor/core/database"
	"archive-auditor/core/storage"
	"archive-auditor/core/utils"
	"archive-auditor/feature/recon/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manifest describes one provider inventory snapshot: the bucket holding the
// listing files, the ordered file keys, and the column layout of each file.
type Manifest struct {
	SourceBucket string    `json:"source_bucket"`
	CreationTime time.Time `json:"creation_time"`
	FileKeys     []string  `json:"file_keys"`
	Columns      []string  `json:"columns"`
	BucketRegion string    `json:"bucket_region"`
	BucketName   string    `json:"bucket_name"`
}

// stagingColumnTypes is the allow-list of manifest columns and the SQL type
// each maps to in the staging relation. An unknown column is fatal.
var stagingColumnTypes = map[string]string{
	"key_path":      "VARCHAR(1024) NOT NULL",
	"etag":          "VARCHAR(100)",
	"size_in_bytes": "BIGINT",
	"storage_class": "VARCHAR(40)",
	"last_update":   "DATETIME(6)",
	"is_latest":     "BOOLEAN",
}

const importBatchSize = 500

// StagingTableName returns the job-scoped staging relation name.
func StagingTableName(jobID int64) string {
	return fmt.Sprintf("recon_staging_%d", jobID)
}

// ValidateManifestColumns checks the declared column schema against the
// allow-list. key_path and is_latest must be present; anything outside the
// allow-list is a validation error.
func ValidateManifestColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: manifest declares no columns", ErrValidation)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		name := strings.ToLower(col)
		if _, ok := stagingColumnTypes[name]; !ok {
			return fmt.Errorf("%w: unknown manifest column %q", ErrValidation, col)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate manifest column %q", ErrValidation, col)
		}
		seen[name] = struct{}{}
	}
	for _, required := range []string{"key_path", "is_latest"} {
		if _, ok := seen[required]; !ok {
			return fmt.Errorf("%w: manifest is missing required column %q", ErrValidation, required)
		}
	}
	return nil
}

// ImportInventory stages one provider inventory snapshot into the job's
// staging relation and transitions the job to STAGED. Any failure moves the
// job to ERROR with the failure text before the error is returned.
func (s *Service) ImportInventory(ctx context.Context, jobID int64, manifest Manifest) (int64, error) {
	total, err := s.importInventory(ctx, jobID, manifest)
	if err != nil {
		if stErr := s.UpdateJobStatus(ctx, jobID, models.JobStatusError, err.Error()); stErr != nil {
			s.logger.Error("Failed to record import failure on job",
				zap.Int64("job_id", jobID),
				zap.Error(stErr),
			)
		}
		return 0, err
	}
	return total, nil
}

func (s *Service) importInventory(ctx context.Context, jobID int64, manifest Manifest) (int64, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if job.Status != models.JobStatusPending {
		return 0, fmt.Errorf("%w: job %d is %s, expected %s",
			ErrValidation, jobID, job.Status, models.JobStatusPending)
	}

	if err := ValidateManifestColumns(manifest.Columns); err != nil {
		return 0, err
	}
	if manifest.SourceBucket == "" {
		return 0, fmt.Errorf("%w: manifest source bucket is required", ErrValidation)
	}
	if len(manifest.FileKeys) == 0 {
		return 0, fmt.Errorf("%w: manifest lists no inventory files", ErrValidation)
	}

	staging := StagingTableName(jobID)
	if err := s.createStagingTable(ctx, staging, manifest.Columns); err != nil {
		return 0, err
	}

	var total int64
	for _, key := range manifest.FileKeys {
		var loaded int64
		err := s.withRetry(ctx, "bulk import inventory file", func() error {
			var impErr error
			loaded, impErr = s.importer.BulkImportCsv(ctx, staging, manifest.SourceBucket, key, manifest.BucketRegion, manifest.Columns)
			return impErr
		})
		if err != nil {
			return 0, fmt.Errorf("failed to stage inventory file %s: %w", key, err)
		}
		s.logger.Info("Staged inventory file",
			zap.Int64("job_id", jobID),
			zap.String("file", key),
			zap.Int64("rows", loaded),
		)
		total += loaded
	}

	err = s.withRetry(ctx, "record staged count", func() error {
		return s.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ?", jobID).
			Update("staged_count", total).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record staged count for job %d: %w", jobID, err)
	}

	if err := s.UpdateJobStatus(ctx, jobID, models.JobStatusStaged, ""); err != nil {
		return 0, err
	}

	s.logger.Info("Inventory import complete",
		zap.Int64("job_id", jobID),
		zap.Int64("staged_rows", total),
	)
	return total, nil
}

// createStagingTable creates the job-scoped staging relation shaped by the
// manifest's column schema, then verifies the resulting shape. The relation
// name cannot be parameterized, so it goes through the identifier allow-list.
func (s *Service) createStagingTable(ctx context.Context, staging string, columns []string) error {
	if err := database.ValidateIdentifier(staging); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		name := strings.ToLower(col)
		defs = append(defs, fmt.Sprintf("`%s` %s", name, stagingColumnTypes[name]))
	}
	ddl := fmt.Sprintf("CREATE TABLE `%s` (%s)", staging, strings.Join(defs, ", "))

	err := s.withRetry(ctx, "create staging table", func() error {
		if err := s.db.WithContext(ctx).Exec(fmt.Sprintf("DROP TABLE IF EXISTS `%s`", staging)).Error; err != nil {
			return err
		}
		return s.db.WithContext(ctx).Exec(ddl).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create staging table %s: %w", staging, err)
	}

	if err := database.VerifyColumns(s.db.WithContext(ctx), staging, columns); err != nil {
		return fmt.Errorf("staging table verification failed: %w", err)
	}
	return nil
}

// dropStagingTable removes a job's staging relation. Failure is logged
// only; the retention sweeper picks up anything left behind.
func (s *Service) dropStagingTable(ctx context.Context, jobID int64) {
	staging := StagingTableName(jobID)
	if err := database.ValidateIdentifier(staging); err != nil {
		s.logger.Error("Invalid staging table name", zap.Int64("job_id", jobID), zap.Error(err))
		return
	}
	err := s.db.WithContext(ctx).Exec(fmt.Sprintf("DROP TABLE IF EXISTS `%s`", staging)).Error
	if err != nil {
		s.logger.Warn("Failed to drop staging table",
			zap.Int64("job_id", jobID),
			zap.String("table", staging),
			zap.Error(err),
		)
	}
}

// BulkImporter loads one inventory listing file into a staging relation.
// It is the storage engine's bulk-import capability; the CSV implementation
// below streams from object storage, but tests substitute their own.
type BulkImporter interface {
	BulkImportCsv(ctx context.Context, stagingTable, bucket, key, region string, columns []string) (int64, error)
}

// csvBulkImporter streams a delimited listing file out of object storage
// and batch-inserts its current-version rows into the staging relation.
type csvBulkImporter struct {
	db     *gorm.DB
	client storage.Client
	logger *zap.Logger
}

func (b *csvBulkImporter) BulkImportCsv(ctx context.Context, stagingTable, bucket, key, region string, columns []string) (int64, error) {
	info, err := b.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to stat inventory file %s: %w", key, err)
	}
	b.logger.Debug("Loading inventory file",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("bytes", info.Size),
	)

	obj, err := b.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to open inventory file %s: %w", key, err)
	}
	defer obj.Close()

	reader := csv.NewReader(obj)
	// Rows narrower than the declared schema are padded, not rejected.
	reader.FieldsPerRecord = -1

	// The staging relation only has the declared columns, so the insert
	// must not mention the rest of the model's fields.
	insertColumns := make([]string, 0, len(columns))
	for _, col := range columns {
		insertColumns = append(insertColumns, strings.ToLower(col))
	}

	var total int64
	batch := make([]models.StagedObject, 0, importBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := b.db.WithContext(ctx).Table(stagingTable).
			Select(insertColumns).
			Create(&batch).Error
		if err != nil {
			return fmt.Errorf("failed to insert staged rows: %w", err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to parse inventory file %s: %w", key, err)
		}

		row := mapInventoryRecord(columns, record)
		if !row.IsLatest {
			continue
		}
		batch = append(batch, row)

		if len(batch) >= importBatchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}

	if err := flush(); err != nil {
		return 0, err
	}
	return total, nil
}

// mapInventoryRecord maps one delimited record onto a staged object by the
// declared column order. A missing field is coerced to its zero value
// (size becomes 0), and the etag keeps whatever quoting the provider wrote;
// normalization is deliberately left to the diff comparison.
func mapInventoryRecord(columns []string, record []string) models.StagedObject {
	var row models.StagedObject
	for i, col := range columns {
		var value string
		if i < len(record) {
			value = record[i]
		}
		switch strings.ToLower(col) {
		case "key_path":
			row.KeyPath = value
		case "etag":
			row.Etag = value
		case "size_in_bytes":
			row.SizeInBytes = int64(utils.ToInt(value))
		case "storage_class":
			row.StorageClass = value
		case "last_update":
			if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
				row.LastUpdate = ts.UTC()
			}
		case "is_latest":
			row.IsLatest = utils.ToBool(value)
		}
	}
	return row
}
