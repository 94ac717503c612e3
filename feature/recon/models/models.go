package models

import "time"

// JobStatus is the lifecycle state of a reconciliation job.
type JobStatus string

const (
	// JobStatusPending means the job is created but inventory is not staged yet.
	JobStatusPending JobStatus = "PENDING"
	// JobStatusStaged means the inventory import completed.
	JobStatusStaged JobStatus = "STAGED"
	// JobStatusGeneratingReports means the diff is in progress.
	JobStatusGeneratingReports JobStatus = "GENERATING_REPORTS"
	// JobStatusSuccess is the successful terminal state.
	JobStatusSuccess JobStatus = "SUCCESS"
	// JobStatusError is the failed terminal state.
	JobStatusError JobStatus = "ERROR"
)

// IsTerminal reports whether the status is a terminal state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusError
}

// CanTransitionTo reports whether moving from s to next is a legal
// forward step of the lifecycle. Any non-terminal state may move to ERROR.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == JobStatusError {
		return true
	}
	switch s {
	case JobStatusPending:
		return next == JobStatusStaged
	case JobStatusStaged:
		return next == JobStatusGeneratingReports
	case JobStatusGeneratingReports:
		return next == JobStatusSuccess
	}
	return false
}

// Job represents one reconciliation run over one archive location.
type Job struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ArchiveLocation       string     `gorm:"column:archive_location;size:255;uniqueIndex:idx_jobs_location_inventory,priority:1" json:"archive_location"`
	InventoryCreationTime time.Time  `gorm:"column:inventory_creation_time;uniqueIndex:idx_jobs_location_inventory,priority:2" json:"inventory_creation_time"`
	Status                JobStatus  `gorm:"column:status;size:32" json:"status"`
	StartTime             time.Time  `gorm:"column:start_time" json:"start_time"`
	LastUpdate            time.Time  `gorm:"column:last_update;index" json:"last_update"`
	EndTime               *time.Time `gorm:"column:end_time" json:"end_time,omitempty"`
	ErrorMessage          string     `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	StagedCount           int64      `gorm:"column:staged_count" json:"staged_count"`
}

// TableName overrides the default table name.
func (Job) TableName() string { return "recon_jobs" }

// StagedObject is one row of the provider's inventory snapshot, loaded into
// a job-scoped staging relation. The relation name is generated per job, so
// this model is always queried through db.Table(...).
type StagedObject struct {
	KeyPath      string    `gorm:"column:key_path;size:1024" json:"key_path"`
	Etag         string    `gorm:"column:etag;size:100" json:"etag"`
	SizeInBytes  int64     `gorm:"column:size_in_bytes" json:"size_in_bytes"`
	StorageClass string    `gorm:"column:storage_class;size:40" json:"storage_class"`
	LastUpdate   time.Time `gorm:"column:last_update" json:"last_update"`
	IsLatest     bool      `gorm:"column:is_latest" json:"is_latest"`
}

// CatalogFile is the system-of-record belief about one archived file.
// The table is owned by the ingestion subsystem; this service only reads it.
type CatalogFile struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	GranuleID       string    `gorm:"column:granule_id;size:255" json:"granule_id"`
	CollectionID    string    `gorm:"column:collection_id;size:255" json:"collection_id"`
	Filename        string    `gorm:"column:filename;size:255" json:"filename"`
	KeyPath         string    `gorm:"column:key_path;size:1024" json:"key_path"`
	ArchiveLocation string    `gorm:"column:archive_location;size:255;index" json:"archive_location"`
	Etag            string    `gorm:"column:etag;size:100" json:"etag"`
	SizeInBytes     int64     `gorm:"column:size_in_bytes" json:"size_in_bytes"`
	StorageClass    string    `gorm:"column:storage_class;size:40" json:"storage_class"`
	IngestTime      time.Time `gorm:"column:ingest_time" json:"ingest_time"`
	LastUpdate      time.Time `gorm:"column:last_update" json:"last_update"`
}

// TableName overrides the default table name.
func (CatalogFile) TableName() string { return "catalog_files" }

// PhantomReport is a catalog file with no corresponding storage object.
// Only the catalog's belief can be reported; there is no storage side.
type PhantomReport struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID        int64     `gorm:"column:job_id;index" json:"job_id"`
	CollectionID string    `gorm:"column:collection_id;size:255" json:"collection_id"`
	GranuleID    string    `gorm:"column:granule_id;size:255" json:"granule_id"`
	Filename     string    `gorm:"column:filename;size:255" json:"filename"`
	KeyPath      string    `gorm:"column:key_path;size:1024" json:"key_path"`
	Etag         string    `gorm:"column:etag;size:100" json:"etag"`
	SizeInBytes  int64     `gorm:"column:size_in_bytes" json:"size_in_bytes"`
	LastUpdate   time.Time `gorm:"column:last_update" json:"last_update"`
}

// TableName overrides the default table name.
func (PhantomReport) TableName() string { return "phantom_reports" }

// OrphanReport is a storage object with no corresponding catalog file.
type OrphanReport struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID        int64     `gorm:"column:job_id;index" json:"job_id"`
	KeyPath      string    `gorm:"column:key_path;size:1024" json:"key_path"`
	Etag         string    `gorm:"column:etag;size:100" json:"etag"`
	SizeInBytes  int64     `gorm:"column:size_in_bytes" json:"size_in_bytes"`
	StorageClass string    `gorm:"column:storage_class;size:40" json:"storage_class"`
	LastUpdate   time.Time `gorm:"column:last_update" json:"last_update"`
}

// TableName overrides the default table name.
func (OrphanReport) TableName() string { return "orphan_reports" }

// MismatchReport is a file tracked on both sides whose metadata disagrees.
type MismatchReport struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID              int64     `gorm:"column:job_id;index" json:"job_id"`
	CollectionID       string    `gorm:"column:collection_id;size:255" json:"collection_id"`
	GranuleID          string    `gorm:"column:granule_id;size:255" json:"granule_id"`
	Filename           string    `gorm:"column:filename;size:255" json:"filename"`
	KeyPath            string    `gorm:"column:key_path;size:1024" json:"key_path"`
	CatalogEtag        string    `gorm:"column:catalog_etag;size:100" json:"catalog_etag"`
	StorageEtag        string    `gorm:"column:storage_etag;size:100" json:"storage_etag"`
	CatalogSizeInBytes int64     `gorm:"column:catalog_size_in_bytes" json:"catalog_size_in_bytes"`
	StorageSizeInBytes int64     `gorm:"column:storage_size_in_bytes" json:"storage_size_in_bytes"`
	CatalogLastUpdate  time.Time `gorm:"column:catalog_last_update" json:"catalog_last_update"`
	StorageLastUpdate  time.Time `gorm:"column:storage_last_update" json:"storage_last_update"`
	DiscrepancyType    string    `gorm:"column:discrepancy_type;size:100" json:"discrepancy_type"`
}

// TableName overrides the default table name.
func (MismatchReport) TableName() string { return "mismatch_reports" }

// ToMillis converts a timestamp to milliseconds since epoch, the wire
// representation used by every report reader.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// ToMillisPtr converts an optional timestamp, preserving nil.
func ToMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
