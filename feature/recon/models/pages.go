package models

// JobRow is the reader-facing shape of one job, with timestamps in
// milliseconds since epoch for cross-language portability.
type JobRow struct {
	ID                    int64  `json:"id"`
	ArchiveLocation       string `json:"archive_location"`
	InventoryCreationTime int64  `json:"inventory_creation_time"`
	Status                string `json:"status"`
	StartTime             int64  `json:"start_time"`
	LastUpdate            int64  `json:"last_update"`
	EndTime               *int64 `json:"end_time,omitempty"`
	ErrorMessage          string `json:"error_message,omitempty"`
	StagedCount           int64  `json:"staged_count"`
}

// JobPage is one page of the jobs listing.
type JobPage struct {
	Jobs           []JobRow `json:"jobs"`
	PageIndex      int      `json:"page_index"`
	AnotherPage    bool     `json:"another_page"`
	NextCursor     string   `json:"next_cursor,omitempty"`
	PreviousCursor string   `json:"previous_cursor,omitempty"`
}

// PhantomRow is the reader-facing shape of one phantom report row.
type PhantomRow struct {
	JobID        int64  `json:"job_id"`
	CollectionID string `json:"collection_id"`
	GranuleID    string `json:"granule_id"`
	Filename     string `json:"filename"`
	KeyPath      string `json:"key_path"`
	Etag         string `json:"etag"`
	SizeInBytes  int64  `json:"size_in_bytes"`
	LastUpdate   int64  `json:"last_update"`
}

// PhantomPage is one page of the phantom listing.
type PhantomPage struct {
	Phantoms       []PhantomRow `json:"phantoms"`
	PageIndex      int          `json:"page_index"`
	AnotherPage    bool         `json:"another_page"`
	NextCursor     string       `json:"next_cursor,omitempty"`
	PreviousCursor string       `json:"previous_cursor,omitempty"`
}

// OrphanRow is the reader-facing shape of one orphan report row.
type OrphanRow struct {
	JobID        int64  `json:"job_id"`
	KeyPath      string `json:"key_path"`
	Etag         string `json:"etag"`
	SizeInBytes  int64  `json:"size_in_bytes"`
	StorageClass string `json:"storage_class"`
	LastUpdate   int64  `json:"last_update"`
}

// OrphanPage is one page of the orphan listing.
type OrphanPage struct {
	Orphans        []OrphanRow `json:"orphans"`
	PageIndex      int         `json:"page_index"`
	AnotherPage    bool        `json:"another_page"`
	NextCursor     string      `json:"next_cursor,omitempty"`
	PreviousCursor string      `json:"previous_cursor,omitempty"`
}

// MismatchRow is the reader-facing shape of one mismatch report row,
// carrying both the catalog and storage side of every compared field.
type MismatchRow struct {
	JobID              int64  `json:"job_id"`
	CollectionID       string `json:"collection_id"`
	GranuleID          string `json:"granule_id"`
	Filename           string `json:"filename"`
	KeyPath            string `json:"key_path"`
	CatalogEtag        string `json:"catalog_etag"`
	StorageEtag        string `json:"storage_etag"`
	CatalogSizeInBytes int64  `json:"catalog_size_in_bytes"`
	StorageSizeInBytes int64  `json:"storage_size_in_bytes"`
	CatalogLastUpdate  int64  `json:"catalog_last_update"`
	StorageLastUpdate  int64  `json:"storage_last_update"`
	DiscrepancyType    string `json:"discrepancy_type"`
}

// MismatchPage is one page of the mismatch listing.
type MismatchPage struct {
	Mismatches     []MismatchRow `json:"mismatches"`
	PageIndex      int           `json:"page_index"`
	AnotherPage    bool          `json:"another_page"`
	NextCursor     string        `json:"next_cursor,omitempty"`
	PreviousCursor string        `json:"previous_cursor,omitempty"`
}
