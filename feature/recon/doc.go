// Package recon implements the disaster-recovery reconciliation engine.
//
// It reconciles a provider's object-storage inventory snapshot against the
// catalog of what should be archived, surfacing three classes of discrepancy:
//
//   - Phantom: a catalog file with no corresponding storage object
//   - Orphan: a storage object with no corresponding catalog file
//   - Mismatch: a file on both sides whose etag, size, or update time differ
//
// # Job lifecycle
//
// Each reconciliation run is a Job moving through
// PENDING -> STAGED -> GENERATING_REPORTS -> SUCCESS | ERROR. The inventory
// importer stages the provider's listing files into a job-scoped relation,
// the diff engine writes all three report sets inside a single transaction,
// and any failure while the job is non-terminal records ERROR with the
// failure text before the error propagates.
//
// # Reading reports
//
// Jobs, phantoms, orphans, and mismatches are read through paginated
// readers with a fixed page size and a page_size+1 over-fetch that yields
// an another_page flag without a COUNT query. Report timestamps are
// normalized to milliseconds since epoch.
//
// # Retention
//
// The sweeper deletes reports and jobs older than the configured retention
// window, children before parents, each delete retried independently on
// transient store failures.
package recon
