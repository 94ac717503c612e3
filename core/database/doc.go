// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly configure
// MySQL connections based on the application's configuration.
//
// # Connect
//
// The Connect function establishes a connection to the catalog database that backs
// the reconciliation tables. Connection setup is independent of the logical schema;
// the schema inspector below is what ties the connection to a concrete table shape.
//
// # Error Classification
//
// IsTransient separates operational store errors (connectivity blips, lock waits,
// timeouts) from logic errors. The retry executor in core/retry uses this predicate
// to decide whether an operation is worth re-attempting.
//
// # Schema Inspection
//
// GetTableColumns retrieves the column definitions for a table. The inventory
// importer uses it to verify that a freshly created staging relation matches the
// manifest's declared column schema before bulk loading rows into it.
//
// # Identifiers
//
// Staging relations are named per job, so their names cannot be parameterized by
// the driver. ValidateIdentifier enforces an allow-list pattern on any identifier
// that has to be interpolated into SQL text.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "recon_jobs")
package database
