// Package database provides SQLite database connectivity for the HubLink daemon.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Connection pooling and lifecycle management
//
// The daemon stores a single small record (connection settings, device
// identity, sensor enablement), so there is no migration framework here;
// the store package creates its own schema idempotently on startup.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
package database
