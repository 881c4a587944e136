// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:parcels.db?_pragma=busy_timeout(5000)"
	//   "parcels.db" (interpreted by the driver)
	DSN string

	// Table is the target table name for inserts, e.g. "parcels".
	// FQN values such as "main.parcels" are accepted and quoted per segment.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}
