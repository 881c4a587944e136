// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories and DDL bootstrappers with the
// storage package.
//
// Importing it makes the following storage kinds available at runtime:
//
//   - "postgres" (shpetl/internal/storage/postgres)
//   - "mssql"    (shpetl/internal/storage/mssql)
//   - "mysql"    (shpetl/internal/storage/mysql)
//   - "sqlite"   (shpetl/internal/storage/sqlite)
//
// Typical usage:
//
//	import _ "shpetl/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{
//	    Kind:    cfg.Storage.Kind,
//	    DSN:     cfg.Storage.DB.DSN,
//	    Table:   cfg.Storage.DB.Table,
//	    Columns: rd.Schema().Names(),
//	})
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "shpetl/internal/storage/mssql"
	_ "shpetl/internal/storage/mysql"
	_ "shpetl/internal/storage/postgres"
	_ "shpetl/internal/storage/sqlite"
)
