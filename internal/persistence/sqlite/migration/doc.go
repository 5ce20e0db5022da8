// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (for example "001_create_cases.sql") and are read from an fs.FS, which lets
// the storage package embed them in the binary. Applied versions are tracked
// in a schema_migrations table so every file runs exactly once, each inside
// its own transaction.
package migration
