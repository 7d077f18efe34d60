package migrations

import "embed"

// Postgres holds the Postgres schema migrations, applied in lexicographic order.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the SQLite schema migrations, applied in lexicographic order.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
