// Package store persists the per-business records the booking engine reads
// and writes: business configuration with calendar credentials, weekly
// business hours, appointment types and the local index of booked calendar
// events.
//
// Three implementations share the Store interface:
//   - Postgres, over a pgx connection pool
//   - SQLite, over database/sql with the pure-Go modernc driver
//   - Memory, for tests and local development
//
// Open selects one of them from a Config.
package store
