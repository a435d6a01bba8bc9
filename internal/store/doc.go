// Package store persists translations in SQLite so they survive process
// restarts.
//
// Two tables are kept:
//   - translations: the symbolic result (or failure) of interpreting a
//     closure, keyed by ir.TranslationKey
//   - queries: a log of generated query text and parameter bindings
//
// Rows are written with ON CONFLICT DO NOTHING. A translation is a pure
// function of its key, so the first write wins and later writes of the
// same key are no-ops.
//
// Reads only return translations recorded by the running translator and
// encoding versions; rows from other versions are ignored until Prune
// removes them. Listings are ordered by seq ASC, key COLLATE BINARY ASC.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - a single connection, so seq assignment is serialised
package store
