// Package database provides PostgreSQL connection pool management.
//
// The scalper keeps price history, order history, reconciliation cursors and
// entry records in a single database; see package store for the schema.
package database
