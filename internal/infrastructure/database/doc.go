// Package database manages the SQLite connection for Slate Hub.
//
// SQLite backs the parts of the hub that outlive a restart: indoor sensor
// readings and the frame delivery log. Scheduler and display state are
// deliberately NOT persisted; a cold start re-derives them from
// configuration.
//
// The connection is opened in WAL mode with a single writer connection,
// which matches SQLite's concurrency model. Schema migrations are embedded
// into the binary (see the migrations package) and applied on startup with
// Migrate.
package database
