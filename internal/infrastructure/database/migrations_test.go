package database

import (
	"context"
	"embed"
	"testing"
)

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

func useTestMigrations(t *testing.T) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS = testMigrationsFS
	MigrationsDir = "testdata"
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
}

func TestMigrate(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The test migration creates the widgets_test table.
	if _, err := db.ExecContext(ctx, "INSERT INTO widgets_test (name) VALUES ('clock')"); err != nil {
		t.Fatalf("migrated table not usable: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("querying schema_migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("applied migrations = %d, want 1", count)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("applied migrations after rerun = %d, want 1", count)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantDesc    string
		wantOK      bool
	}{
		{"20260110_120000_create_sensor_readings.up.sql", "20260110_120000", "create_sensor_readings", true},
		{"20260112_090000_create_frame_log.up.sql", "20260112_090000", "create_frame_log", true},
		{"bogus.up.sql", "", "", false},
	}

	for _, tt := range tests {
		version, desc, ok := parseMigrationFilename(tt.in)
		if ok != tt.wantOK || version != tt.wantVersion || desc != tt.wantDesc {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, version, desc, ok, tt.wantVersion, tt.wantDesc, tt.wantOK)
		}
	}
}
