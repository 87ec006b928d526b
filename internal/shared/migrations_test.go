package shared

import (
	"testing"
)

func TestMigrations(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i, m := range migrations {
			if m.Up == "" {
				t.Errorf("migration %d missing up SQL", m.Version)
			}
			if m.Down == "" {
				t.Errorf("migration %d missing down SQL", m.Version)
			}
			if i > 0 && migrations[i-1].Version >= m.Version {
				t.Error("migrations should be sorted by version")
			}
		}
	})

	t.Run("RunMigrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='cached_tracks'").Scan(&name)
		if err != nil {
			t.Fatalf("cached_tracks table should exist: %v", err)
		}

		// Running again is a no-op
		if err := RunMigrations(db); err != nil {
			t.Fatalf("re-running migrations should succeed: %v", err)
		}
	})

	t.Run("RollbackMigration", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='cached_tracks'").Scan(&name)
		if err == nil {
			t.Error("cached_tracks table should be dropped after rollback")
		}
	})

	t.Run("RollbackMigration with no migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when no migrations applied")
		}
	})
}
