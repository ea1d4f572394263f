package database

import (
	"path/filepath"
	"testing"
)

func TestOpenMigrates(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	v, err := Version(db)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 3 {
		t.Errorf("expected schema version 3, got %d", v)
	}

	for _, table := range []string{"users", "households", "household_members", "pantry_items", "invites"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "larder.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO pantry_items (household_id, name) VALUES (999, 'milk')`)
	if err == nil {
		t.Error("expected foreign key violation for unknown household")
	}
}

func TestStatusConstraint(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	res, err := db.Exec(`INSERT INTO households (name) VALUES ('Home')`)
	if err != nil {
		t.Fatalf("insert household: %v", err)
	}
	hid, _ := res.LastInsertId()
	if _, err := db.Exec(`INSERT INTO pantry_items (household_id, name, status) VALUES (?, 'milk', 'gone')`, hid); err == nil {
		t.Error("expected check constraint to reject unknown status")
	}
}
