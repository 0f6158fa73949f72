package database

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	for _, table := range []string{"accounts", "profiles"} {
		var count int
		if err := db.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("Failed to query %s table: %v", table, err)
		}
	}

	if _, ok := db.Dialect().(*SQLiteDialect); !ok {
		t.Errorf("Expected SQLite dialect, got %T", db.Dialect())
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Open(nestedPath)
	if err != nil {
		t.Fatalf("Failed to open database with nested path: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nestedPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestOpenWithConfig_UnknownDriver(t *testing.T) {
	_, err := OpenWithConfig(Config{Driver: "mysql"})
	if err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestClose(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count); err == nil {
		t.Error("Expected error querying closed database")
	}
}

func TestMigration_Schema(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		table   string
		columns []string
	}{
		{"accounts", []string{"id", "username", "password_hash", "created_at", "last_login", "last_ip"}},
		{"profiles", []string{"account_id", "troops", "enforcers", "misc_buffs", "updated_at"}},
	}
	for _, tt := range tests {
		for _, col := range tt.columns {
			var exists int
			err := db.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", tt.table, col).Scan(&exists)
			if err != nil {
				t.Fatalf("Failed to check column %s.%s: %v", tt.table, col, err)
			}
			if exists == 0 {
				t.Errorf("Column %s not found in %s table", col, tt.table)
			}
		}
	}
}

func TestMigration_WALModeEnabled(t *testing.T) {
	db := setupTestDB(t)

	var mode string
	if err := db.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("Failed to read journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestMigration_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if _, err := db.CreateAccount("keeper", "password123"); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	db.Close()

	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	exists, err := db.AccountExists("keeper")
	if err != nil || !exists {
		t.Errorf("Account lost across reopen: exists=%v err=%v", exists, err)
	}
}
