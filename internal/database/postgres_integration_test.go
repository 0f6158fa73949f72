package database

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
)

// getPostgresTestConfig returns a PostgreSQL config when BSIM_TEST_POSTGRES
// is set. Connection settings come from:
//
//	BSIM_TEST_POSTGRES_HOST (default: localhost)
//	BSIM_TEST_POSTGRES_PORT (default: 5432)
//	BSIM_TEST_POSTGRES_USER (default: battalionsim)
//	BSIM_TEST_POSTGRES_PASSWORD (default: battalionsim)
//	BSIM_TEST_POSTGRES_DATABASE (default: battalionsim_test)
func getPostgresTestConfig() *Config {
	if os.Getenv("BSIM_TEST_POSTGRES") == "" {
		return nil
	}

	env := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	port, err := strconv.Atoi(env("BSIM_TEST_POSTGRES_PORT", "5432"))
	if err != nil {
		port = 5432
	}

	cfg := Config{Driver: string(DialectPostgres), Postgres: DefaultPostgresConfig()}
	cfg.Postgres.Host = env("BSIM_TEST_POSTGRES_HOST", "localhost")
	cfg.Postgres.Port = port
	cfg.Postgres.User = env("BSIM_TEST_POSTGRES_USER", "battalionsim")
	cfg.Postgres.Password = env("BSIM_TEST_POSTGRES_PASSWORD", "battalionsim")
	cfg.Postgres.Database = env("BSIM_TEST_POSTGRES_DATABASE", "battalionsim_test")
	cfg.Postgres.MaxOpenConns = 10
	cfg.Postgres.ConnMaxLifetime = time.Minute
	return &cfg
}

func setupPostgresTestDB(t *testing.T) *Database {
	t.Helper()
	cfg := getPostgresTestConfig()
	if cfg == nil {
		t.Skip("Skipping PostgreSQL test: BSIM_TEST_POSTGRES not set")
	}

	db, err := OpenWithConfig(*cfg)
	if err != nil {
		t.Fatalf("Failed to open PostgreSQL database: %v", err)
	}

	clean := func() {
		for _, table := range []string{"profiles", "accounts"} {
			if _, err := db.db.Exec("DELETE FROM " + table); err != nil {
				t.Logf("Could not clean table %s: %v", table, err)
			}
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		db.Close()
	})
	return db
}

func TestPostgres_OpenWithConfig(t *testing.T) {
	db := setupPostgresTestDB(t)

	if _, ok := db.Dialect().(*PostgresDialect); !ok {
		t.Errorf("Expected PostgreSQL dialect, got %T", db.Dialect())
	}
	if got := db.DB().Stats().MaxOpenConnections; got != 10 {
		t.Errorf("Expected MaxOpenConns 10, got %d", got)
	}
}

func TestPostgres_AccountsAndProfiles(t *testing.T) {
	db := setupPostgresTestDB(t)

	account, err := db.CreateAccount("commander", "Password123")
	if err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	if account.ID == 0 {
		t.Error("Expected RETURNING to supply the account ID")
	}

	if _, err := db.CreateAccount("COMMANDER", "Password123"); !errors.Is(err, ErrAccountExists) {
		t.Errorf("Expected citext duplicate to be rejected, got: %v", err)
	}

	if _, err := db.ValidateLogin("Commander", "Password123", "10.0.0.1"); err != nil {
		t.Errorf("Case-insensitive login failed: %v", err)
	}

	profile := Profile{
		Troops:    []battalion.TroopEntry{{Type: "Biker", Tier: "T4", Quantity: 900}},
		MiscBuffs: battalion.TrainingCenter(30),
	}
	if err := db.SaveProfile(account.ID, profile); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}
	got, err := db.GetProfile(account.ID)
	if err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if len(got.Troops) != 1 || !reflect.DeepEqual(got.MiscBuffs, battalion.TrainingCenter(30)) {
		t.Errorf("Unexpected profile %+v", got)
	}
}

func TestPostgres_ConcurrentWrites(t *testing.T) {
	db := setupPostgresTestDB(t)

	const workers = 5
	const perWorker = 3

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := db.CreateAccount(fmt.Sprintf("user_%d_%d", id, j), "Password123"); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		t.Fatalf("Failed to count accounts: %v", err)
	}
	if count != workers*perWorker {
		t.Errorf("Expected %d accounts, got %d", workers*perWorker, count)
	}
}
