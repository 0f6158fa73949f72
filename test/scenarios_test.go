package test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lawnchairsociety/battalionsim/internal/config"
	"github.com/lawnchairsociety/battalionsim/internal/database"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
	"github.com/lawnchairsociety/battalionsim/internal/server"
)

func startAdvisor(t *testing.T, withDB bool) string {
	t.Helper()
	data, report := gamedata.LoadDir("../data")
	if !report.OK() {
		t.Fatalf("sample data failed to load: %v", report.Failed)
	}

	var db *database.Database
	if withDB {
		var err error
		db, err = database.Open(filepath.Join(t.TempDir(), "advisor.db"))
		if err != nil {
			t.Fatalf("Failed to open database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
	}

	cfg := config.DefaultConfig()
	cfg.Connections.MaxPerIP = 0
	s := server.New(cfg, data, db)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
		ts.Close()
	})
	return ts.URL
}

func TestRunAllTests(t *testing.T) {
	results := RunAllTests(startAdvisor(t, true))

	if len(results) < 17 {
		t.Errorf("ran %d scenarios, expected profile scenarios to be included", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("%s: %s", r.Name, r.Message)
		}
	}
}

func TestRunAllTests_WithoutProfiles(t *testing.T) {
	results := RunAllTests(startAdvisor(t, false))

	for _, r := range results {
		if strings.HasPrefix(r.Name, "Profile") || r.Name == "Account System" {
			t.Errorf("profile scenario %q should be skipped without storage", r.Name)
		}
		if !r.Passed {
			t.Errorf("%s: %s", r.Name, r.Message)
		}
	}
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	WriteResults(&buf, []TestResult{
		{Name: "One", Passed: true, Message: "fine"},
		{Name: "Two", Passed: false, Message: "broken"},
	})

	out := buf.String()
	for _, want := range []string{"[PASS] One: fine", "[FAIL] Two: broken", "Total: 2 | Passed: 1 | Failed: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCounterToLetters(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "a"}, {1, "a"}, {26, "z"}, {27, "aa"}, {28, "ab"}, {702, "zz"}, {703, "aaa"},
	}
	for _, tt := range tests {
		if got := counterToLetters(tt.n); got != tt.want {
			t.Errorf("counterToLetters(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
