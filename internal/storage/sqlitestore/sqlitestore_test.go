package sqlitestore

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := New(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestStoreDefaultsWhenEmpty(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "records.db"))
	defer s.Close()

	if got := s.GetFloat("Today.Temp", "High", -9999); got != -9999 {
		t.Errorf("GetFloat default = %v", got)
	}
	if got := s.GetInt("Rollover", "Stamp", 0); got != 0 {
		t.Errorf("GetInt default = %v", got)
	}
	def := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	if got := s.GetTime("Today.Temp", "HighTime", def); !got.Equal(def) {
		t.Errorf("GetTime default = %v", got)
	}
}

func TestStoreRoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	stamp := time.Date(2026, 7, 15, 14, 30, 0, 0, time.UTC)

	s := openTestStore(t, path)
	s.SetFloat("Today.Temp", "High", 31.4)
	s.SetInt("Rollover", "Stamp", 20260715)
	s.SetTime("Today.Temp", "HighTime", stamp)
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s.Close()

	s = openTestStore(t, path)
	defer s.Close()
	if got := s.GetFloat("Today.Temp", "High", 0); got != 31.4 {
		t.Errorf("High after reopen = %v, want 31.4", got)
	}
	if got := s.GetInt("Rollover", "Stamp", 0); got != 20260715 {
		t.Errorf("Stamp after reopen = %v, want 20260715", got)
	}
	if got := s.GetTime("Today.Temp", "HighTime", time.Time{}); !got.Equal(stamp) {
		t.Errorf("HighTime after reopen = %v, want %v", got, stamp)
	}
}

func TestStoreOverwriteTakesLatest(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "records.db"))
	defer s.Close()

	s.SetFloat("Today.Temp", "High", 20)
	s.SetFloat("Today.Temp", "High", 25.5)
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := s.GetFloat("Today.Temp", "High", 0); got != 25.5 {
		t.Errorf("High = %v, want 25.5", got)
	}
}

func TestStoreArchiveCopiesScopeSections(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "records.db"))
	defer s.Close()

	s.SetFloat("Month.Temp", "High", 33.1)
	s.SetFloat("Month.Rain", "HighDaily", 12.2)
	s.SetFloat("Year.Temp", "High", 38.0)

	// Archive flushes on its own; no explicit Flush needed.
	if err := s.Archive("Month", "2026-07"); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	var n int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM archive WHERE scope = ? AND suffix = ?`,
		"Month", "2026-07").Scan(&n); err != nil {
		t.Fatalf("counting archive rows: %v", err)
	}
	if n != 2 {
		t.Errorf("archived rows = %d, want 2 (Year section excluded)", n)
	}

	// Live values are untouched; the reset is the aggregator's business.
	if got := s.GetFloat("Month.Temp", "High", 0); got != 33.1 {
		t.Errorf("live Month.Temp High = %v, want 33.1", got)
	}
}
