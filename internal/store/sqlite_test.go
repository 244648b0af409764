package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s, err := OpenSQLite(":memory:", 0, 0)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	if _, err := s.GetLatest("UKALF"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	base := time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)
	first := run("a", "UKALF", base)
	first.Samples = 24
	first.OutputPath = "/tmp/UKALF.smet"
	second := run("b", "UKALF", base.Add(time.Hour))
	second.ForecastError = "forecast unavailable"

	for _, r := range []smet.RunResult{second, first, run("z", "OTHER", base)} {
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	latest, err := s.GetLatest("UKALF")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest.ID != "b" || latest.ForecastError != "forecast unavailable" {
		t.Fatalf("unexpected latest run: %+v", latest)
	}
	if !latest.FinishedAt.Equal(second.FinishedAt) {
		t.Fatalf("finished_at = %v, want %v", latest.FinishedAt, second.FinishedAt)
	}

	runs, err := s.GetRange("UKALF", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "a" || runs[1].ID != "b" {
		t.Fatalf("unexpected range: %+v", runs)
	}
	if runs[0].Samples != 24 || runs[0].OutputPath != "/tmp/UKALF.smet" {
		t.Fatalf("payload not preserved: %+v", runs[0])
	}

	if _, err := s.GetRange("UKALF", base.Add(5*time.Hour), base.Add(6*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStoreReplacesByID(t *testing.T) {
	s, err := OpenSQLite(":memory:", 0, 0)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	base := time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)
	r := run("a", "UKALF", base)
	_ = s.SaveRun(r)
	r.Samples = 99
	if err := s.SaveRun(r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := s.GetRange("UKALF", base, base)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(runs) != 1 || runs[0].Samples != 99 {
		t.Fatalf("expected a single replaced run, got %+v", runs)
	}
}

func TestSQLiteStorePersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	s, err := OpenSQLite(path, 0, 0)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	base := time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)
	if err := s.SaveRun(run("a", "UKALF", base)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	s.Close()

	reopened, err := OpenSQLite(path, 0, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	latest, err := reopened.GetLatest("UKALF")
	if err != nil || latest.ID != "a" {
		t.Fatalf("expected persisted run, got %+v, %v", latest, err)
	}
}

func TestSQLiteStoreMaxHistory(t *testing.T) {
	s, err := OpenSQLite(":memory:", 2, 0)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	base := time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveRun(run(id, "UKALF", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	_ = s.SaveRun(run("z", "OTHER", base))

	runs, err := s.GetRange("UKALF", base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "b" || runs[1].ID != "c" {
		t.Fatalf("expected the oldest run to be evicted, got %+v", runs)
	}
	if _, err := s.GetLatest("OTHER"); err != nil {
		t.Fatalf("other stations must be untouched: %v", err)
	}
}

func TestSQLiteStoreMaxAgeKeepsNewest(t *testing.T) {
	now := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	s, err := OpenSQLite(":memory:", 0, 24*time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	s.now = func() time.Time { return now }

	_ = s.SaveRun(run("old", "UKALF", now.Add(-72*time.Hour)))
	if latest, err := s.GetLatest("UKALF"); err != nil || latest.ID != "old" {
		t.Fatalf("newest run must survive age limit, got %+v, %v", latest, err)
	}

	_ = s.SaveRun(run("new", "UKALF", now.Add(-time.Hour)))
	runs, err := s.GetRange("UKALF", now.Add(-100*time.Hour), now)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "new" {
		t.Fatalf("expected only the fresh run, got %+v", runs)
	}
}
