package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/usfs-r5/edart/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger", "runs.db"), 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRun(id string, started time.Time) *models.Run {
	return &models.Run{
		ID:        id,
		Kind:      models.KindFlatten,
		Scene:     "/data/p044r034_2018/envi_aux/TDIS/TDISm__v2",
		Options:   `{"method":"last"}`,
		Status:    models.RunRunning,
		StartedAt: started,
	}
}

func TestStorage_AddAndGetRun(t *testing.T) {
	s := newTestStorage(t)
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.AddRun(testRun("run-1", started)); err != nil {
		t.Fatalf("AddRun failed: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Scene != "/data/p044r034_2018/envi_aux/TDIS/TDISm__v2" || got.Options != `{"method":"last"}` {
		t.Errorf("Unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("Expected started at %v, got %v", started, got.StartedAt)
	}
	if got.FinishedAt != nil {
		t.Errorf("Expected running run without finished at, got %v", got.FinishedAt)
	}

	if err := s.AddRun(testRun("run-1", started)); err == nil {
		t.Error("Expected duplicate ID to fail")
	}
}

func TestStorage_AddRunValidates(t *testing.T) {
	s := newTestStorage(t)
	run := testRun("", time.Now())
	if err := s.AddRun(run); err == nil {
		t.Error("Expected invalid run to be rejected")
	}
}

func TestStorage_GetRunNotFound(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if err := s.FinishRun("missing", models.RunDone, "", 0, "", time.Now()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound from FinishRun, got %v", err)
	}
}

func TestStorage_FinishRun(t *testing.T) {
	s := newTestStorage(t)
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.AddRun(testRun("run-1", started)); err != nil {
		t.Fatal(err)
	}

	finished := started.Add(90 * time.Second)
	if err := s.FinishRun("run-1", models.RunDone, "/work/flat", 14, "", finished); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RunDone || got.Outputs != 14 || got.Workspace != "/work/flat" {
		t.Errorf("Unexpected finished run: %+v", got)
	}
	if got.Duration() != 90*time.Second {
		t.Errorf("Expected duration 90s, got %v", got.Duration())
	}

	if err := s.FinishRun("run-1", models.RunDone, "", 0, "", started.Add(-time.Hour)); err == nil {
		t.Error("Expected finish before start to be rejected")
	}
}

func TestStorage_ListRuns(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := testRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
		if i%2 == 1 {
			run.Kind = models.KindPrePost
		}
		if err := s.AddRun(run); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		kind    string
		limit   int
		wantIDs []string
	}{
		{"all kinds newest first", "", 3, []string{"run-4", "run-3", "run-2"}},
		{"filter by kind", models.KindPrePost, 10, []string{"run-3", "run-1"}},
		{"default limit", "", 0, []string{"run-4", "run-3", "run-2", "run-1", "run-0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(tt.kind, tt.limit)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("Expected %v, got %v", tt.wantIDs, ids)
			}
		})
	}
}

func TestStorage_RotateRuns(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.AddRun(testRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.RotateRuns(2); err != nil {
		t.Fatalf("RotateRuns failed: %v", err)
	}
	runs, _ := s.ListRuns("", 10)
	if len(runs) != 2 || runs[1].ID != "run-3" {
		t.Errorf("Expected run-4 and run-3 to survive, got %+v", runs)
	}
}

func TestStorage_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := New(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddRun(testRun("run-1", time.Now())); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := New(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if _, err := s2.GetRun("run-1"); err != nil {
		t.Errorf("GetRun after reopen failed: %v", err)
	}
}

func TestStorage_EmptyFilePathUsesTmpDir(t *testing.T) {
	s, err := New("", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	expectedSuffix := filepath.Join("edart", "runs.db")
	if !strings.HasSuffix(s.Path(), expectedSuffix) {
		t.Errorf("Expected file path to end with '%s', got '%s'", expectedSuffix, s.Path())
	}
}
