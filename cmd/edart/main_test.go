package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/config"
	"github.com/usfs-r5/edart/internal/envi"
	"github.com/usfs-r5/edart/internal/models"
	"github.com/usfs-r5/edart/internal/raster"
	"github.com/usfs-r5/edart/internal/storage"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	fs := afero.NewMemMapFs()
	return &app{cfg: cfg, fs: fs, files: raster.NewFiles(fs)}
}

func writeGrid(t *testing.T, fs afero.Fs, path string, data []float64) {
	t.Helper()
	spec := envi.WriteSpec{
		Lines: 2, Samples: 3, DataType: envi.DTInt16,
		MapInfo: []string{"UTM", "1", "1", "500000", "4100000", "30", "30", "10", "North"},
	}
	if err := envi.Write(fs, path, spec, data); err != nil {
		t.Fatal(err)
	}
}

func TestCombine(t *testing.T) {
	a := newTestApp(t)
	writeGrid(t, a.fs, "/in/a.bsq", []float64{1, 1, 2, 0, 2, 1})
	writeGrid(t, a.fs, "/in/b.bsq", []float64{5, 5, 6, 5, 6, 6})

	res, err := a.combine("/out/combo.bsq", combineOptions{Inputs: []string{"/in/a.bsq", "/in/b.bsq"}})
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if res.Outputs != 2 || res.Skipped {
		t.Errorf("unexpected outcome: %+v", res)
	}

	g, _, err := a.files.ReadGrid("/out/combo.bsq")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 1, 2, 0, 2, 3}
	for i, v := range want {
		if g.Data[i] != v {
			t.Errorf("combo = %v, expected %v", g.Data, want)
			break
		}
	}

	table, _ := afero.ReadFile(a.fs, "/out/combo.csv")
	if !strings.HasPrefix(string(table), "Code,a,b\n1,1,5\n2,2,6\n3,1,6\n") {
		t.Errorf("table = %q", table)
	}

	res, err = a.combine("/out/combo.bsq", combineOptions{Inputs: []string{"/in/a.bsq", "/in/b.bsq"}})
	if err != nil || !res.Skipped {
		t.Errorf("second combine = %+v, %v; expected skip", res, err)
	}
}

func TestRunOneRecordsStatus(t *testing.T) {
	a := newTestApp(t)
	store, err := storage.New(filepath.Join(t.TempDir(), "runs.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	a.store = store

	tests := []struct {
		name   string
		out    outcome
		err    error
		status string
	}{
		{"done", outcome{Outputs: 3}, nil, models.RunDone},
		{"skipped", outcome{Skipped: true}, nil, models.RunSkipped},
		{"failed", outcome{}, errors.New("no match found"), models.RunFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := a.runOne(models.KindCombine, "/out/"+tt.name, "{}", func(string) (outcome, error) {
				return tt.out, tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Errorf("runOne error = %v, expected %v", err, tt.err)
			}
			stored, gerr := store.GetRun(run.ID)
			if gerr != nil {
				t.Fatal(gerr)
			}
			if stored.Status != tt.status || stored.FinishedAt == nil {
				t.Errorf("stored run = %+v, expected status %s", stored, tt.status)
			}
		})
	}
}

func TestSceneArgs(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.sceneArgs(nil); err == nil {
		t.Error("expected error without scenes")
	}
	a.cfg.Scenes.Paths = []string{"/data/s1"}
	if got, _ := a.sceneArgs(nil); len(got) != 1 {
		t.Errorf("sceneArgs = %v", got)
	}
	if got, _ := a.sceneArgs([]string{"/x", "/y"}); len(got) != 2 {
		t.Errorf("sceneArgs = %v", got)
	}
}
