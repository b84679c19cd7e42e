package raster

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/envi"
)

func testDesc(rows, cols int) Desc {
	return Desc{
		XMin:     246480,
		YMin:     4134660 - 30*float64(rows),
		CellSize: 30,
		Width:    cols,
		Height:   rows,
		MapInfo:  []string{"UTM", "1", "1", "0", "0", "30", "30", "10", "North", "WGS-84"},
	}
}

func TestStackReductions(t *testing.T) {
	s := NewStack(3, 1, 2)
	_ = s.SetFrame(0, []float64{1, 9})
	_ = s.SetFrame(1, []float64{5, -2})
	_ = s.SetFrame(2, []float64{3, 4})

	tests := []struct {
		name string
		got  *Grid
		want []float64
	}{
		{"max", s.MaxFrames(), []float64{5, 9}},
		{"min", s.MinFrames(), []float64{1, -2}},
		{"sum", s.SumFrames(), []float64{9, 11}},
	}
	for _, tt := range tests {
		for i := range tt.want {
			if tt.got.Data[i] != tt.want[i] {
				t.Errorf("%s[%d] = %v, expected %v", tt.name, i, tt.got.Data[i], tt.want[i])
			}
		}
	}

	if px := s.Pixel(0, 1); px[0] != 9 || px[1] != -2 || px[2] != 4 {
		t.Errorf("Pixel(0,1) = %v", px)
	}
}

func TestStackGridsShapeMismatch(t *testing.T) {
	_, err := StackGrids([]*Grid{NewGrid(2, 2), NewGrid(2, 3)})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestDescFromHeader(t *testing.T) {
	h := &envi.Header{HasMapInfo: true, XMin: 100, YMin: 10, YMax: 70, CellSizeX: 30, CellSizeY: 30, Lines: 2, Samples: 3}
	d, err := DescFromHeader(h)
	if err != nil {
		t.Fatal(err)
	}
	if d.XMax() != 190 || d.YMax() != 70 {
		t.Errorf("extent max = (%v, %v), expected (190, 70)", d.XMax(), d.YMax())
	}
	gt := d.GeoTransform()
	if gt[0] != 100 || gt[3] != 70 || gt[5] != -30 {
		t.Errorf("GeoTransform() = %v", gt)
	}

	h.CellSizeY = 25
	if _, err := DescFromHeader(h); !errors.Is(err, ErrNonSquareCell) {
		t.Errorf("expected ErrNonSquareCell, got %v", err)
	}
	if _, err := DescFromHeader(&envi.Header{}); !errors.Is(err, envi.ErrMissingMapInfo) {
		t.Errorf("expected ErrMissingMapInfo, got %v", err)
	}
}

func TestFilesWriteSkipsExisting(t *testing.T) {
	files := NewFiles(afero.NewMemMapFs())
	desc := testDesc(2, 2)
	g := &Grid{Rows: 2, Cols: 2, Data: []float64{1, 2, 3, -1}}

	written, err := files.WriteGrid("/out/Event_2010_Cal.bsq", g, desc, WriteOptions{DataType: Int16, NoData: NoData(-1)})
	if err != nil || !written {
		t.Fatalf("first write = %v, %v", written, err)
	}

	other := &Grid{Rows: 2, Cols: 2, Data: []float64{7, 7, 7, 7}}
	written, err = files.WriteGrid("/out/Event_2010_Cal.bsq", other, desc, WriteOptions{DataType: Int16})
	if err != nil || written {
		t.Fatalf("second write = %v, %v, expected skip", written, err)
	}

	back, backDesc, err := files.ReadGrid("/out/Event_2010_Cal.bsq")
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range g.Data {
		if back.Data[i] != v {
			t.Errorf("Data[%d] = %v, expected %v", i, back.Data[i], v)
		}
	}
	if backDesc.XMin != desc.XMin || backDesc.YMin != desc.YMin || backDesc.CellSize != 30 {
		t.Errorf("desc round trip = %+v", backDesc)
	}
}

func TestFilesWriteStackBandNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := NewFiles(fs)
	s := NewStack(2, 1, 2)
	names := []string{"Event_2010_Cal", "Event_2011_Cal"}

	if _, err := files.WriteStack("/out/stack.bsq", s, testDesc(1, 2), WriteOptions{BandNames: names[:1]}); err == nil {
		t.Error("expected error for band name count mismatch")
	}
	if _, err := files.WriteStack("/out/stack.bsq", s, testDesc(1, 2), WriteOptions{BandNames: names}); err != nil {
		t.Fatal(err)
	}
	h, err := envi.ReadHeader(fs, "/out/stack.bsq")
	if err != nil {
		t.Fatal(err)
	}
	if got := h.BandNames(); len(got) != 2 || got[1] != "Event_2011_Cal" {
		t.Errorf("BandNames() = %v", got)
	}
}

func TestFilesUnknownExtension(t *testing.T) {
	files := NewFiles(afero.NewMemMapFs())
	_, err := files.WriteGrid("/out/x.xyz", NewGrid(1, 1), testDesc(1, 1), WriteOptions{})
	if !errors.Is(err, ErrNoDriver) {
		t.Errorf("expected ErrNoDriver, got %v", err)
	}
}

func TestCombine(t *testing.T) {
	a := &Grid{Rows: 1, Cols: 5, Data: []float64{1, 1, 2, -9, 1}}
	b := &Grid{Rows: 1, Cols: 5, Data: []float64{3, 4, 3, 3, 3}}

	out, table, err := Combine([]*Grid{a, b}, -9)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 3, CombineNoData, 1}
	for i := range want {
		if out.Data[i] != want[i] {
			t.Errorf("code[%d] = %v, expected %v", i, out.Data[i], want[i])
		}
	}
	if len(table) != 3 {
		t.Fatalf("len(table) = %d, expected 3", len(table))
	}
	if table[2].Values[0] != 2 || table[2].Values[1] != 3 {
		t.Errorf("table[2] = %+v", table[2])
	}
	if CombineDataType(len(table)) != Uint8 {
		t.Errorf("CombineDataType(3) = %s", CombineDataType(3))
	}
}

func TestCrop(t *testing.T) {
	s := NewStack(1, 4, 4)
	for i := range s.Data {
		s.Data[i] = float64(i)
	}
	out, desc, err := Crop(s, testDesc(4, 4), 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{5, 6, 9, 10}
	for i := range want {
		if out.Data[i] != want[i] {
			t.Errorf("Data[%d] = %v, expected %v", i, out.Data[i], want[i])
		}
	}
	if desc.Width != 2 || desc.Height != 2 || desc.XMin != 246480+30 {
		t.Errorf("desc = %+v", desc)
	}
	if _, _, err := Crop(s, testDesc(4, 4), 2); err == nil {
		t.Error("expected error when crop consumes the raster")
	}
}
