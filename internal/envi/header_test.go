package envi

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

const frameHeader = `ENVI
description = {
  MATLAB export}
samples = 4
lines = 3
bands = 3
header offset = 0
data type = 2
interleave = bsq
byte order = 0
map info = {UTM, 1.000, 1.000, 246480.000, 4134660.000, 30.000, 30.000, 10, North, WGS-84}
band names = {
 z2_NBR,
 r2_NBR,
 z2_NDVI}
not a key value line
`

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader(strings.NewReader(frameHeader))
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	if !h.HasMapInfo {
		t.Fatal("expected map info")
	}
	if h.XMin != 246480 || h.YMax != 4134660 {
		t.Errorf("origin = (%v, %v), expected (246480, 4134660)", h.XMin, h.YMax)
	}
	if h.CellSize != 30 {
		t.Errorf("CellSize = %v, expected 30", h.CellSize)
	}
	if h.Lines != 3 || h.Samples != 4 {
		t.Errorf("lines/samples = %d/%d, expected 3/4", h.Lines, h.Samples)
	}
	if h.YMin != 4134660-90 {
		t.Errorf("YMin = %v, expected %v", h.YMin, 4134660-90)
	}
	if h.XMax != 246480+120 {
		t.Errorf("XMax = %v, expected %v", h.XMax, 246480+120)
	}

	names := h.BandNames()
	if len(names) != 3 || names[0] != "z2_NBR" || names[2] != "z2_NDVI" {
		t.Errorf("BandNames() = %v", names)
	}

	if v, ok := h.Value("header offset"); !ok || v != "0" {
		t.Errorf("Value(header offset) = %q, %v", v, ok)
	}
	if v, ok := h.Value("description"); !ok || v != "MATLAB export" {
		t.Errorf("description = %q, expected single element list unwrapped", v)
	}
	if h.Has("not_a_key_value_line") {
		t.Error("unparsable line should be skipped")
	}
}

func TestParseHeaderNonSquareCell(t *testing.T) {
	text := "map info = {UTM, 1, 1, 0, 100, 30, 25}\nlines = 2\n"
	h, err := ParseHeader(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if h.CellSize != 0 {
		t.Errorf("CellSize = %v, expected unset for non-square cells", h.CellSize)
	}
	if h.YMin != 50 {
		t.Errorf("YMin = %v, expected 50", h.YMin)
	}
}

func TestParseHeaderMalformedList(t *testing.T) {
	_, err := ParseHeader(strings.NewReader("band names = { a = {b}\n"))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestBandNameWild(t *testing.T) {
	h, err := ParseHeader(strings.NewReader(frameHeader))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		sub     string
		want    string
		wantErr error
	}{
		{"r2_NBR", "r2_NBR", nil},
		{"NDVI", "z2_NDVI", nil},
		{"NBR", "", ErrBandNotUnique},
		{"TCA", "", ErrBandNotFound},
	}

	for _, tt := range tests {
		got, err := h.BandNameWild(tt.sub)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BandNameWild(%q) error = %v, expected %v", tt.sub, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("BandNameWild(%q) = %q, %v, expected %q", tt.sub, got, err, tt.want)
		}
	}
}

func TestReadHeaderUsesSiblingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/scene/FR_2010.08.15_12.hdr", []byte(frameHeader), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := ReadHeader(fs, "/scene/FR_2010.08.15_12.bsq")
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if h.Path != "/scene/FR_2010.08.15_12.hdr" {
		t.Errorf("Path = %s", h.Path)
	}
}
