package envi

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func TestWriteAndReadBands(t *testing.T) {
	fs := afero.NewMemMapFs()
	nodata := -1.0
	spec := WriteSpec{
		Bands:     2,
		Lines:     2,
		Samples:   3,
		DataType:  DTInt16,
		MapInfo:   []string{"UTM", "1", "1", "246480", "4134660", "30", "30", "10", "North"},
		BandNames: []string{"Event_2010_Cal", "Event_2011_Cal"},
		NoData:    &nodata,
	}
	data := []float64{1, 2, 3, 4, 5, 6, -1, 0, 7, 8, 9, 10}

	if err := Write(fs, "/out/EVTY_PerYear_Cal.bsq", spec, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := Open(fs, "/out/EVTY_PerYear_Cal.bsq")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if r.Bands != 2 || r.Lines != 2 || r.Samples != 3 {
		t.Fatalf("shape = %dx%dx%d", r.Bands, r.Lines, r.Samples)
	}
	if r.Order != binary.LittleEndian {
		t.Error("expected little endian")
	}
	if v, ok := r.Header.DataIgnoreValue(); !ok || v != -1 {
		t.Errorf("DataIgnoreValue() = %v, %v", v, ok)
	}

	band, name, err := r.ReadBandNamed("2011")
	if err != nil {
		t.Fatalf("ReadBandNamed failed: %v", err)
	}
	if name != "Event_2011_Cal" {
		t.Errorf("band name = %s", name)
	}
	want := data[6:]
	for i := range want {
		if band[i] != want[i] {
			t.Errorf("band[%d] = %v, expected %v", i, band[i], want[i])
		}
	}

	all, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(all) != len(data) {
		t.Fatalf("ReadAll returned %d values", len(all))
	}
}

func TestReadFloat32BigEndianWithOffset(t *testing.T) {
	fs := afero.NewMemMapFs()
	hdr := "ENVI\nsamples = 2\nlines = 1\nbands = 1\nheader offset = 4\ndata type = 4\ninterleave = bsq\nbyte order = 1\n"
	if err := afero.WriteFile(fs, "/r.hdr", []byte(hdr), 0o644); err != nil {
		t.Fatal(err)
	}
	raw := []byte{0, 0, 0, 0}
	raw = binary.BigEndian.AppendUint32(raw, 0x40200000) // 2.5
	raw = binary.BigEndian.AppendUint32(raw, 0xbf800000) // -1
	if err := afero.WriteFile(fs, "/r.bsq", raw, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Open(fs, "/r.bsq")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	band, err := r.ReadBand(0)
	if err != nil {
		t.Fatalf("ReadBand failed: %v", err)
	}
	if band[0] != 2.5 || band[1] != -1 {
		t.Errorf("band = %v, expected [2.5 -1]", band)
	}
}

func TestOpenRejectsBIL(t *testing.T) {
	fs := afero.NewMemMapFs()
	hdr := "samples = 1\nlines = 1\ninterleave = bil\n"
	_ = afero.WriteFile(fs, "/r.hdr", []byte(hdr), 0o644)
	_, err := Open(fs, "/r.bsq")
	if !errors.Is(err, ErrUnsupportedInterleave) {
		t.Errorf("expected ErrUnsupportedInterleave, got %v", err)
	}
}

func TestReadBandShortFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/r.hdr", []byte("samples = 2\nlines = 2\ndata type = 2\n"), 0o644)
	_ = afero.WriteFile(fs, "/r.bsq", []byte{1, 0}, 0o644)
	r, err := Open(fs, "/r.bsq")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadBand(0); !errors.Is(err, ErrShortRead) {
		t.Errorf("expected ErrShortRead, got %v", err)
	}
}

var errDisk = errors.New("input/output error")

type failingFs struct{ afero.Fs }

func (f failingFs) Open(name string) (afero.File, error) {
	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return failingFile{file}, nil
}

type failingFile struct{ afero.File }

func (failingFile) Read([]byte) (int, error) { return 0, errDisk }

func TestReadBandKeepsIOError(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/r.hdr", []byte("samples = 2\nlines = 1\ndata type = 2\n"), 0o644)
	_ = afero.WriteFile(fs, "/r.bsq", []byte{1, 0, 2, 0}, 0o644)
	r, err := Open(fs, "/r.bsq")
	if err != nil {
		t.Fatal(err)
	}
	r.fs = failingFs{fs}

	_, err = r.ReadBand(0)
	if !errors.Is(err, errDisk) || errors.Is(err, ErrShortRead) {
		t.Errorf("ReadBand() error = %v, expected the underlying read error", err)
	}
}
