package envi

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ENVI data type codes.
const (
	DTByte    = 1
	DTInt16   = 2
	DTInt32   = 3
	DTFloat32 = 4
	DTFloat64 = 5
	DTUint16  = 12
	DTUint32  = 13
	DTInt64   = 14
	DTUint64  = 15
)

// SizeOf returns the byte width of an ENVI data type.
func SizeOf(dataType int) (int, error) {
	switch dataType {
	case DTByte:
		return 1, nil
	case DTInt16, DTUint16:
		return 2, nil
	case DTInt32, DTUint32, DTFloat32:
		return 4, nil
	case DTFloat64, DTInt64, DTUint64:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedDataType, dataType)
}

// Raster is an opened band-sequential ENVI raster.
type Raster struct {
	DataPath string
	Header   *Header

	Bands    int
	Lines    int
	Samples  int
	DataType int
	Offset   int64
	Order    binary.ByteOrder

	fs afero.Fs
}

// Open reads the header of a .bsq file and validates its layout.
func Open(fs afero.Fs, dataPath string) (*Raster, error) {
	h, err := ReadHeader(fs, dataPath)
	if err != nil {
		return nil, err
	}

	r := &Raster{DataPath: dataPath, Header: h, fs: fs, Lines: h.Lines, Samples: h.Samples}
	if r.Lines == 0 || r.Samples == 0 {
		return nil, fmt.Errorf("%s: header lacks lines or samples", h.Path)
	}
	if r.Bands, err = h.Bands(); err != nil {
		return nil, err
	}
	if r.DataType, err = h.IntOr("data_type", DTInt16); err != nil {
		return nil, err
	}
	if _, err = SizeOf(r.DataType); err != nil {
		return nil, err
	}
	offset, err := h.IntOr("header_offset", 0)
	if err != nil {
		return nil, err
	}
	r.Offset = int64(offset)

	byteOrder, err := h.IntOr("byte_order", 0)
	if err != nil {
		return nil, err
	}
	r.Order = binary.LittleEndian
	if byteOrder == 1 {
		r.Order = binary.BigEndian
	}

	if il, ok := h.Value("interleave"); ok && !strings.EqualFold(strings.TrimSpace(il), "bsq") {
		return nil, fmt.Errorf("%s: %w (got %s)", h.Path, ErrUnsupportedInterleave, il)
	}
	return r, nil
}

// Cells returns the number of pixels per band.
func (r *Raster) Cells() int {
	return r.Lines * r.Samples
}

// ReadBand returns the pixels of the zero based band as float64, row major.
func (r *Raster) ReadBand(band int) ([]float64, error) {
	if band < 0 || band >= r.Bands {
		return nil, fmt.Errorf("%s: band %d out of range [0,%d)", r.DataPath, band, r.Bands)
	}
	size, _ := SizeOf(r.DataType)
	bandBytes := int64(r.Cells() * size)

	f, err := r.fs.Open(r.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", r.DataPath, err)
	}
	defer f.Close()

	if _, err := f.Seek(r.Offset+int64(band)*bandBytes, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek %s: %w", r.DataPath, err)
	}
	buf := make([]byte, bandBytes)
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s band %d: %w", r.DataPath, band, ErrShortRead)
		}
		return nil, fmt.Errorf("failed to read %s band %d: %w", r.DataPath, band, err)
	}

	out := make([]float64, r.Cells())
	if err := decode(buf, r.DataType, r.Order, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadBandNamed reads the single band whose name contains sub.
func (r *Raster) ReadBandNamed(sub string) ([]float64, string, error) {
	name, err := r.Header.BandNameWild(sub)
	if err != nil {
		return nil, "", err
	}
	idx, err := r.Header.BandIndex(name)
	if err != nil {
		return nil, "", err
	}
	data, err := r.ReadBand(idx)
	return data, name, err
}

// ReadAll returns every band, band after band.
func (r *Raster) ReadAll() ([]float64, error) {
	out := make([]float64, 0, r.Bands*r.Cells())
	for b := 0; b < r.Bands; b++ {
		band, err := r.ReadBand(b)
		if err != nil {
			return nil, err
		}
		out = append(out, band...)
	}
	return out, nil
}

func decode(buf []byte, dataType int, order binary.ByteOrder, out []float64) error {
	rd := bytes.NewReader(buf)
	var err error
	switch dataType {
	case DTByte:
		for i, v := range buf[:len(out)] {
			out[i] = float64(v)
		}
	case DTInt16:
		native := make([]int16, len(out))
		err = binary.Read(rd, order, native)
		for i, v := range native {
			out[i] = float64(v)
		}
	case DTUint16:
		native := make([]uint16, len(out))
		err = binary.Read(rd, order, native)
		for i, v := range native {
			out[i] = float64(v)
		}
	case DTInt32:
		native := make([]int32, len(out))
		err = binary.Read(rd, order, native)
		for i, v := range native {
			out[i] = float64(v)
		}
	case DTUint32:
		native := make([]uint32, len(out))
		err = binary.Read(rd, order, native)
		for i, v := range native {
			out[i] = float64(v)
		}
	case DTFloat32:
		native := make([]float32, len(out))
		err = binary.Read(rd, order, native)
		for i, v := range native {
			out[i] = float64(v)
		}
	case DTFloat64:
		err = binary.Read(rd, order, out)
	case DTInt64:
		native := make([]int64, len(out))
		err = binary.Read(rd, order, native)
		for i, v := range native {
			out[i] = float64(v)
		}
	case DTUint64:
		native := make([]uint64, len(out))
		err = binary.Read(rd, order, native)
		for i, v := range native {
			out[i] = float64(v)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedDataType, dataType)
	}
	return err
}

func encode(w io.Writer, dataType int, order binary.ByteOrder, data []float64) error {
	switch dataType {
	case DTByte:
		out := make([]uint8, len(data))
		for i, v := range data {
			out[i] = uint8(v)
		}
		return binary.Write(w, order, out)
	case DTInt16:
		out := make([]int16, len(data))
		for i, v := range data {
			out[i] = int16(v)
		}
		return binary.Write(w, order, out)
	case DTUint16:
		out := make([]uint16, len(data))
		for i, v := range data {
			out[i] = uint16(v)
		}
		return binary.Write(w, order, out)
	case DTInt32:
		out := make([]int32, len(data))
		for i, v := range data {
			out[i] = int32(v)
		}
		return binary.Write(w, order, out)
	case DTUint32:
		out := make([]uint32, len(data))
		for i, v := range data {
			out[i] = uint32(v)
		}
		return binary.Write(w, order, out)
	case DTFloat32:
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float32(v)
		}
		return binary.Write(w, order, out)
	case DTFloat64:
		return binary.Write(w, order, data)
	case DTInt64:
		out := make([]int64, len(data))
		for i, v := range data {
			out[i] = int64(v)
		}
		return binary.Write(w, order, out)
	case DTUint64:
		out := make([]uint64, len(data))
		for i, v := range data {
			out[i] = uint64(v)
		}
		return binary.Write(w, order, out)
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedDataType, dataType)
}

// WriteSpec describes a raster to be written with Write.
type WriteSpec struct {
	Bands    int
	Lines    int
	Samples  int
	DataType int
	// MapInfo is written verbatim as the map info list when non-empty.
	MapInfo          []string
	CoordinateSystem string
	BandNames        []string
	Description      string
	NoData           *float64
}

// Write stores data (band after band) as little endian BSQ plus its header.
func Write(fs afero.Fs, dataPath string, spec WriteSpec, data []float64) error {
	if spec.Bands <= 0 {
		spec.Bands = 1
	}
	if len(data) != spec.Bands*spec.Lines*spec.Samples {
		return fmt.Errorf("%s: %d values for %dx%dx%d raster", dataPath, len(data), spec.Bands, spec.Lines, spec.Samples)
	}
	if _, err := SizeOf(spec.DataType); err != nil {
		return err
	}

	f, err := fs.Create(dataPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dataPath, err)
	}
	w := bufio.NewWriter(f)
	if err := encode(w, spec.DataType, binary.LittleEndian, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dataPath, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dataPath, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	return afero.WriteFile(fs, HeaderPath(dataPath), []byte(FormatHeader(spec)), 0o644)
}

// FormatHeader renders the header text for spec.
func FormatHeader(spec WriteSpec) string {
	var sb strings.Builder
	sb.WriteString("ENVI\n")
	desc := spec.Description
	if desc == "" {
		desc = "edart output"
	}
	fmt.Fprintf(&sb, "description = {\n  %s}\n", desc)
	fmt.Fprintf(&sb, "samples = %d\n", spec.Samples)
	fmt.Fprintf(&sb, "lines = %d\n", spec.Lines)
	fmt.Fprintf(&sb, "bands = %d\n", spec.Bands)
	sb.WriteString("header offset = 0\n")
	sb.WriteString("file type = ENVI Standard\n")
	fmt.Fprintf(&sb, "data type = %d\n", spec.DataType)
	sb.WriteString("interleave = bsq\n")
	sb.WriteString("byte order = 0\n")
	if len(spec.MapInfo) > 0 {
		fmt.Fprintf(&sb, "map info = {%s}\n", strings.Join(spec.MapInfo, ", "))
	}
	if spec.CoordinateSystem != "" {
		fmt.Fprintf(&sb, "coordinate system string = {%s}\n", spec.CoordinateSystem)
	}
	if spec.NoData != nil && !math.IsNaN(*spec.NoData) {
		fmt.Fprintf(&sb, "data ignore value = %s\n", strconv.FormatFloat(*spec.NoData, 'f', -1, 64))
	}
	if len(spec.BandNames) > 0 {
		sb.WriteString("band names = {\n")
		for i, name := range spec.BandNames {
			sep := ","
			if i == len(spec.BandNames)-1 {
				sep = "}"
			}
			fmt.Fprintf(&sb, " %s%s\n", name, sep)
		}
	}
	return sb.String()
}
