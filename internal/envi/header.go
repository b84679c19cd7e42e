// Package envi reads and writes ENVI raster headers (.hdr) and band-sequential (.bsq)
// binary rasters as produced by the EDART processing chain.
//
// Header files are line oriented. Scalar attributes are written as "key = value" and
// list attributes as "key = { v1, v2, ... }", where the list may continue over several
// lines and the closing brace may sit alone or after the last value. Keys are normalized
// by replacing spaces with underscores, so "band names" is looked up as "band_names".
package envi

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Header holds every attribute of an ENVI header plus the raster geometry derived
// from its map info, lines and samples entries.
type Header struct {
	// Path of the .hdr file, empty when parsed from a reader.
	Path string

	attrs map[string][]string

	// Georeferencing from map_info. Zero when HasMapInfo is false.
	HasMapInfo bool
	XMin       float64
	YMax       float64
	CellSizeX  float64
	CellSizeY  float64
	// CellSize is only set when the cell is square.
	CellSize float64

	Lines   int
	Samples int
	YMin    float64
	XMax    float64
}

// HeaderPath returns the .hdr path belonging to a raster data file.
func HeaderPath(rasterPath string) string {
	return strings.TrimSuffix(rasterPath, filepath.Ext(rasterPath)) + ".hdr"
}

// ReadHeader locates and parses the header that sits next to rasterPath.
func ReadHeader(fs afero.Fs, rasterPath string) (*Header, error) {
	hdrPath := HeaderPath(rasterPath)
	f, err := fs.Open(hdrPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open header %s: %w", hdrPath, err)
	}
	defer f.Close()

	h, err := ParseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header %s: %w", hdrPath, err)
	}
	h.Path = hdrPath
	return h, nil
}

// ParseHeader parses ENVI header text. Lines that are not "key = value" pairs are
// skipped; a list opener that cannot be split into key and value is an error.
func ParseHeader(r io.Reader) (*Header, error) {
	h := &Header{attrs: make(map[string][]string)}

	scanner := bufio.NewScanner(r)
	// coordinate system strings are long single lines
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	inList := false
	var key string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.Contains(line, " = {"):
			parts := strings.Split(line, " = ")
			if len(parts) != 2 {
				return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
			}
			key = normalizeKey(parts[0])
			value := strings.TrimLeft(parts[1], "{")
			value = strings.TrimRight(value, "}")
			value = strings.TrimSpace(strings.TrimRight(value, ","))
			h.attrs[key] = nil
			if value != "" {
				h.attrs[key] = append(h.attrs[key], value)
			}
			inList = true

		case inList:
			value := strings.TrimSpace(strings.TrimRight(line, ",}"))
			if value != "" {
				h.attrs[key] = append(h.attrs[key], value)
			}

		default:
			parts := strings.Split(line, " = ")
			if len(parts) != 2 {
				continue
			}
			h.attrs[normalizeKey(parts[0])] = []string{strings.TrimSpace(parts[1])}
		}

		if inList && strings.HasSuffix(line, "}") {
			inList = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if err := h.derive(); err != nil {
		return nil, err
	}
	return h, nil
}

func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.TrimSpace(k), " ", "_")
}

func (h *Header) derive() error {
	if info := h.List("map_info"); len(info) > 0 {
		if len(info) < 7 {
			return fmt.Errorf("%w: %d fields", ErrMissingMapInfo, len(info))
		}
		vals := make([]float64, 4)
		for i := range vals {
			v, err := strconv.ParseFloat(info[3+i], 64)
			if err != nil {
				return fmt.Errorf("%w: field %d: %v", ErrMissingMapInfo, 3+i, err)
			}
			vals[i] = v
		}
		h.HasMapInfo = true
		h.XMin, h.YMax, h.CellSizeX, h.CellSizeY = vals[0], vals[1], vals[2], vals[3]
		if h.CellSizeX == h.CellSizeY {
			h.CellSize = h.CellSizeX
		}
	}

	if _, ok := h.attrs["lines"]; ok {
		n, err := h.Int("lines")
		if err != nil {
			return err
		}
		h.Lines = n
		h.YMin = h.YMax - h.CellSizeY*float64(n)
	}
	if _, ok := h.attrs["samples"]; ok {
		n, err := h.Int("samples")
		if err != nil {
			return err
		}
		h.Samples = n
		h.XMax = h.XMin + h.CellSizeX*float64(n)
	}
	return nil
}

// Has reports whether the attribute is present.
func (h *Header) Has(key string) bool {
	_, ok := h.attrs[normalizeKey(key)]
	return ok
}

// Value returns the scalar view of an attribute: a single entry as is, several
// entries joined by ", ".
func (h *Header) Value(key string) (string, bool) {
	v, ok := h.attrs[normalizeKey(key)]
	if !ok {
		return "", false
	}
	return strings.Join(v, ", "), true
}

// List returns the comma separated items of an attribute.
func (h *Header) List(key string) []string {
	var out []string
	for _, entry := range h.attrs[normalizeKey(key)] {
		for _, item := range strings.Split(entry, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// Int returns an integer attribute.
func (h *Header) Int(key string) (int, error) {
	v, ok := h.Value(key)
	if !ok {
		return 0, fmt.Errorf("header attribute %q not found", key)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("header attribute %q: %w", key, err)
	}
	return n, nil
}

// IntOr returns an integer attribute or def when absent.
func (h *Header) IntOr(key string, def int) (int, error) {
	if !h.Has(key) {
		return def, nil
	}
	return h.Int(key)
}

// Keys returns the normalized attribute names.
func (h *Header) Keys() []string {
	keys := make([]string, 0, len(h.attrs))
	for k := range h.attrs {
		keys = append(keys, k)
	}
	return keys
}

// BandNames returns the band_names list.
func (h *Header) BandNames() []string {
	return h.List("band_names")
}

// Bands returns the band count, defaulting to 1.
func (h *Header) Bands() (int, error) {
	return h.IntOr("bands", 1)
}

// CoordinateSystem returns the WKT coordinate system string, if any.
func (h *Header) CoordinateSystem() string {
	v, _ := h.Value("coordinate_system_string")
	return v
}

// DataIgnoreValue returns the nodata value when the header declares one.
func (h *Header) DataIgnoreValue() (float64, bool) {
	v, ok := h.Value("data_ignore_value")
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// BandNameWild returns the single band name containing sub.
func (h *Header) BandNameWild(sub string) (string, error) {
	var matches []string
	for _, b := range h.BandNames() {
		if strings.Contains(b, sub) {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", sub, ErrBandNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s: %w", sub, ErrBandNotUnique)
	}
}

// BandIndex returns the zero based position of an exact band name.
func (h *Header) BandIndex(name string) (int, error) {
	for i, b := range h.BandNames() {
		if b == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s: %w", name, ErrBandNotFound)
}
