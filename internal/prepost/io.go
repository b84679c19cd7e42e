package prepost

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/im7mortal/UTM"
	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/models"
)

// ExtractDir is the default folder, below the working folder, for per-plot extracts.
const ExtractDir = "extract_files"

var ErrMissingColumn = errors.New("missing column")

// ROIIDTextName returns the extract file of a plot and band: sub/band/band__roi.txt,
// or band/band__roi.txt when sub is empty.
func ROIIDTextName(roi, band, sub string) string {
	name := band + "__" + roi + ".txt"
	if sub == "" {
		return filepath.Join(band, name)
	}
	return filepath.Join(sub, band, name)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func readCSV(fs afero.Fs, path string) (header []string, records [][]string, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err = r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	records, err = r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return header, records, nil
}

func writeCSV(fs afero.Fs, path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// columns maps lower-cased header names to their position.
func columns(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		out[strings.ToLower(h)] = i
	}
	return out
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// WriteROIIDText writes the Index,Mask series of one plot.
func WriteROIIDText(fs afero.Fs, path string, index, mask []float64) error {
	if len(index) != len(mask) {
		return fmt.Errorf("%s: %d index values for %d mask values", path, len(index), len(mask))
	}
	records := make([][]string, len(index))
	for i := range index {
		records[i] = []string{formatFloat(index[i]), formatFloat(mask[i])}
	}
	return writeCSV(fs, path, []string{"Index", "Mask"}, records)
}

// ReadROIIDTexts reads one extract file per band. The Index columns become the
// band columns of the returned rows; the mask comes from the first file.
func ReadROIIDTexts(fs afero.Fs, paths []string) ([][]float64, []float64, error) {
	var rows [][]float64
	var mask []float64
	for b, p := range paths {
		header, records, err := readCSV(fs, p)
		if err != nil {
			return nil, nil, err
		}
		cols := columns(header)
		ii, ok := cols["index"]
		if !ok {
			return nil, nil, fmt.Errorf("%s: %w Index", p, ErrMissingColumn)
		}
		mi, ok := cols["mask"]
		if !ok {
			return nil, nil, fmt.Errorf("%s: %w Mask", p, ErrMissingColumn)
		}

		if b == 0 {
			rows = make([][]float64, len(records))
			for i := range rows {
				rows[i] = make([]float64, len(paths))
			}
			mask = make([]float64, len(records))
		} else if len(records) != len(rows) {
			return nil, nil, fmt.Errorf("%s: %d rows, expected %d", p, len(records), len(rows))
		}

		for i, rec := range records {
			v, err := parseFloat(field(rec, ii))
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d: %w", p, i+2, err)
			}
			rows[i][b] = v
			if b == 0 {
				if mask[i], err = parseFloat(field(rec, mi)); err != nil {
					return nil, nil, fmt.Errorf("%s row %d: %w", p, i+2, err)
				}
			}
		}
	}
	return rows, mask, nil
}

// ParseDotDate parses yyyy.mm.dd, accepting unpadded month and day.
func ParseDotDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: expected yyyy.mm.dd", s)
	}
	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		ymd[i] = n
	}
	if ymd[1] < 1 || ymd[1] > 12 || ymd[2] < 1 || ymd[2] > 31 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.UTC), nil
}

// ReadDates reads one yyyy.mm.dd date per line. Blank lines are ignored.
func ReadDates(fs afero.Fs, path string) ([]time.Time, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var out []time.Time
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		d, err := ParseDotDate(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// DatesFile is written next to the extracts and lists the date of every extract row.
const DatesFile = "lstdates.txt"

// WriteDates writes one yyyy.mm.dd token per line.
func WriteDates(fs afero.Fs, path string, tokens []string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	data := strings.Join(tokens, "\n")
	if len(tokens) > 0 {
		data += "\n"
	}
	if err := afero.WriteFile(fs, path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DateTokens renders dates as the yyyy.mm.dd tokens used in frame names.
func DateTokens(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006.01.02")
	}
	return out
}

// CoordinateOptions controls how geographic sample coordinates are projected.
type CoordinateOptions struct {
	// Zone is the scene's UTM zone. Zero accepts whatever zone the point falls in.
	Zone     int
	Northern bool
}

// ReadSamples reads plot locations from a CSV with an ROIID column and either
// projected x,y or geographic lat,lon columns.
func ReadSamples(fs afero.Fs, path string, co CoordinateOptions) ([]models.Sample, error) {
	header, records, err := readCSV(fs, path)
	if err != nil {
		return nil, err
	}
	cols := columns(header)
	ri, ok := cols["roiid"]
	if !ok {
		return nil, fmt.Errorf("%s: %w ROIID", path, ErrMissingColumn)
	}
	xi, hasX := cols["x"]
	yi, hasY := cols["y"]
	lati, hasLat := cols["lat"]
	loni, hasLon := cols["lon"]
	projected := hasX && hasY
	if !projected && !(hasLat && hasLon) {
		return nil, fmt.Errorf("%s: %w x,y or lat,lon", path, ErrMissingColumn)
	}

	out := make([]models.Sample, 0, len(records))
	for i, rec := range records {
		s := models.Sample{ROIID: field(rec, ri)}
		if s.ROIID == "" {
			// skipped at extraction
			out = append(out, s)
			continue
		}
		if projected {
			if s.X, err = parseFloat(field(rec, xi)); err != nil {
				return nil, fmt.Errorf("%s row %d: x: %w", path, i+2, err)
			}
			if s.Y, err = parseFloat(field(rec, yi)); err != nil {
				return nil, fmt.Errorf("%s row %d: y: %w", path, i+2, err)
			}
		} else {
			lat, err := parseFloat(field(rec, lati))
			if err != nil {
				return nil, fmt.Errorf("%s row %d: lat: %w", path, i+2, err)
			}
			lon, err := parseFloat(field(rec, loni))
			if err != nil {
				return nil, fmt.Errorf("%s row %d: lon: %w", path, i+2, err)
			}
			easting, northing, zone, _, err := UTM.FromLatLon(lat, lon, co.Northern)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
			}
			if co.Zone != 0 && zone != co.Zone {
				return nil, fmt.Errorf("%s row %d: point falls in UTM zone %d, scene is zone %d", path, i+2, zone, co.Zone)
			}
			s.X, s.Y = easting, northing
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		out = append(out, s)
	}
	return out, nil
}

var validationLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
}

// parseValidationDate returns nil for blank or NaN/NaT cells.
func parseValidationDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "nat", "na":
		return nil, nil
	}
	if strings.Count(s, ".") == 2 {
		d, err := ParseDotDate(s)
		return &d, err
	}
	for _, layout := range validationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", s)
}

// ReadValidation reads ROIID,t_pre,t_post rows. Missing dates stay nil.
func ReadValidation(fs afero.Fs, path string) ([]models.ValidationRow, error) {
	header, records, err := readCSV(fs, path)
	if err != nil {
		return nil, err
	}
	cols := columns(header)
	idx := make(map[string]int, 3)
	for _, name := range []string{"roiid", "t_pre", "t_post"} {
		i, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w %s", path, ErrMissingColumn, name)
		}
		idx[name] = i
	}

	out := make([]models.ValidationRow, 0, len(records))
	for i, rec := range records {
		row := models.ValidationRow{ROIID: field(rec, idx["roiid"])}
		if row.TPre, err = parseValidationDate(field(rec, idx["t_pre"])); err != nil {
			return nil, fmt.Errorf("%s row %d: t_pre: %w", path, i+2, err)
		}
		if row.TPost, err = parseValidationDate(field(rec, idx["t_post"])); err != nil {
			return nil, fmt.Errorf("%s row %d: t_post: %w", path, i+2, err)
		}
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// TransformRGA undoes the RGA scaling and converts degrees to a slope:
// tan(pi * (v/scale) / 180).
func TransformRGA(v, scale float64) float64 {
	return math.Tan(math.Pi * (v / scale) / 180)
}

// AddTransformedRGA copies the results CSV at in to out, appending a <column>_T column
// with TransformRGA applied for the pre and post medians of band.
func AddTransformedRGA(fs afero.Fs, in, out, band string, scale float64) error {
	header, records, err := readCSV(fs, in)
	if err != nil {
		return err
	}
	cols := columns(header)
	var src []int
	for _, prefix := range []string{PrePrefix, PostPrefix} {
		name := prefix + "_" + band
		i, ok := cols[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("%s: %w %s", in, ErrMissingColumn, name)
		}
		src = append(src, i)
		header = append(header, name+"_T")
	}

	for r, rec := range records {
		for _, i := range src {
			v, err := parseFloat(field(rec, i))
			if err != nil {
				return fmt.Errorf("%s row %d: %w", in, r+2, err)
			}
			if !math.IsNaN(v) {
				v = TransformRGA(v, scale)
			}
			rec = append(rec, formatFloat(v))
		}
		records[r] = rec
	}
	return writeCSV(fs, out, header, records)
}
