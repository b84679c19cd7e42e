package prepost

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/logger"
	"github.com/usfs-r5/edart/internal/models"
)

// Column prefixes of the results table.
const (
	PrePrefix  = "MedianPre"
	PostPrefix = "MedianPost"
)

// Row comments of the results table.
const (
	CommentNotExtracted = "Not extracted"
	CommentMissingDates = "Missing t_pre or t_post"
	CommentEmptyWindow  = "t_pre or t_post leaves zero length time frame"
	commentShortWindow  = "Short pre or post time frame: %d"
)

// DefaultBands are the residual (z2) and raw (r2) indices sampled by default.
var DefaultBands = []string{
	"z2_NBR", "z2_NDVI", "z2_NDII", "z2_TCA", "z2_RGA",
	"r2_NBR", "r2_NDVI", "r2_NDII", "r2_TCA", "r2_RGA",
}

// AnalyzeOptions controls Analyze.
type AnalyzeOptions struct {
	Bands        []string
	SampleMin    int
	WindowDays   int
	SummerMonths []time.Month
	// DropZeros limits the all-zero check to columns [start, end).
	DropZeros [2]int
	SubDir    string
}

func (o AnalyzeOptions) withDefaults() AnalyzeOptions {
	if len(o.Bands) == 0 {
		o.Bands = DefaultBands
	}
	if o.SampleMin <= 0 {
		o.SampleMin = 5
	}
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.SummerMonths == nil {
		o.SummerMonths = DefaultSummerMonths
	}
	if o.SubDir == "" {
		o.SubDir = ExtractDir
	}
	return o
}

// Result is one row of the results table. Pre and Post are nil when no medians
// could be computed.
type Result struct {
	ROIID    string
	Pre      []float64
	Post     []float64
	Comment  string
	Details1 string
	Details2 string
}

// Header returns the results table columns: ROIID, the pre and post median of each
// band, then comment, details1 and details2.
func Header(bands []string) []string {
	out := []string{"ROIID"}
	for _, b := range bands {
		out = append(out, PrePrefix+"_"+b, PostPrefix+"_"+b)
	}
	return append(out, "comment", "details1", "details2")
}

// Record renders r in Header order.
func (r Result) Record(bands []string) []string {
	out := []string{r.ROIID}
	for i := range bands {
		pre, post := math.NaN(), math.NaN()
		if r.Pre != nil {
			pre = r.Pre[i]
		}
		if r.Post != nil {
			post = r.Post[i]
		}
		out = append(out, formatFloat(pre), formatFloat(post))
	}
	return append(out, r.Comment, r.Details1, r.Details2)
}

// Analyze summarises the extracted series of each validation row. dates gives the
// acquisition date of every extract row. Problems with a single row become its
// comment; only I/O failures and mismatched dates are returned as errors.
func Analyze(fs afero.Fs, workDir string, rows []models.ValidationRow, dates []time.Time, opts AnalyzeOptions) ([]Result, error) {
	opts = opts.withDefaults()
	results := make([]Result, 0, len(rows))

	for _, vr := range rows {
		res := Result{ROIID: vr.ROIID}

		paths := make([]string, len(opts.Bands))
		extracted := true
		for i, b := range opts.Bands {
			paths[i] = filepath.Join(workDir, ROIIDTextName(vr.ROIID, b, opts.SubDir))
			if ok, _ := afero.Exists(fs, paths[i]); !ok {
				extracted = false
			}
		}
		if !extracted {
			logger.Debug("%s: not extracted", vr.ROIID)
			res.Comment = CommentNotExtracted
			results = append(results, res)
			continue
		}
		if !vr.HasWindow() {
			logger.Debug("%s: missing t_pre or t_post", vr.ROIID)
			res.Comment = CommentMissingDates
			results = append(results, res)
			continue
		}

		values, mask, err := ReadROIIDTexts(fs, paths)
		if err != nil {
			return nil, err
		}
		if len(values) != len(dates) {
			return nil, fmt.Errorf("%s: %d extracted frames but %d dates", vr.ROIID, len(values), len(dates))
		}

		s := DropMasked(&Series{Values: values, Mask: mask, Dates: dates})
		s = DropZeros(s, opts.DropZeros[0], opts.DropZeros[1])
		pre := SplitPre(s, *vr.TPre, opts.WindowDays)
		post := SplitPost(s, *vr.TPost, opts.WindowDays)

		if pre.Len() == 0 || post.Len() == 0 {
			res.Comment = CommentEmptyWindow
			results = append(results, res)
			continue
		}

		var details1, details2 [2]int
		for j, w := range []*Series{pre, post} {
			picked, summer := pick(w, opts.SampleMin, opts.SummerMonths)
			details1[j] = summer
			medians := ColumnMedians(picked.Values)
			if j == 0 {
				res.Pre = medians
			} else {
				res.Post = medians
			}
			details2[j] = DateSpanDays(picked.Dates)
			if picked.Len() < opts.SampleMin {
				res.Comment = fmt.Sprintf(commentShortWindow, picked.Len())
			}
		}
		res.Details1 = strconv.Itoa(details1[0]) + ";" + strconv.Itoa(details1[1])
		res.Details2 = strconv.Itoa(details2[0]) + ";" + strconv.Itoa(details2[1])
		results = append(results, res)
	}
	return results, nil
}

// pick takes up to n summer observations in window order and tops them up with
// non-summer ones. It also returns how many summer observations were taken.
func pick(w *Series, n int, months []time.Month) (*Series, int) {
	summer := &Series{}
	other := &Series{}
	for i := range w.Values {
		dst := other
		if IsSummer(w.Dates[i], months) {
			dst = summer
		}
		dst.Values = append(dst.Values, w.Values[i])
		dst.Dates = append(dst.Dates, w.Dates[i])
	}

	out := &Series{}
	for i := 0; i < summer.Len() && out.Len() < n; i++ {
		out.Values = append(out.Values, summer.Values[i])
		out.Dates = append(out.Dates, summer.Dates[i])
	}
	taken := out.Len()
	for i := 0; i < other.Len() && out.Len() < n; i++ {
		out.Values = append(out.Values, other.Values[i])
		out.Dates = append(out.Dates, other.Dates[i])
	}
	return out, taken
}

// WriteResults writes the results table as CSV.
func WriteResults(fs afero.Fs, path string, bands []string, results []Result) error {
	records := make([][]string, len(results))
	for i, r := range results {
		records[i] = r.Record(bands)
	}
	return writeCSV(fs, path, Header(bands), records)
}
