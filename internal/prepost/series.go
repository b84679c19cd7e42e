// Package prepost samples EDART index time series at validation plots and summarises
// the observations before and after each plot's recorded disturbance window.
package prepost

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindowDays is roughly 1.5 years.
const DefaultWindowDays = 548

// DefaultSummerMonths are preferred when picking observations.
var DefaultSummerMonths = []time.Month{time.August, time.September}

// Series is the per-date record of one plot: one row of band values per observation,
// the cloud mask of each observation and its acquisition date.
type Series struct {
	Values [][]float64
	Mask   []float64
	Dates  []time.Time
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Values)
}

func (s *Series) filter(keep func(i int) bool) *Series {
	out := &Series{}
	for i := range s.Values {
		if !keep(i) {
			continue
		}
		out.Values = append(out.Values, s.Values[i])
		if s.Mask != nil {
			out.Mask = append(out.Mask, s.Mask[i])
		}
		out.Dates = append(out.Dates, s.Dates[i])
	}
	return out
}

func (s *Series) reverse() *Series {
	n := s.Len()
	out := &Series{Values: make([][]float64, n), Dates: make([]time.Time, n)}
	if s.Mask != nil {
		out.Mask = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		out.Values[i] = s.Values[n-1-i]
		out.Dates[i] = s.Dates[n-1-i]
		if s.Mask != nil {
			out.Mask[i] = s.Mask[n-1-i]
		}
	}
	return out
}

// DropMasked keeps observations whose mask is clear (0) or at least 200.
func DropMasked(s *Series) *Series {
	return s.filter(func(i int) bool {
		return s.Mask[i] == 0 || s.Mask[i] >= 200
	})
}

// DropZeros removes observations whose values in columns [start, end) are all zero,
// that is whose range and sum are both 0. end <= start checks every column.
func DropZeros(s *Series, start, end int) *Series {
	return s.filter(func(i int) bool {
		row := s.Values[i]
		lo, hi := start, end
		if hi <= lo {
			lo, hi = 0, len(row)
		}
		if hi > len(row) {
			hi = len(row)
		}
		if lo >= hi {
			return true
		}
		cols := row[lo:hi]
		return !(floats.Max(cols)-floats.Min(cols) == 0 && floats.Sum(cols) == 0)
	})
}

// SplitPre keeps observations with d0-days < date < d0, newest first.
func SplitPre(s *Series, d0 time.Time, days int) *Series {
	from := d0.AddDate(0, 0, -days)
	return s.filter(func(i int) bool {
		return s.Dates[i].Before(d0) && s.Dates[i].After(from)
	}).reverse()
}

// SplitPost keeps observations with d1 < date < d1+days.
func SplitPost(s *Series, d1 time.Time, days int) *Series {
	to := d1.AddDate(0, 0, days)
	return s.filter(func(i int) bool {
		return s.Dates[i].After(d1) && s.Dates[i].Before(to)
	})
}

// IsSummer reports whether d falls in one of months.
func IsSummer(d time.Time, months []time.Month) bool {
	for _, m := range months {
		if d.Month() == m {
			return true
		}
	}
	return false
}

// Median returns the middle value of x, averaging the two middle values when the
// length is even. x is not modified.
func Median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}

// ColumnMedians returns the median of each column of rows.
func ColumnMedians(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	cols := len(rows[0])
	flat := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		flat = append(flat, r...)
	}
	m := mat.NewDense(len(rows), cols, flat)

	out := make([]float64, cols)
	col := make([]float64, len(rows))
	for j := range out {
		mat.Col(col, j, m)
		out[j] = Median(col)
	}
	return out
}

// DateSpanDays returns the whole days between the earliest and latest date.
func DateSpanDays(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	lo, hi := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	return int(hi.Sub(lo).Hours() / 24)
}
