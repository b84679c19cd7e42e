package prepost

import (
	"math"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestROIIDTextName(t *testing.T) {
	tests := []struct {
		roi, band, sub string
		want           string
	}{
		{"R1", "NBR", "extract_files", "extract_files/NBR/NBR__R1.txt"},
		{"R1", "z2_NBR", "", "z2_NBR/z2_NBR__R1.txt"},
	}
	for _, tt := range tests {
		if got := ROIIDTextName(tt.roi, tt.band, tt.sub); got != tt.want {
			t.Errorf("ROIIDTextName(%q, %q, %q) = %q, expected %q", tt.roi, tt.band, tt.sub, got, tt.want)
		}
	}
}

func TestDropMasked(t *testing.T) {
	s := &Series{
		Values: [][]float64{{1}, {2}, {3}, {4}},
		Mask:   []float64{0, 50, 200, 255},
		Dates:  []time.Time{day(2010, 1, 1), day(2010, 1, 2), day(2010, 1, 3), day(2010, 1, 4)},
	}
	got := DropMasked(s)
	if got.Len() != 3 || got.Values[1][0] != 3 {
		t.Errorf("DropMasked kept %v", got.Values)
	}
}

func TestDropZerosUsesSlice(t *testing.T) {
	s := &Series{
		Values: [][]float64{{0, 5}, {0, 0}, {3, -3}, {1, 0}},
		Dates:  []time.Time{day(2010, 1, 1), day(2010, 1, 2), day(2010, 1, 3), day(2010, 1, 4)},
	}

	tests := []struct {
		name       string
		start, end int
		wantLen    int
	}{
		{"first column only", 0, 1, 2},
		{"both columns", 0, 2, 3},
		{"empty slice checks everything", 0, 0, 3},
		{"end beyond width", 1, 10, 2},
	}
	for _, tt := range tests {
		if got := DropZeros(s, tt.start, tt.end); got.Len() != tt.wantLen {
			t.Errorf("%s: DropZeros kept %d rows, expected %d", tt.name, got.Len(), tt.wantLen)
		}
	}
}

func TestSplitPreAndPost(t *testing.T) {
	d0 := day(2015, 6, 1)
	s := &Series{
		Values: [][]float64{{1}, {2}, {3}, {4}, {5}},
		Dates: []time.Time{
			d0.AddDate(0, 0, -10), // exactly on the far bound
			d0.AddDate(0, 0, -9),
			d0.AddDate(0, 0, -1),
			d0,
			d0.AddDate(0, 0, 3),
		},
	}

	pre := SplitPre(s, d0, 10)
	if pre.Len() != 2 || pre.Values[0][0] != 3 || pre.Values[1][0] != 2 {
		t.Errorf("SplitPre = %v, expected [[3] [2]]", pre.Values)
	}

	post := SplitPost(s, d0, 3)
	if post.Len() != 0 {
		t.Errorf("SplitPost = %v, expected strict bounds to drop both ends", post.Values)
	}
	post = SplitPost(s, d0.AddDate(0, 0, -2), 10)
	if post.Len() != 3 || post.Values[0][0] != 3 {
		t.Errorf("SplitPost = %v", post.Values)
	}
}

func TestIsSummer(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		want := m == time.August || m == time.September
		if got := IsSummer(day(2010, m, 15), DefaultSummerMonths); got != want {
			t.Errorf("IsSummer(%s) = %v", m, got)
		}
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{7}, 7},
	}
	for _, tt := range tests {
		if got := Median(tt.in); got != tt.want {
			t.Errorf("Median(%v) = %v, expected %v", tt.in, got, tt.want)
		}
	}
	if !math.IsNaN(Median(nil)) {
		t.Error("Median(nil) should be NaN")
	}

	meds := ColumnMedians([][]float64{{1, 10}, {3, 30}, {2, 20}})
	if meds[0] != 2 || meds[1] != 20 {
		t.Errorf("ColumnMedians = %v", meds)
	}
}

func TestDateSpanDays(t *testing.T) {
	got := DateSpanDays([]time.Time{day(2016, 3, 1), day(2016, 2, 1), day(2016, 2, 20)})
	if got != 29 {
		t.Errorf("DateSpanDays = %d, expected 29", got)
	}
}
