// Package flatten reduces EDART per-frame event timing and confidence stacks to one
// event and one confidence raster per calendar or moisture year.
package flatten

// Moisture years run from October 1st of one year to September 30th of the next. Event
// timings are decimal years, so the boundary is day 274 of 365 (275 of 366 in leap years).
const (
	moistureDay     = 274
	moistureLeapDay = 275
)

// YearMask returns 1 where y <= a < y+1, else 0.
func YearMask(a []float64, y int) []uint8 {
	return WindowMask(a, float64(y), float64(y+1))
}

// WindowMask returns 1 where start <= a < end, else 0. It works on flattened data of
// any rank.
func WindowMask(a []float64, start, end float64) []uint8 {
	out := make([]uint8, len(a))
	for i, v := range a {
		if v >= start && v < end {
			out[i] = 1
		}
	}
	return out
}

// IsLeap reports whether y is a Gregorian leap year.
func IsLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// MoistureWindow returns the decimal year bounds of moisture year y, which runs from
// Oct 1 of y through Sep 30 of y+1.
func MoistureWindow(y int) (start, end float64) {
	start = float64(y) + moistureDay/365.0
	if IsLeap(y) {
		start = float64(y) + moistureLeapDay/366.0
	}
	end = float64(y+1) + moistureDay/365.0
	if IsLeap(y + 1) {
		end = float64(y+1) + moistureLeapDay/366.0
	}
	return start, end
}

// MoistureYearMask returns 1 where a falls inside moisture year y.
func MoistureYearMask(a []float64, y int) []uint8 {
	start, end := MoistureWindow(y)
	return WindowMask(a, start, end)
}
