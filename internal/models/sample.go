// Package models defines the plain records passed between the edart packages.
// Validation lives with the records so readers and the run ledger reject bad input
// the same way.
//
// Terminology:
//   - Sample: a validation plot location, identified by its ROIID.
//   - ValidationRow: the observed disturbance window of one plot.
//   - Run: one processed scene, as kept in the run ledger.
package models

import (
	"errors"
	"math"
	"time"
)

// Sample is a validation plot location. X and Y are projected map coordinates in the
// scene's UTM zone.
type Sample struct {
	ROIID string  `json:"roiid"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Validate checks that the sample can be located.
func (s *Sample) Validate() error {
	if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsInf(s.X, 0) || math.IsInf(s.Y, 0) {
		return errors.New("sample coordinates must be finite")
	}
	return nil
}

// ValidationRow holds the pre and post disturbance dates observed for a plot. A nil
// date means the observer did not record it.
type ValidationRow struct {
	ROIID string     `json:"roiid"`
	TPre  *time.Time `json:"t_pre,omitempty"`
	TPost *time.Time `json:"t_post,omitempty"`
}

// Validate checks the row's identity and date order.
func (v *ValidationRow) Validate() error {
	if v.ROIID == "" {
		return errors.New("ROIID must not be empty")
	}
	if v.TPre != nil && v.TPost != nil && v.TPost.Before(*v.TPre) {
		return errors.New("t_post must not be before t_pre")
	}
	return nil
}

// HasWindow reports whether both dates are present.
func (v *ValidationRow) HasWindow() bool {
	return v.TPre != nil && v.TPost != nil
}
