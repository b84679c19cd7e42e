package models

import (
	"math"
	"testing"
	"time"
)

func TestSampleValidate(t *testing.T) {
	tests := []struct {
		name    string
		sample  Sample
		wantErr bool
	}{
		{"valid sample", Sample{ROIID: "R1", X: 246500, Y: 4134600}, false},
		{"empty ROIID is allowed", Sample{X: 1, Y: 2}, false},
		{"NaN x", Sample{ROIID: "R1", X: math.NaN(), Y: 2}, true},
		{"infinite y", Sample{ROIID: "R1", X: 1, Y: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sample.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationRowValidate(t *testing.T) {
	pre := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	post := time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		row     ValidationRow
		wantErr bool
		window  bool
	}{
		{"valid row", ValidationRow{ROIID: "R1", TPre: &pre, TPost: &post}, false, true},
		{"missing dates", ValidationRow{ROIID: "R1"}, false, false},
		{"missing post", ValidationRow{ROIID: "R1", TPre: &pre}, false, false},
		{"empty ROIID", ValidationRow{TPre: &pre, TPost: &post}, true, true},
		{"post before pre", ValidationRow{ROIID: "R1", TPre: &post, TPost: &pre}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.row.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.row.HasWindow() != tt.window {
				t.Errorf("HasWindow() = %v, expected %v", tt.row.HasWindow(), tt.window)
			}
		})
	}
}

func TestRunValidate(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	end := time.Now()
	before := start.Add(-time.Hour)

	tests := []struct {
		name    string
		run     Run
		wantErr bool
	}{
		{
			name:    "valid running run",
			run:     Run{ID: "r1", Kind: KindFlatten, Scene: "/s", Status: RunRunning, StartedAt: start},
			wantErr: false,
		},
		{
			name:    "valid finished run",
			run:     Run{ID: "r1", Kind: KindPrePost, Scene: "/s", Status: RunDone, Outputs: 3, StartedAt: start, FinishedAt: &end},
			wantErr: false,
		},
		{
			name:    "empty ID",
			run:     Run{Kind: KindFlatten, Scene: "/s", Status: RunDone, StartedAt: start},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			run:     Run{ID: "r1", Kind: "merge", Scene: "/s", Status: RunDone, StartedAt: start},
			wantErr: true,
		},
		{
			name:    "unknown status",
			run:     Run{ID: "r1", Kind: KindFlatten, Scene: "/s", Status: "paused", StartedAt: start},
			wantErr: true,
		},
		{
			name:    "finished before start",
			run:     Run{ID: "r1", Kind: KindFlatten, Scene: "/s", Status: RunDone, StartedAt: start, FinishedAt: &before},
			wantErr: true,
		},
		{
			name:    "running with finish time",
			run:     Run{ID: "r1", Kind: KindFlatten, Scene: "/s", Status: RunRunning, StartedAt: start, FinishedAt: &end},
			wantErr: true,
		},
		{
			name:    "negative outputs",
			run:     Run{ID: "r1", Kind: KindFlatten, Scene: "/s", Status: RunDone, Outputs: -1, StartedAt: start},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	r := Run{StartedAt: start}
	if r.Duration() != 0 {
		t.Errorf("Duration() = %v, expected 0 while running", r.Duration())
	}
	r.FinishedAt = &end
	if r.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, expected 1m30s", r.Duration())
	}
}
