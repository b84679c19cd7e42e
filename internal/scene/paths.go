// Package scene resolves the folder and file naming conventions of an EDART scene and
// ingests its per-date frames.
//
// A scene folder looks like:
//
//	<scene>/envi_aux/TDIS/TDISm__<run>/          EVTY_*.bsq, ConfEV_*.bsq, nFrEV_*.bsq, PPEVdif_*.tif
//	<scene>/envi_aux/Images/DM_<date>_<n>.bsq    cloud masks
//	<scene>/envi_aux/Images/DF_*/DF_<date>_<n>.bsq  residual frames
//	<scene>/SEQhdr/ENVI_FR*/all_frames/FR_<date>_<n>.bsq  raw frames
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Product name prefixes inside a TDIS folder.
const (
	EventPrefix      = "EVTY"
	ConfidencePrefix = "ConfEV"
	LowConfPrefix    = "EVpTY"
	FrameEventPrefix = "nFrEV"
	PrePostPrefix    = "PPEVdif"

	tdisRunPrefix = "TDISm__"
	dateLayout    = "2006.01.02"
)

var (
	ErrNoMatch       = errors.New("no match found")
	ErrMultipleMatch = errors.New("multiple matches found")
	ErrNotTDISPath   = errors.New("pattern envi_aux/TDIS not found")
)

var tdisMarker = "envi_aux" + string(os.PathSeparator) + "TDIS"

// SceneDir returns the scene folder that contains the given TDIS path. The result
// keeps its trailing separator.
func SceneDir(tdisPath string) (string, error) {
	i := strings.Index(tdisPath, tdisMarker)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrNotTDISPath, tdisPath)
	}
	return tdisPath[:i], nil
}

// MaskDir returns the folder holding the DM_<date>_<n>.bsq cloud masks.
func MaskDir(sceneDir string) string {
	return filepath.Join(sceneDir, "envi_aux", "Images")
}

// uniqueDir returns the single directory matching pattern.
func uniqueDir(fs afero.Fs, pattern string) (string, error) {
	matches, err := afero.Glob(fs, pattern)
	if err != nil {
		return "", fmt.Errorf("bad pattern %s: %w", pattern, err)
	}
	var dirs []string
	for _, m := range matches {
		if ok, _ := afero.IsDir(fs, m); ok {
			dirs = append(dirs, m)
		}
	}
	return unique(dirs, pattern)
}

func unique(matches []string, pattern string) (string, error) {
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w for: %s", ErrNoMatch, pattern)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w for: %s %v", ErrMultipleMatch, pattern, matches)
	}
}

// DartDir returns the single residual frame folder envi_aux/Images/DF_*.
func DartDir(fs afero.Fs, sceneDir string) (string, error) {
	return uniqueDir(fs, filepath.Join(MaskDir(sceneDir), "DF_*"))
}

// FrameDir returns the single raw frame folder SEQhdr/ENVI_FR*, optionally descending
// into sub.
func FrameDir(fs afero.Fs, sceneDir, sub string) (string, error) {
	pattern := filepath.Join(sceneDir, "SEQhdr", "ENVI_FR*")
	if sub != "" {
		pattern = filepath.Join(pattern, sub)
	}
	return uniqueDir(fs, pattern)
}

// ExpandTDISPath returns path unchanged when it already names a TDISm__ folder,
// otherwise the single match of <path>/envi_aux/TDIS/TDISm__*.
func ExpandTDISPath(fs afero.Fs, path string) (string, error) {
	if strings.Contains(filepath.Base(path), tdisRunPrefix) {
		return path, nil
	}
	pattern := filepath.Join(path, "envi_aux", "TDIS", tdisRunPrefix+"*")
	matches, err := afero.Glob(fs, pattern)
	if err != nil {
		return "", err
	}
	return unique(matches, pattern)
}

// FindProduct returns the single file in dir named <prefix>_*<ext>.
func FindProduct(fs afero.Fs, dir, prefix, ext string) (string, error) {
	pattern := filepath.Join(dir, prefix+"_*"+ext)
	matches, err := afero.Glob(fs, pattern)
	if err != nil {
		return "", err
	}
	return unique(matches, pattern)
}

// EventRaster returns the EVTY_*.bsq event timing raster of a TDIS folder.
func EventRaster(fs afero.Fs, tdisPath string) (string, error) {
	return FindProduct(fs, tdisPath, EventPrefix, ".bsq")
}

// ConfidenceRaster returns the ConfEV_*.bsq event confidence raster.
func ConfidenceRaster(fs afero.Fs, tdisPath string) (string, error) {
	return FindProduct(fs, tdisPath, ConfidencePrefix, ".bsq")
}

// FrameEventRaster returns the nFrEV_*.bsq event frame raster.
func FrameEventRaster(fs afero.Fs, tdisPath string) (string, error) {
	return FindProduct(fs, tdisPath, FrameEventPrefix, ".bsq")
}

// PrePostRaster returns the PPEVdif_<stat>_<band>*.tif pre/post statistic raster.
func PrePostRaster(fs afero.Fs, tdisPath, band, stat string) (string, error) {
	if stat == "" {
		stat = "Median"
	}
	pattern := filepath.Join(tdisPath, PrePostPrefix+"_"+stat+"_"+band+"*.tif")
	matches, err := afero.Glob(fs, pattern)
	if err != nil {
		return "", err
	}
	return unique(matches, pattern)
}

// DateFrame splits a DM, DF or FR file name into its date token and frame number.
func DateFrame(path string) (string, int, error) {
	date, token, err := frameTokens(path)
	if err != nil {
		return "", 0, err
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return "", 0, fmt.Errorf("%s: frame number: %w", filepath.Base(path), err)
	}
	return date, n, nil
}

// MaskName returns the DM_ cloud mask file name of a DF_ or FR_ frame, keeping the
// date and frame tokens exactly as written.
func MaskName(path string) (string, error) {
	date, token, err := frameTokens(path)
	if err != nil {
		return "", err
	}
	return "DM_" + date + "_" + token + ".bsq", nil
}

func frameTokens(path string) (date, frame string, err error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%s: expected <prefix>_<date>_<frame>", filepath.Base(path))
	}
	return parts[1], parts[2], nil
}

// ParseDate parses a yyyy.mm.dd frame date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// FormatDate renders t as yyyy.mm.dd.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
