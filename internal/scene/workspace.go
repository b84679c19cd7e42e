package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/usfs-r5/edart/internal/logger"
)

// ErrWorkspaceExists is returned by PrepareWorkspace when the working folder is
// already present and redo was not requested. Callers treat it as "skip this scene".
var ErrWorkspaceExists = errors.New("workspace already exists")

// WorkspacePath derives the working folder of a TDIS path.
//
// For <root>/<scene>_<x>/envi_aux/TDIS/TDISm__<run> the result is
// <root>/<scene>_<x>/envi_aux/TDIS/<scene>_TDISm__<run>_<kind><suffix>. Paths that do
// not end in a TDISm__ folder use the archive layout <path>_flatten.
func WorkspacePath(origPath, kind, suffix string) string {
	dir, base := filepath.Split(origPath)
	if !strings.HasPrefix(base, tdisRunPrefix) {
		logger.Debug("Archive style folder name: %s", origPath)
		return origPath + "_flatten"
	}
	parts := strings.Split(origPath, string(os.PathSeparator))
	token := ""
	if len(parts) >= 4 {
		token = strings.Split(parts[len(parts)-4], "_")[0]
	}
	return dir + token + "_" + base + "_" + kind + suffix
}

// PrepareWorkspace creates the working folder for origPath. When anything exists at that
// path it
// returns ErrWorkspaceExists, unless redo is set, in which case the folder is removed
// and recreated.
func PrepareWorkspace(fs afero.Fs, origPath, kind, suffix string, redo bool) (string, error) {
	work := WorkspacePath(origPath, kind, suffix)
	logger.Info("Working path: %s", work)

	exists, err := afero.Exists(fs, work)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", work, err)
	}
	if exists {
		if !redo {
			return work, ErrWorkspaceExists
		}
		logger.Info("Removing old run: %s", work)
		if err := fs.RemoveAll(work); err != nil {
			return "", fmt.Errorf("failed to remove %s: %w", work, err)
		}
	}
	if err := fs.MkdirAll(work, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", work, err)
	}
	return work, nil
}
