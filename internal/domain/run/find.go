package run

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracestat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// RunSpec names one run directory of a sweep
type RunSpec struct {
	Label string `json:"label"`
	Dir   string `json:"dir"`
}

// FindRuns walks root and returns every directory holding at least one log
// matched by patterns. Labels are paths relative to root. Unreadable
// entries are logged and skipped; any other walk error aborts the search.
func FindRuns(ctx context.Context, root string, patterns Patterns, logger *logging.Logger) ([]RunSpec, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &types.MissingFileError{Path: root, Kind: "sweep root"}
		}
		return nil, errors.Wrapf(err, "stat %s", root)
	}

	var mu sync.Mutex
	dirs := make(map[string]bool)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				logger.Warn("Skipping unreadable path", zap.String("path", p), zap.Error(err))
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if patterns.classify(d.Name()) == "" {
			return nil
		}

		mu.Lock()
		dirs[filepath.Dir(p)] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}

	specs := make([]RunSpec, 0, len(dirs))
	for dir := range dirs {
		label, err := filepath.Rel(root, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "relative path of %s", dir)
		}
		if label == "." {
			label = filepath.Base(filepath.Clean(root))
		}
		specs = append(specs, RunSpec{Label: filepath.ToSlash(label), Dir: dir})
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Label < specs[j].Label
	})
	return specs, nil
}
