package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelsmith/internal/logging"
)

// RunDir describes a run directory on disk.
type RunDir struct {
	VideoID string
	Path    string
	ModTime time.Time
	Size    int64
}

// PruneResult contains the outcome of a prune pass.
type PruneResult struct {
	Removed []string
	Errors  []PruneError
}

// PruneError pairs a directory with its removal error.
type PruneError struct {
	Path  string
	Error error
}

// List returns the run directories under workDir, newest first.
func List(workDir string) ([]RunDir, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []RunDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(workDir, entry.Name())
		dirs = append(dirs, RunDir{
			VideoID: entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    dirSize(path),
		})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].ModTime.After(dirs[j].ModTime) })
	return dirs, nil
}

// Prune removes run directories older than maxAge. Locked runs are skipped.
func Prune(ctx context.Context, workDir string, maxAge time.Duration, logger *slog.Logger) PruneResult {
	var result PruneResult
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "workspace"))
	dirs, err := List(workDir)
	if err != nil {
		result.Errors = append(result.Errors, PruneError{Path: workDir, Error: err})
		return result
	}
	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if !dir.ModTime.Before(cutoff) {
			continue
		}
		ws, err := New(workDir, dir.VideoID)
		if err != nil {
			continue
		}
		if err := ws.Lock(); err != nil {
			logger.Info("run in use, not pruned",
				logging.String(logging.FieldRunID, dir.VideoID),
				logging.String(logging.FieldEventType, "prune_skipped"),
			)
			continue
		}
		err = ws.Clear()
		_ = ws.Unlock()
		if err != nil {
			result.Errors = append(result.Errors, PruneError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale run directory", "prune_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		logger.Info("removed stale run directory",
			logging.String("path", dir.Path),
			logging.Duration("age", time.Since(dir.ModTime)),
			logging.String(logging.FieldEventType, "prune"),
		)
	}
	return result
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
