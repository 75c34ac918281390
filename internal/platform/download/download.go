// Package download keeps a local PPMI study directory supplied with the
// tabular files the analyses read.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// LockFile serializes downloads into one study directory.
const LockFile = ".ppmi-download.lock"

var ErrLocked = errors.New("study directory is locked by another download")

// missingIn reports which names are not regular files in dir. With force
// every name is reported.
func missingIn(dir string, names []string, force bool) ([]string, error) {
	if force {
		return append([]string(nil), names...), nil
	}
	var missing []string
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		switch {
		case err == nil && info.Mode().IsRegular():
		case err == nil:
			return nil, fmt.Errorf("%s exists but is not a regular file", name)
		case errors.Is(err, os.ErrNotExist):
			missing = append(missing, name)
		default:
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return missing, nil
}

// withLock runs fn while holding the study directory lock.
func withLock(ctx context.Context, dir string, fn func() error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create study dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, LockFile))
	ok, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock study dir: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer lock.Unlock()
	return fn()
}

// Local only inspects the study directory. Nothing can be fetched, so every
// requested file stays missing.
type Local struct {
	dir    string
	logger zerolog.Logger
}

func NewLocal(dir string, logger zerolog.Logger) *Local {
	return &Local{dir: dir, logger: logger.With().Str("component", "downloader").Logger()}
}

func (l *Local) MissingStudyFiles(_ context.Context, names []string, force bool) ([]string, error) {
	return missingIn(l.dir, names, force)
}

func (l *Local) GetStudyFiles(_ context.Context, names []string, force bool) ([]string, []string, error) {
	if force {
		// Nothing to re-download from; files already on disk stay usable.
		still, err := missingIn(l.dir, names, false)
		return nil, still, err
	}
	l.logger.Warn().Strs("files", names).Str("study_dir", l.dir).Msg("no object store configured; cannot download study files")
	return nil, append([]string(nil), names...), nil
}
