package media

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/luinbytes/media-dedupe/storage"
)

// DiscoveryError means the scan root cannot be used. It aborts the scan.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("cannot scan %q: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ErrNotDirectory is wrapped by a DiscoveryError when the root is a file.
var ErrNotDirectory = errors.New("not a directory")

var errStop = errors.New("stop walking")

// Discover validates root and returns a lazy, single-use sequence of the
// media files beneath it. Files are produced depth-first with names sorted
// inside each directory, so the order is the same on every platform.
// Directories listed in exclude (and everything below them) are skipped.
// Unreadable entries are logged and skipped. Symlinks are never followed.
func Discover(p storage.Provider, root string, logger *slog.Logger, exclude ...string) (iter.Seq[File], error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	info, err := p.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DiscoveryError{Root: root, Err: fmt.Errorf("directory does not exist: %w", err)}
		}
		return nil, &DiscoveryError{Root: root, Err: err}
	}
	if !info.IsDir {
		return nil, &DiscoveryError{Root: root, Err: ErrNotDirectory}
	}

	excluded := make([]string, 0, len(exclude))
	for _, x := range exclude {
		if x = strings.TrimSpace(x); x != "" {
			excluded = append(excluded, filepath.Clean(x))
		}
	}

	var consumed atomic.Bool
	seq := func(yield func(File) bool) {
		if consumed.Swap(true) {
			return
		}
		_ = p.Walk(root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				logger.Debug("skipping unreadable entry", "path", path, "error", err)
				return nil
			}
			if fi.IsDir() {
				if path != root && isExcluded(path, excluded) {
					logger.Debug("skipping excluded directory", "path", path)
					return filepath.SkipDir
				}
				return nil
			}
			if !fi.Mode().IsRegular() {
				return nil
			}
			kind := KindOf(path)
			if kind == Other {
				return nil
			}
			f := File{
				Path:    path,
				Size:    fi.Size(),
				Ext:     strings.ToLower(filepath.Ext(path)),
				Kind:    kind,
				ModTime: fi.ModTime(),
			}
			if !yield(f) {
				return errStop
			}
			return nil
		})
	}
	return seq, nil
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
