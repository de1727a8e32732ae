package dedupe

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Stage names a step of the scan pipeline.
type Stage string

const (
	StageDigest      Stage = "digest"
	StageFingerprint Stage = "fingerprint"
	StageRelocate    Stage = "relocate"
)

// HashError is a per-file failure while computing a digest or fingerprint.
// The file is left out of the affected grouping; the scan continues.
type HashError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *HashError) Unwrap() error { return e.Err }

// RelocationError is a per-file failure while moving a duplicate. The
// source file is left where it was.
type RelocationError struct {
	Source      string
	Destination string
	Err         error
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("move %s -> %s: %v", e.Source, e.Destination, e.Err)
}

func (e *RelocationError) Unwrap() error { return e.Err }

// FileError is the report form of a per-file failure.
type FileError struct {
	Path    string `json:"path"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

func newFileError(err error) FileError {
	var he *HashError
	if errors.As(err, &he) {
		return FileError{Path: he.Path, Stage: he.Stage, Message: Describe(he.Err)}
	}
	var re *RelocationError
	if errors.As(err, &re) {
		return FileError{Path: re.Source, Stage: StageRelocate, Message: Describe(re.Err)}
	}
	return FileError{Message: err.Error()}
}

// Describe turns common filesystem errors into messages a user can act on.
// Wrapped errors are matched through their whole chain.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	switch {
	case errors.Is(err, fs.ErrPermission):
		return "permission denied; check file ownership or run with elevated privileges: " + errStr
	case errors.Is(err, fs.ErrNotExist):
		return "file not found; it may have been deleted or moved during the scan: " + errStr
	case strings.Contains(errStr, "too many open files"):
		return "system limit reached; increase ulimit -n: " + errStr
	case strings.Contains(errStr, "input/output error") || strings.Contains(errStr, "I/O error"):
		return "I/O error; the disk may be failing or the file is corrupted: " + errStr
	case strings.Contains(errStr, "is a directory"):
		return "expected a file but found a directory: " + errStr
	case strings.Contains(errStr, "text file busy") || strings.Contains(errStr, "being used by another process"):
		return "file is locked by another process: " + errStr
	default:
		return errStr
	}
}
