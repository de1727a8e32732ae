//go:build unix

package storage

import (
	"errors"
	"syscall"
)

// errors.Is unwraps *os.LinkError, which is what os.Rename returns.
func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
