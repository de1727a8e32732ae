//go:build !unix && !windows

package storage

func isCrossDevice(error) bool {
	return false
}
