package dedupe

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FreeName returns name if dir/name is not taken, otherwise the first of
// stem_1.ext, stem_2.ext, ... that is free. It performs no I/O itself; the
// caller decides what "taken" means.
func FreeName(dir, name string, taken func(path string) bool) string {
	if !taken(filepath.Join(dir, name)) {
		return name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !taken(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
}
