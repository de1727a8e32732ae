// Package media describes the files the scanner cares about and finds them
// on disk.
package media

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a media file by extension.
type Kind int

const (
	Other Kind = iota
	Image
	Video
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return "other"
	}
}

// MarshalText renders the kind as its name in JSON and TOML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Every image extension here must be decodable by the perceptual hasher.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".m4v":  true,
	".webm": true,
	".wmv":  true,
	".mpg":  true,
	".mpeg": true,
	".3gp":  true,
}

// File is a discovered media file. Values are never modified after discovery.
type File struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	Ext     string    `json:"ext"`
	Kind    Kind      `json:"kind"`
	ModTime time.Time `json:"mod_time"`
}

// KindOf classifies path by its extension, case-insensitively.
func KindOf(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return Image
	case videoExtensions[ext]:
		return Video
	default:
		return Other
	}
}

// IsMedia reports whether path has an allow-listed extension.
func IsMedia(path string) bool {
	return KindOf(path) != Other
}

// IsImage reports whether path is an image we can fingerprint.
func IsImage(path string) bool {
	return KindOf(path) == Image
}
