package samples

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Entry is one file of the demo tree.
type Entry struct {
	Path string // relative to the tree root
	Note string
}

// WriteTree writes a small library under root containing exact copies,
// near duplicates, videos and a non-media file, and returns what it wrote.
func WriteTree(fs afero.Fs, root string) ([]Entry, error) {
	sunset, err := Encode("sunset.jpg", Sunset(256, 1.0))
	if err != nil {
		return nil, err
	}
	cat, err := Encode("cat.png", Cat(256))
	if err != nil {
		return nil, err
	}
	clip := fakeVideo(4096)

	files := []struct {
		entry Entry
		data  func() ([]byte, error)
	}{
		{Entry{"photos/sunset.jpg", "original"}, fixed(sunset)},
		{Entry{"photos/2023/sunset.jpg", "exact copy of photos/sunset.jpg"}, fixed(sunset)},
		{Entry{"photos/sunset_bright.jpg", "brighter edit, near duplicate"}, func() ([]byte, error) {
			return Encode("x.jpg", Brighten(Sunset(256, 1.0), 1.08))
		}},
		{Entry{"photos/sunset_small.jpg", "downscaled, near duplicate"}, func() ([]byte, error) {
			return Encode("x.jpg", Sunset(128, 1.0))
		}},
		{Entry{"photos/cat.png", "original"}, fixed(cat)},
		{Entry{"backup/photos/cat.png", "exact copy of photos/cat.png"}, fixed(cat)},
		{Entry{"backup/cat copy.png", "exact copy of photos/cat.png"}, fixed(cat)},
		{Entry{"videos/clip.mp4", "original"}, fixed(clip)},
		{Entry{"backup/videos/clip.MP4", "exact copy of videos/clip.mp4"}, fixed(clip)},
		{Entry{"notes.txt", "ignored, not media"}, fixed([]byte("not a media file\n"))},
	}

	var written []Entry
	for _, f := range files {
		data, err := f.data()
		if err != nil {
			return written, fmt.Errorf("%s: %w", f.entry.Path, err)
		}
		if err := WriteFile(fs, filepath.Join(root, filepath.FromSlash(f.entry.Path)), data); err != nil {
			return written, fmt.Errorf("%s: %w", f.entry.Path, err)
		}
		written = append(written, f.entry)
	}
	return written, nil
}

func fixed(data []byte) func() ([]byte, error) {
	return func() ([]byte, error) { return data, nil }
}

// fakeVideo returns deterministic bytes with an MP4 ftyp header.
func fakeVideo(n int) []byte {
	data := make([]byte, n)
	copy(data, []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'})
	for i := 12; i < n; i++ {
		data[i] = byte(i * 31)
	}
	return data
}
