package dedupe

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/luinbytes/media-dedupe/media"
	"github.com/luinbytes/media-dedupe/storage"
)

// Algorithm selects the perceptual fingerprint.
type Algorithm string

const (
	// AverageHash compares each pixel of an 8x8 grayscale thumbnail with
	// the mean. Balanced speed and accuracy.
	AverageHash Algorithm = "ahash"
	// DifferenceHash compares horizontally adjacent pixels. Fast, good for
	// near-duplicates.
	DifferenceHash Algorithm = "dhash"
	// PerceptionHash keeps the low frequencies of a DCT. Most robust, slower.
	PerceptionHash Algorithm = "phash"
)

const (
	// FingerprintBits is the length of every fingerprint.
	FingerprintBits = 64
	// DefaultThreshold is the largest Hamming distance still considered a
	// near duplicate.
	DefaultThreshold = 20
)

// Algorithms lists the supported fingerprints in display order.
var Algorithms = []Algorithm{DifferenceHash, AverageHash, PerceptionHash}

// ErrUnknownAlgorithm is returned by ParseAlgorithm.
var ErrUnknownAlgorithm = errors.New("unknown perceptual hash algorithm")

// ParseAlgorithm accepts the short names and their long aliases.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ahash", "average":
		return AverageHash, nil
	case "dhash", "difference":
		return DifferenceHash, nil
	case "phash", "perceptual", "perception":
		return PerceptionHash, nil
	default:
		return "", fmt.Errorf("%w: %q (want ahash, dhash or phash)", ErrUnknownAlgorithm, s)
	}
}

// Description is a one-line summary of the algorithm.
func (a Algorithm) Description() string {
	switch a {
	case DifferenceHash:
		return "Difference Hash - Fast, good for near-duplicates"
	case AverageHash:
		return "Average Hash - Balanced speed and accuracy"
	case PerceptionHash:
		return "Perceptual Hash - Most robust, slower"
	default:
		return string(a)
	}
}

// Fingerprinted pairs an image with its perceptual fingerprint.
type Fingerprinted struct {
	File media.File
	Hash *goimagehash.ImageHash
}

// NearGroup is a set of visually similar images. Files[0] is the seed and
// Distances[i] is the distance of Files[i] to the seed.
type NearGroup struct {
	Fingerprint *goimagehash.ImageHash
	Files       []media.File
	Distances   []int
}

// Fingerprint computes a 64-bit perceptual hash of img.
func Fingerprint(img image.Image, alg Algorithm) (*goimagehash.ImageHash, error) {
	switch alg {
	case AverageHash:
		return goimagehash.AverageHash(img)
	case DifferenceHash:
		return goimagehash.DifferenceHash(img)
	case PerceptionHash:
		return goimagehash.PerceptionHash(img)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// FingerprintFile decodes the image at path, honouring its EXIF
// orientation, and fingerprints it.
func FingerprintFile(p storage.Provider, path string, alg Algorithm) (*goimagehash.ImageHash, error) {
	file, err := p.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return Fingerprint(img, alg)
}

// Distance returns the Hamming distance between two fingerprints, or an
// error when they were produced by different algorithms.
func Distance(a, b *goimagehash.ImageHash) (int, error) {
	if a == nil || b == nil {
		return 0, errors.New("missing fingerprint")
	}
	return a.Distance(b)
}

// Similarity expresses a distance as a percentage of matching bits.
func Similarity(distance int) float64 {
	return 100.0 - float64(distance)/FingerprintBits*100.0
}

// FormatFingerprint renders a fingerprint as 16 hex digits.
func FormatFingerprint(h *goimagehash.ImageHash) string {
	if h == nil {
		return ""
	}
	return fmt.Sprintf("%016x", h.GetHash())
}

// GroupNear groups images greedily in input order. Each ungrouped image
// seeds a group and pulls in every later ungrouped image within threshold
// of the seed itself; similarity to other members does not count, so the
// relation is not closed transitively. Groups of one are dropped.
func GroupNear(items []Fingerprinted, threshold int) []NearGroup {
	grouped := make([]bool, len(items))
	var groups []NearGroup

	for i := range items {
		if grouped[i] {
			continue
		}
		grouped[i] = true
		seed := items[i]

		group := NearGroup{
			Fingerprint: seed.Hash,
			Files:       []media.File{seed.File},
			Distances:   []int{0},
		}
		for j := i + 1; j < len(items); j++ {
			if grouped[j] {
				continue
			}
			dist, err := Distance(seed.Hash, items[j].Hash)
			if err != nil || dist > threshold {
				continue
			}
			grouped[j] = true
			group.Files = append(group.Files, items[j].File)
			group.Distances = append(group.Distances, dist)
		}

		if len(group.Files) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}
