package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/luinbytes/media-dedupe/media"
	"github.com/luinbytes/media-dedupe/storage"
)

// Hashed pairs a file with the SHA-256 digest of its content.
type Hashed struct {
	File   media.File
	Digest string
}

// ExactGroup is a set of files with byte-identical content. Files keep the
// order in which they were digested; the first one is the keeper.
type ExactGroup struct {
	Digest string
	Size   int64
	Files  []media.File
}

// Digest returns the hex SHA-256 of the file at path.
func Digest(p storage.Provider, path string) (string, error) {
	file, err := p.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// GroupExact groups files by digest. Groups appear in the order their
// digest was first seen and groups with a single member are dropped.
func GroupExact(items []Hashed) []ExactGroup {
	index := make(map[string]int, len(items))
	var all []ExactGroup
	for _, h := range items {
		if i, ok := index[h.Digest]; ok {
			all[i].Files = append(all[i].Files, h.File)
			continue
		}
		index[h.Digest] = len(all)
		all = append(all, ExactGroup{
			Digest: h.Digest,
			Size:   h.File.Size,
			Files:  []media.File{h.File},
		})
	}

	var duplicates []ExactGroup
	for _, g := range all {
		if len(g.Files) > 1 {
			duplicates = append(duplicates, g)
		}
	}
	return duplicates
}
