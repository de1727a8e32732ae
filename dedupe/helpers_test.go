package dedupe

import (
	"image"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/luinbytes/media-dedupe/samples"
	"github.com/luinbytes/media-dedupe/storage"
)

// Two structurally different pictures: light left half, light top half.
// Their average hashes differ in 32 bits.
func leftLight() image.Image { return samples.Split(64, 255, 0, false) }
func topLight() image.Image  { return samples.Split(64, 255, 0, true) }

// Same structure as leftLight with different pixel values, so different
// bytes but an identical average hash.
func leftLightDimmed() image.Image { return samples.Split(64, 240, 20, false) }

func writeImage(t *testing.T, fs afero.Fs, path string, img image.Image) {
	t.Helper()
	require.NoError(t, samples.WriteImage(fs, path, img))
}

func writeBytes(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, samples.WriteFile(fs, path, data))
}

func memProvider() (afero.Fs, *storage.LocalProvider) {
	fs := afero.NewMemMapFs()
	return fs, storage.NewProvider(fs)
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}
