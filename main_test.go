package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luinbytes/media-dedupe/config"
	"github.com/luinbytes/media-dedupe/dedupe"
	"github.com/luinbytes/media-dedupe/samples"
)

// isolate keeps tests away from the user's config files.
func isolate(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	home := filepath.Join(base, "home")
	require.NoError(t, os.MkdirAll(home, 0o755))
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Chdir(base)
	return base
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// library writes two identical images, a pair of similar ones and one
// that matches nothing.
func library(t *testing.T, root string) {
	t.Helper()
	fs := afero.NewOsFs()
	left := samples.Split(64, 255, 0, false)
	require.NoError(t, samples.WriteImage(fs, filepath.Join(root, "A.png"), left))
	require.NoError(t, samples.WriteImage(fs, filepath.Join(root, "trip", "A.png"), left))
	require.NoError(t, samples.WriteImage(fs, filepath.Join(root, "B.png"), samples.Split(64, 240, 20, false)))
	require.NoError(t, samples.WriteImage(fs, filepath.Join(root, "C.png"), samples.Split(64, 255, 0, true)))
	require.NoError(t, samples.WriteImage(fs, filepath.Join(root, "D.png"), samples.Split(64, 200, 40, false)))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestScanCommand(t *testing.T) {
	base := isolate(t)
	root := filepath.Join(base, "library")
	library(t, root)
	jsonPath := filepath.Join(base, "out", "report.json")
	csvPath := filepath.Join(base, "out", "report.csv")

	stdout, _, err := run(t, "scan", root, "--export", jsonPath, "--export-csv", csvPath, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Exact duplicates")
	assert.Contains(t, stdout, "Similar images (not moved)")
	assert.Contains(t, stdout, "duplicates moved to")

	moved := filepath.Join(base, dedupe.ReviewDirName, "trip", "A.png")
	assert.True(t, fileExists(moved))
	assert.False(t, fileExists(filepath.Join(root, "trip", "A.png")))
	assert.True(t, fileExists(filepath.Join(root, "A.png")))
	assert.False(t, fileExists(filepath.Join(base, dedupe.ReviewDirName+".lock")))

	f, err := os.Open(jsonPath)
	require.NoError(t, err)
	defer f.Close()
	report, err := dedupe.ReadReport(f)
	require.NoError(t, err)
	assert.Equal(t, 5, report.TotalFiles)
	assert.Equal(t, []dedupe.Move{{Source: filepath.Join(root, "trip", "A.png"), Destination: moved}}, report.Moved)
	require.Len(t, report.Near, 1)
	assert.Equal(t, []string{filepath.Join(root, "B.png"), filepath.Join(root, "D.png")}, report.Near[0].Paths)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"group", "kind", "id", "path", "size", "action", "destination"}, rows[0])
	assert.Len(t, rows, 5)
}

func TestScanCommandDryRun(t *testing.T) {
	base := isolate(t)
	root := filepath.Join(base, "library")
	library(t, root)

	stdout, _, err := run(t, "scan", root, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Would move")
	assert.Contains(t, stdout, "Dry run: nothing was moved.")
	assert.True(t, fileExists(filepath.Join(root, "trip", "A.png")))
	assert.False(t, fileExists(filepath.Join(base, dedupe.ReviewDirName)))
	assert.False(t, fileExists(filepath.Join(base, dedupe.ReviewDirName+".lock")))
}

func TestScanCommandUsesConfigFile(t *testing.T) {
	base := isolate(t)
	root := filepath.Join(base, "library")
	library(t, root)
	require.NoError(t, os.WriteFile(filepath.Join(base, config.LocalFile), []byte("dry_run = true\ndestination = \"review\"\n"), 0o644))

	stdout, _, err := run(t, "scan", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(base, "review"))
	assert.True(t, fileExists(filepath.Join(root, "trip", "A.png")))

	// An explicit flag wins over the file.
	_, _, err = run(t, "scan", root, "--dry-run=false")
	require.NoError(t, err)
	assert.True(t, fileExists(filepath.Join(base, "review", "trip", "A.png")))
}

func TestScanCommandReportsFileErrors(t *testing.T) {
	base := isolate(t)
	root := filepath.Join(base, "library")
	library(t, root)
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.jpg"), []byte("not an image"), 0o644))

	stdout, _, err := run(t, "scan", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan finished with 1 errors")
	assert.Contains(t, stdout, "broken.jpg")
	// The rest of the scan still ran.
	assert.True(t, fileExists(filepath.Join(base, dedupe.ReviewDirName, "trip", "A.png")))
}

func TestScanCommandMissingRoot(t *testing.T) {
	base := isolate(t)

	stdout, _, err := run(t, "scan", filepath.Join(base, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory does not exist")
	assert.Empty(t, stdout)
}

func TestScanCommandBadRootTouchesNothing(t *testing.T) {
	base := isolate(t)
	dest := filepath.Join(base, "nested", "review")

	_, _, err := run(t, "scan", filepath.Join(base, "missing"), "--dest", dest)
	require.Error(t, err)
	assert.False(t, fileExists(filepath.Join(base, "nested")))
	assert.False(t, fileExists(dest+".lock"))
}

func TestScanCommandRejectsDestinationEqualToRoot(t *testing.T) {
	base := isolate(t)
	root := filepath.Join(base, "library")
	library(t, root)

	_, _, err := run(t, "scan", root, "--dest", root)
	require.ErrorIs(t, err, dedupe.ErrDestinationIsRoot)
	assert.True(t, fileExists(filepath.Join(root, "trip", "A.png")))
	assert.False(t, fileExists(root+".lock"))
}

func TestScanCommandRespectsLock(t *testing.T) {
	base := isolate(t)
	root := filepath.Join(base, "library")
	library(t, root)

	lock := flock.New(filepath.Join(base, dedupe.ReviewDirName+".lock"))
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer lock.Unlock()

	_, _, err = run(t, "scan", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another scan")
	assert.True(t, fileExists(filepath.Join(root, "trip", "A.png")))
}

func TestResolveScanSettings(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	cfg.Algorithm = "dhash"
	cfg.Threshold = 12
	cfg.Destination = "/review"

	cmd := newScanCommand(&commandContext{cfg: &cfg})
	require.NoError(t, cmd.ParseFlags([]string{"--threshold", "7"}))

	var flags scanFlags
	flags.threshold = 7
	s, err := resolveScanSettings(cmd, &cfg, flags, "/photos")
	require.NoError(t, err)
	assert.Equal(t, dedupe.DifferenceHash, s.algorithm)
	assert.Equal(t, 7, s.threshold)
	assert.Equal(t, filepath.FromSlash("/review"), s.destination)
	assert.False(t, s.dryRun)

	cfg.Destination = ""
	s, err = resolveScanSettings(cmd, &cfg, flags, "/photos")
	require.NoError(t, err)
	assert.Equal(t, dedupe.DefaultDestination(filepath.FromSlash("/photos")), s.destination)
}

func TestResolveScanSettingsRejectsBadValues(t *testing.T) {
	isolate(t)
	cfg := config.Default()

	cmd := newScanCommand(&commandContext{cfg: &cfg})
	require.NoError(t, cmd.ParseFlags([]string{"--threshold", "65"}))
	_, err := resolveScanSettings(cmd, &cfg, scanFlags{threshold: 65}, "/photos")
	assert.Error(t, err)

	cmd = newScanCommand(&commandContext{cfg: &cfg})
	require.NoError(t, cmd.ParseFlags([]string{"--algo", "sha1"}))
	_, err = resolveScanSettings(cmd, &cfg, scanFlags{algo: "sha1", threshold: 20}, "/photos")
	assert.ErrorIs(t, err, dedupe.ErrUnknownAlgorithm)
}

func TestCompareCommand(t *testing.T) {
	base := isolate(t)
	root := filepath.Join(base, "library")
	library(t, root)

	stdout, _, err := run(t, "compare", filepath.Join(root, "A.png"), filepath.Join(root, "B.png"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "AHASH")
	assert.Contains(t, stdout, "DHASH")
	assert.Contains(t, stdout, "PHASH")
	assert.Contains(t, stdout, "Images are SIMILAR")

	stdout, _, err = run(t, "compare", filepath.Join(root, "A.png"), filepath.Join(root, "C.png"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "Images are DIFFERENT")

	_, _, err = run(t, "compare", filepath.Join(root, "A.png"), filepath.Join(base, "nope.png"))
	assert.Error(t, err)
}

func TestReviewCommandPrintsSummary(t *testing.T) {
	base := isolate(t)
	root := filepath.Join(base, "library")
	library(t, root)
	jsonPath := filepath.Join(base, "report.json")

	_, _, err := run(t, "scan", root, "--dry-run", "--export", jsonPath)
	require.NoError(t, err)

	stdout, _, err := run(t, "review", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Scan summary")
	assert.Contains(t, stdout, filepath.Join(root, "trip", "A.png"))

	_, _, err = run(t, "review", filepath.Join(base, "missing.json"))
	assert.Error(t, err)
}

func TestDemoCommand(t *testing.T) {
	base := isolate(t)
	dir := filepath.Join(base, "demo")

	stdout, _, err := run(t, "demo", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "photos/sunset.jpg")

	stdout, _, err = run(t, "scan", dir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exact duplicates")
	assert.Contains(t, stdout, filepath.Join(dir, "backup", "videos", "clip.MP4"))
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "media-dedupe "+version+"\n", stdout)
}

func TestInvalidLogFormat(t *testing.T) {
	base := isolate(t)
	_, _, err := run(t, "scan", base, "--log-format", "xml")
	assert.Error(t, err)
}
