// Package dedupe finds exact and near-duplicate media files and moves
// redundant exact copies into a review folder.
package dedupe

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/luinbytes/media-dedupe/media"
	"github.com/luinbytes/media-dedupe/storage"
)

// ErrDestinationIsRoot is returned when the review folder is the scan root.
var ErrDestinationIsRoot = errors.New("destination must differ from the scan root")

// Options configures a Scanner. The zero value scans with average hash,
// threshold 20, and really moves files.
type Options struct {
	Algorithm Algorithm
	Threshold int
	DryRun    bool
	Logger    *slog.Logger
	Observer  Observer
	// Now is used for report timestamps; tests may pin it.
	Now func() time.Time
}

// Scanner runs the duplicate pipeline. It keeps no state between scans.
type Scanner struct {
	provider storage.Provider
	opts     Options
}

// NewScanner creates a scanner reading and moving files through p.
func NewScanner(p storage.Provider, opts Options) *Scanner {
	if opts.Algorithm == "" {
		opts.Algorithm = AverageHash
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scanner{provider: p, opts: opts}
}

// Scan finds duplicates under root and relocates exact copies to
// destination (DefaultDestination(root) when empty). Only an unusable
// root (a *media.DiscoveryError) or a destination equal to the root
// (ErrDestinationIsRoot) is returned as an error; every other failure is
// recorded per file in the report.
func (s *Scanner) Scan(root, destination string) (*Report, error) {
	logger := s.opts.Logger
	obs := s.opts.Observer

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &media.DiscoveryError{Root: root, Err: err}
	}
	dest := destination
	if dest == "" {
		dest = DefaultDestination(absRoot)
	} else if dest, err = filepath.Abs(dest); err != nil {
		return nil, fmt.Errorf("resolve destination %q: %w", destination, err)
	}

	files, err := media.Discover(s.provider, absRoot, logger, dest)
	if err != nil {
		return nil, err
	}
	if filepath.Clean(dest) == absRoot {
		return nil, fmt.Errorf("%w: %s", ErrDestinationIsRoot, dest)
	}

	report := &Report{
		ID:          uuid.NewString(),
		Root:        absRoot,
		Destination: dest,
		StartedAt:   s.opts.Now(),
		DryRun:      s.opts.DryRun,
		Algorithm:   s.opts.Algorithm,
		Threshold:   s.opts.Threshold,
	}
	logger.Info("scan started", "root", absRoot, "destination", dest, "algorithm", s.opts.Algorithm, "threshold", s.opts.Threshold)

	// Every digest is known before fingerprinting starts: exact-group
	// membership decides which images are fingerprinted at all.
	obs.StageStarted(StageDigest, -1)
	var hashed []Hashed
	for f := range files {
		report.TotalFiles++
		switch f.Kind {
		case media.Image:
			report.Images++
		case media.Video:
			report.Videos++
		}

		digest, err := Digest(s.provider, f.Path)
		if err != nil {
			herr := &HashError{Path: f.Path, Stage: StageDigest, Err: err}
			logger.Warn("digest failed", "path", f.Path, "error", err)
			report.Errors = append(report.Errors, newFileError(herr))
			obs.FileDone(StageDigest, f.Path, herr)
			continue
		}
		logger.Debug("digest", "path", f.Path, "sha256", digest, "size", f.Size)
		hashed = append(hashed, Hashed{File: f, Digest: digest})
		obs.FileDone(StageDigest, f.Path, nil)
	}
	obs.StageFinished(StageDigest)

	exact := GroupExact(hashed)
	for _, g := range exact {
		report.Exact = append(report.Exact, exactReport(g))
	}
	logger.Info("exact duplicates grouped", "files", report.TotalFiles, "groups", len(exact))

	near := GroupNear(s.fingerprint(report, hashed, exact), s.opts.Threshold)
	for _, g := range near {
		report.Near = append(report.Near, nearReport(g))
	}
	logger.Info("near duplicates grouped", "groups", len(near))

	plan := PlanRelocation(exact, absRoot, dest, s.taken)
	if s.opts.DryRun {
		report.Planned = Moves(plan)
		logger.Info("dry run, nothing moved", "planned", len(report.Planned))
	} else {
		moved, failures := NewExecutor(s.provider, logger, obs).Execute(plan)
		report.Moved = moved
		report.Errors = append(report.Errors, failures...)
	}

	report.FinishedAt = s.opts.Now()
	report.Finalize()
	logger.Info("scan finished",
		"files", report.TotalFiles,
		"exact_groups", report.Summary.ExactGroups,
		"near_groups", report.Summary.NearGroups,
		"moved", report.Summary.Moved,
		"errors", report.Summary.Errors,
		"elapsed", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// fingerprint hashes every image that is not already an exact duplicate.
func (s *Scanner) fingerprint(report *Report, hashed []Hashed, exact []ExactGroup) []Fingerprinted {
	inExact := make(map[string]bool)
	for _, g := range exact {
		for _, f := range g.Files {
			inExact[f.Path] = true
		}
	}

	var candidates []Hashed
	for _, h := range hashed {
		if h.File.Kind == media.Image && !inExact[h.File.Path] {
			candidates = append(candidates, h)
		}
	}

	obs := s.opts.Observer
	obs.StageStarted(StageFingerprint, len(candidates))
	defer obs.StageFinished(StageFingerprint)

	var out []Fingerprinted
	for _, h := range candidates {
		fp, err := FingerprintFile(s.provider, h.File.Path, s.opts.Algorithm)
		if err != nil {
			herr := &HashError{Path: h.File.Path, Stage: StageFingerprint, Err: err}
			s.opts.Logger.Warn("fingerprint failed", "path", h.File.Path, "error", err)
			report.Errors = append(report.Errors, newFileError(herr))
			obs.FileDone(StageFingerprint, h.File.Path, herr)
			continue
		}
		s.opts.Logger.Debug("fingerprint", "path", h.File.Path, "hash", FormatFingerprint(fp))
		out = append(out, Fingerprinted{File: h.File, Hash: fp})
		obs.FileDone(StageFingerprint, h.File.Path, nil)
	}
	return out
}

func (s *Scanner) taken(path string) bool {
	ok, err := s.provider.Exists(path)
	return err != nil || ok
}
