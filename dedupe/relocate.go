package dedupe

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/luinbytes/media-dedupe/storage"
)

// Action is the decision taken for one member of an exact group.
type Action int

const (
	Keep Action = iota
	Relocate
)

func (a Action) String() string {
	if a == Keep {
		return "keep"
	}
	return "move"
}

// PlanEntry describes what happens to one member of an exact group.
// Target is the destination before collision suffixes were applied.
type PlanEntry struct {
	Source      string
	Destination string
	Target      string
	Action      Action
	Digest      string
}

// Move is a completed (or, in a dry run, planned) relocation.
type Move struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// DefaultDestination is the review folder used when none is given: a
// duplicates_review directory next to the scan root.
func DefaultDestination(root string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(root)), ReviewDirName)
}

// ReviewDirName is the name of the default review folder.
const ReviewDirName = "duplicates_review"

// PlanRelocation keeps the first file of every group in place and sends
// the others to dest, mirroring their path relative to root. Names are
// made unique against taken and against destinations planned earlier in
// the same call.
func PlanRelocation(groups []ExactGroup, root, dest string, taken func(path string) bool) []PlanEntry {
	planned := make(map[string]bool)
	isTaken := func(path string) bool {
		if planned[path] {
			return true
		}
		return taken != nil && taken(path)
	}

	var plan []PlanEntry
	for _, g := range groups {
		for i, f := range g.Files {
			if i == 0 {
				plan = append(plan, PlanEntry{
					Source:      f.Path,
					Destination: f.Path,
					Target:      f.Path,
					Action:      Keep,
					Digest:      g.Digest,
				})
				continue
			}

			target := targetPath(root, dest, f.Path)
			dir := filepath.Dir(target)
			dst := filepath.Join(dir, FreeName(dir, filepath.Base(target), isTaken))
			planned[dst] = true

			plan = append(plan, PlanEntry{
				Source:      f.Path,
				Destination: dst,
				Target:      target,
				Action:      Relocate,
				Digest:      g.Digest,
			})
		}
	}
	return plan
}

// targetPath maps src under root to the same relative path under dest.
// Files outside root keep only their base name.
func targetPath(root, dest, src string) string {
	rel, err := filepath.Rel(root, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Join(dest, filepath.Base(src))
	}
	return filepath.Join(dest, rel)
}

// Moves lists the relocations in a plan.
func Moves(plan []PlanEntry) []Move {
	var moves []Move
	for _, e := range plan {
		if e.Action == Relocate {
			moves = append(moves, Move{Source: e.Source, Destination: e.Destination})
		}
	}
	return moves
}

// Executor performs the moves of a plan. Each file is handled on its own:
// a failure is recorded and the remaining moves still run.
type Executor struct {
	provider storage.Provider
	logger   *slog.Logger
	observer Observer
}

// NewExecutor creates an executor. logger and observer may be nil.
func NewExecutor(p storage.Provider, logger *slog.Logger, observer Observer) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Executor{provider: p, logger: logger, observer: observer}
}

// Execute moves every Relocate entry and returns what was moved and what failed.
func (e *Executor) Execute(plan []PlanEntry) ([]Move, []FileError) {
	pending := make(map[string]bool)
	total := 0
	for _, entry := range plan {
		if entry.Action == Relocate {
			pending[entry.Destination] = true
			total++
		}
	}

	e.observer.StageStarted(StageRelocate, total)
	defer e.observer.StageFinished(StageRelocate)

	var moved []Move
	var failures []FileError
	for _, entry := range plan {
		if entry.Action != Relocate {
			continue
		}
		delete(pending, entry.Destination)

		dst, err := e.resolve(entry, pending)
		if err == nil {
			err = e.provider.MoveFile(entry.Source, dst)
		}
		if err != nil {
			rerr := &RelocationError{Source: entry.Source, Destination: dst, Err: err}
			e.logger.Warn("move failed", "source", entry.Source, "destination", dst, "error", err)
			failures = append(failures, newFileError(rerr))
			e.observer.FileDone(StageRelocate, entry.Source, rerr)
			continue
		}

		e.logger.Info("moved duplicate", "source", entry.Source, "destination", dst)
		moved = append(moved, Move{Source: entry.Source, Destination: dst})
		e.observer.FileDone(StageRelocate, entry.Source, nil)
	}
	return moved, failures
}

// resolve re-checks the planned destination just before the move. If
// something appeared there since planning, a fresh suffix is chosen.
func (e *Executor) resolve(entry PlanEntry, pending map[string]bool) (string, error) {
	exists, err := e.provider.Exists(entry.Destination)
	if err != nil {
		return entry.Destination, err
	}
	if !exists {
		return entry.Destination, nil
	}

	dir := filepath.Dir(entry.Target)
	name := FreeName(dir, filepath.Base(entry.Target), func(path string) bool {
		if pending[path] {
			return true
		}
		ok, err := e.provider.Exists(path)
		return err != nil || ok
	})
	dst := filepath.Join(dir, name)
	e.logger.Debug("destination taken since planning", "planned", entry.Destination, "using", dst)
	return dst, nil
}
