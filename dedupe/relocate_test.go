package dedupe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luinbytes/media-dedupe/media"
)

func TestFreeName(t *testing.T) {
	taken := map[string]bool{
		"/d/photo.jpg":   true,
		"/d/photo_1.jpg": true,
		"/d/clip":        true,
	}
	isTaken := func(path string) bool { return taken[path] }

	assert.Equal(t, "other.jpg", FreeName("/d", "other.jpg", isTaken))
	assert.Equal(t, "photo_2.jpg", FreeName("/d", "photo.jpg", isTaken))
	assert.Equal(t, "clip_1", FreeName("/d", "clip", isTaken))
	// Pure: asking twice gives the same answer.
	assert.Equal(t, "photo_2.jpg", FreeName("/d", "photo.jpg", isTaken))
}

func TestDefaultDestination(t *testing.T) {
	assert.Equal(t, filepath.FromSlash("/media/duplicates_review"), DefaultDestination(filepath.FromSlash("/media/library")))
	assert.Equal(t, filepath.FromSlash("/media/duplicates_review"), DefaultDestination(filepath.FromSlash("/media/library/")))
}

func TestPlanRelocation(t *testing.T) {
	groups := []ExactGroup{
		{Digest: "x", Files: []media.File{{Path: "/lib/a.jpg"}, {Path: "/lib/b.jpg"}, {Path: "/lib/sub/b.jpg"}}},
		{Digest: "y", Files: []media.File{{Path: "/lib/c.mp4"}, {Path: "/lib/d.mp4"}}},
	}
	taken := func(path string) bool { return path == "/rev/d.mp4" }

	plan := PlanRelocation(groups, "/lib", "/rev", taken)
	require.Len(t, plan, 5)

	assert.Equal(t, Keep, plan[0].Action)
	assert.Equal(t, "/lib/a.jpg", plan[0].Destination)

	assert.Equal(t, Relocate, plan[1].Action)
	assert.Equal(t, "/rev/b.jpg", plan[1].Destination)
	assert.Equal(t, "/rev/sub/b.jpg", plan[2].Destination)

	assert.Equal(t, Keep, plan[3].Action)
	assert.Equal(t, "/rev/d_1.mp4", plan[4].Destination)
	assert.Equal(t, "/rev/d.mp4", plan[4].Target)

	moves := Moves(plan)
	assert.Equal(t, []Move{
		{Source: "/lib/b.jpg", Destination: "/rev/b.jpg"},
		{Source: "/lib/sub/b.jpg", Destination: "/rev/sub/b.jpg"},
		{Source: "/lib/d.mp4", Destination: "/rev/d_1.mp4"},
	}, moves)
}

func TestPlanRelocationUniqueWithinPlan(t *testing.T) {
	groups := []ExactGroup{
		{Digest: "x", Files: []media.File{{Path: "/lib/a.jpg"}, {Path: "/other/a.jpg"}}},
		{Digest: "y", Files: []media.File{{Path: "/lib/b.jpg"}, {Path: "/elsewhere/a.jpg"}}},
	}

	plan := PlanRelocation(groups, "/lib", "/rev", nil)
	moves := Moves(plan)
	require.Len(t, moves, 2)
	assert.Equal(t, "/rev/a.jpg", moves[0].Destination)
	assert.Equal(t, "/rev/a_1.jpg", moves[1].Destination)
}

func TestExecutorMovesAndKeeps(t *testing.T) {
	fs, p := memProvider()
	writeBytes(t, fs, "/lib/a.jpg", []byte("same"))
	writeBytes(t, fs, "/lib/b.jpg", []byte("same"))

	plan := PlanRelocation([]ExactGroup{
		{Digest: "x", Files: []media.File{{Path: "/lib/a.jpg"}, {Path: "/lib/b.jpg"}}},
	}, "/lib", "/rev", nil)

	obs := &recordingObserver{}
	moved, failures := NewExecutor(p, nil, obs).Execute(plan)
	assert.Empty(t, failures)
	assert.Equal(t, []Move{{Source: "/lib/b.jpg", Destination: "/rev/b.jpg"}}, moved)

	assert.True(t, exists(t, fs, "/lib/a.jpg"))
	assert.False(t, exists(t, fs, "/lib/b.jpg"))
	assert.True(t, exists(t, fs, "/rev/b.jpg"))
	assert.Equal(t, 1, obs.done[StageRelocate])
}

func TestExecutorResolvesLateCollision(t *testing.T) {
	fs, p := memProvider()
	writeBytes(t, fs, "/lib/a.jpg", []byte("same"))
	writeBytes(t, fs, "/lib/b.jpg", []byte("same"))

	plan := PlanRelocation([]ExactGroup{
		{Digest: "x", Files: []media.File{{Path: "/lib/a.jpg"}, {Path: "/lib/b.jpg"}}},
	}, "/lib", "/rev", nil)

	// Appears between planning and execution.
	writeBytes(t, fs, "/rev/b.jpg", []byte("someone else"))

	moved, failures := NewExecutor(p, nil, nil).Execute(plan)
	assert.Empty(t, failures)
	require.Len(t, moved, 1)
	assert.Equal(t, "/rev/b_1.jpg", moved[0].Destination)

	data, err := afero.ReadFile(fs, "/rev/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "someone else", string(data))
}

func TestExecutorIsolatesFailures(t *testing.T) {
	fs, p := memProvider()
	writeBytes(t, fs, "/lib/a.jpg", []byte("one"))
	writeBytes(t, fs, "/lib/c.jpg", []byte("two"))
	writeBytes(t, fs, "/lib/d.jpg", []byte("two"))

	plan := PlanRelocation([]ExactGroup{
		{Digest: "x", Files: []media.File{{Path: "/lib/a.jpg"}, {Path: "/lib/b.jpg"}}},
		{Digest: "y", Files: []media.File{{Path: "/lib/c.jpg"}, {Path: "/lib/d.jpg"}}},
	}, "/lib", "/rev", nil)

	moved, failures := NewExecutor(p, nil, nil).Execute(plan)
	require.Len(t, failures, 1)
	assert.Equal(t, "/lib/b.jpg", failures[0].Path)
	assert.Equal(t, StageRelocate, failures[0].Stage)
	assert.Contains(t, failures[0].Message, "file not found")

	assert.Equal(t, []Move{{Source: "/lib/d.jpg", Destination: "/rev/d.jpg"}}, moved)
}

func TestDescribe(t *testing.T) {
	assert.Empty(t, Describe(nil))
	assert.Contains(t, Describe(&os.PathError{Op: "open", Path: "/x", Err: os.ErrNotExist}), "file not found")
	assert.Contains(t, Describe(&os.PathError{Op: "open", Path: "/x", Err: os.ErrPermission}), "permission denied")
	assert.Equal(t, "boom", Describe(errors.New("boom")))
}

func TestDescribeWrappedErrors(t *testing.T) {
	opened := fmt.Errorf("failed to open file: %w", &os.PathError{Op: "open", Path: "/lib/a.mp4", Err: os.ErrPermission})
	msg := Describe(opened)
	assert.True(t, strings.HasPrefix(msg, "permission denied; check file ownership"), msg)
	assert.Contains(t, msg, "/lib/a.mp4")

	moved := fmt.Errorf("failed to move file: %w", &os.LinkError{Op: "rename", Old: "/lib/b.jpg", New: "/r/b.jpg", Err: os.ErrNotExist})
	assert.True(t, strings.HasPrefix(Describe(moved), "file not found"))
}

func TestFileErrorFromWrappedErrors(t *testing.T) {
	fe := newFileError(&HashError{Path: "/a", Stage: StageFingerprint, Err: errors.New("decode image: bad")})
	assert.Equal(t, FileError{Path: "/a", Stage: StageFingerprint, Message: "decode image: bad"}, fe)

	fe = newFileError(&RelocationError{Source: "/b", Destination: "/r/b", Err: errors.New("nope")})
	assert.Equal(t, "/b", fe.Path)
	assert.Equal(t, StageRelocate, fe.Stage)
}

type recordingObserver struct {
	started  []Stage
	finished []Stage
	done     map[Stage]int
	failed   map[Stage]int
}

func (o *recordingObserver) StageStarted(stage Stage, _ int) {
	o.started = append(o.started, stage)
}

func (o *recordingObserver) FileDone(stage Stage, _ string, err error) {
	if o.done == nil {
		o.done = map[Stage]int{}
		o.failed = map[Stage]int{}
	}
	o.done[stage]++
	if err != nil {
		o.failed[stage]++
	}
}

func (o *recordingObserver) StageFinished(stage Stage) {
	o.finished = append(o.finished, stage)
}
