package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/luinbytes/media-dedupe/dedupe"
)

var stageLabels = map[dedupe.Stage]string{
	dedupe.StageDigest:      "Hashing files",
	dedupe.StageFingerprint: "Fingerprinting images",
	dedupe.StageRelocate:    "Moving duplicates",
}

// progressObserver draws one progress bar per scan stage.
type progressObserver struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (o *progressObserver) StageStarted(stage dedupe.Stage, total int) {
	if total == 0 {
		o.bar = nil
		return
	}
	o.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(o.w),
		progressbar.OptionSetDescription(stageLabels[stage]),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

func (o *progressObserver) FileDone(dedupe.Stage, string, error) {
	if o.bar == nil {
		return
	}
	_ = o.bar.Add(1)
}

func (o *progressObserver) StageFinished(dedupe.Stage) {
	if o.bar == nil {
		return
	}
	_ = o.bar.Finish()
	o.bar = nil
}
