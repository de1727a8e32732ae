package dedupe

// Observer receives progress events from a scan. Scans run on a single
// goroutine, so implementations need no locking for events of one scan.
type Observer interface {
	// StageStarted is called when a stage begins. total is -1 when the
	// number of files is not known up front (the digest stage streams
	// files straight from discovery).
	StageStarted(stage Stage, total int)
	// FileDone is called once per file handled by the stage.
	FileDone(stage Stage, path string, err error)
	// StageFinished is called when a stage ends.
	StageFinished(stage Stage)
}

type nopObserver struct{}

func (nopObserver) StageStarted(Stage, int)       {}
func (nopObserver) FileDone(Stage, string, error) {}
func (nopObserver) StageFinished(Stage)           {}
