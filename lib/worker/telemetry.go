package worker

import (
	"time"

	"github.com/lsiudut/yaffmpegp/lib/core"
)

// staleThreshold is the spec §4.2.2 staleness window: a transcode stage
// that is ACTIVE and has not been heard from for this long is flagged
// stale; the send and fetch stages are never flagged. Purely
// observational — it never cancels anything.
const staleThreshold = 30 * time.Second

// StageTelemetry is a read-only snapshot of one pipeline stage.
type StageTelemetry struct {
	State    StageState
	QueueLen int
	Filename string // current WorkItem's filename while ACTIVE, else ""
}

// Telemetry is an immutable snapshot of everything the Status Reporter
// needs to render one worker's line of the spec §6.3 telemetry output.
// Published as a whole so readers never observe a torn combination of
// fields (spec §3 invariant 5) — see Worker.update.
type Telemetry struct {
	Host core.Host

	Status    Status
	Send      StageTelemetry
	Transcode StageTelemetry
	Fetch     StageTelemetry

	Stale bool

	FPS           float64
	TranscodeTime string // e.g. "time=00:01:23.45", "" if unknown
	CopyPercent   int
	CopyETA       string

	ProcessedCount int
	RetryCount     int
	ProducedPaths  []string
}

// workerState is the mutable state behind a Telemetry snapshot. All
// fields are only ever touched while Worker.mu is held; see update.
type workerState struct {
	status Status

	send, transcode, fetch StageTelemetry

	// transcodeLastContact is the time of the most recent stderr record
	// observed from the remote transcoder, whether or not it parsed as a
	// progress line. Only meaningful while transcode.State is
	// StageCompressing (spec §4.2.2, scenario 5: staleness is scoped to
	// the transcode stage, not the Worker as a whole).
	transcodeLastContact time.Time

	fps           float64
	transcodeTime string
	copyPercent   int
	copyETA       string

	processedCount int
	retryCount     int
	producedPaths  []string
}

func (w *Worker) snapshotLocked() *Telemetry {
	s := w.state
	stale := s.transcode.State == StageCompressing && !s.transcodeLastContact.IsZero() &&
		time.Since(s.transcodeLastContact) > staleThreshold

	paths := make([]string, len(s.producedPaths))
	copy(paths, s.producedPaths)

	return &Telemetry{
		Host:           w.host,
		Status:         s.status,
		Send:           s.send,
		Transcode:      s.transcode,
		Fetch:          s.fetch,
		Stale:          stale,
		FPS:            s.fps,
		TranscodeTime:  s.transcodeTime,
		CopyPercent:    s.copyPercent,
		CopyETA:        s.copyETA,
		ProcessedCount: s.processedCount,
		RetryCount:     s.retryCount,
		ProducedPaths:  paths,
	}
}

// update mutates worker state under lock and republishes the snapshot.
func (w *Worker) update(fn func(*workerState)) {
	w.mu.Lock()
	fn(&w.state)
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.telemetry.Store(snap)
}

// Telemetry returns the most recently published snapshot of this Worker's
// state. Safe to call from any goroutine at any time, including
// concurrently with the Worker's own Run.
func (w *Worker) Telemetry() *Telemetry {
	return w.telemetry.Load()
}

func (w *Worker) setStatus(s Status) {
	w.update(func(st *workerState) { st.status = s })
}

// markTranscodeContact records that the remote transcoder was just heard
// from (a stderr record arrived, or the stage just started), resetting the
// staleness clock scoped to the transcode stage (spec §4.2.2).
func (w *Worker) markTranscodeContact() {
	w.update(func(st *workerState) { st.transcodeLastContact = time.Now() })
}
