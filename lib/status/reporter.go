// Package status implements the Status Reporter (spec §2, §6.3): it
// renders the per-worker and aggregate telemetry lines to stdout on a
// fixed interval, and optionally exposes the same data over HTTP.
//
// The line format in §6.3 is specified as a literal, byte-for-byte
// contract (including Python-style "True"/"False" and the "->"/"*"
// stage-direction markers), so rendering is plain fmt.Sprintf rather than
// anything more abstract — matching how the teacher's own log lines are
// built up with fmt, not a templating layer.
package status

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/lsiudut/yaffmpegp/lib/worker"
)

// Source returns a fresh snapshot of every Worker's telemetry, in a stable
// order. dispatcher.Dispatcher.Telemetry satisfies this.
type Source func() []*worker.Telemetry

// maxFPSHistory bounds the rolling window AVG is computed over: the last
// this-many CURR samples, matching the original's overall_fps list capped
// via pop(0).
const maxFPSHistory = 100

// Reporter polls Source on Interval and writes the spec §6.3 telemetry
// format to Out.
type Reporter struct {
	Source   Source
	Out      io.Writer
	Interval time.Duration

	mu         sync.Mutex
	fpsHistory []float64 // FIFO of the last ≤maxFPSHistory CURR samples
}

// Run polls and renders until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// Tick renders one frame of output immediately; exported so a caller can
// force a final render after the run completes.
func (r *Reporter) Tick() { r.tick() }

func (r *Reporter) tick() {
	snaps := r.Source()

	// CURR is the sum of every actively-transcoding worker's fps, not an
	// average (spec §4.5/§6.3, matching the original's `fps += f.fps`).
	curr := 0.0
	for i, t := range snaps {
		fmt.Fprintln(r.Out, renderWorkerLine(i, t))
		if t.Status == worker.StatusRunning && t.Transcode.State != worker.StageIdle && t.Transcode.State != worker.StageFinished {
			curr += t.FPS
		}
	}

	r.mu.Lock()
	r.fpsHistory = append(r.fpsHistory, curr)
	if len(r.fpsHistory) > maxFPSHistory {
		r.fpsHistory = r.fpsHistory[len(r.fpsHistory)-maxFPSHistory:]
	}
	sum := 0.0
	for _, v := range r.fpsHistory {
		sum += v
	}
	avg := sum / float64(len(r.fpsHistory))
	r.mu.Unlock()

	fmt.Fprintf(r.Out, "AVG: %.2f fps | CURR: %.2f fps\n", avg, curr)
}

func renderWorkerLine(index int, t *worker.Telemetry) string {
	return fmt.Sprintf("%s  [p%02d]: ST: %s | %s -> %s -> %s | stale: %s | fps: %.1f time: %s",
		t.Host.Endpoint, index, t.Status,
		renderStage("SENDER", t.Send, "->"),
		renderStage("COMPRESS", t.Transcode, "*"),
		renderStage("DOWNLOAD", t.Fetch, "<-"),
		pyBool(t.Stale), t.FPS, t.TranscodeTime)
}

func renderStage(label string, st worker.StageTelemetry, arrow string) string {
	if st.State == worker.StageIdle || st.State == worker.StageFinished {
		return fmt.Sprintf("%s(%s, %d)", label, st.State, st.QueueLen)
	}
	return fmt.Sprintf("%s(%s, %d, %s%s)", label, st.State, st.QueueLen, arrow, st.Filename)
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
