// Package worker implements the per-host Worker: the three-stage
// send/transcode/fetch pipeline and its supervisor loop (spec §4.2, §4.3).
//
// Grounded on original_source/yaffmpegp.py's FFMpeg(Thread) class: the
// three internal queues (_send_queue/_compress_queue/_download_queue), the
// Semaphore(2) admission control, the run() supervisor loop (acquire
// permit, pull with timeout, drain threshold, sentinel, join, cleanup),
// and the BROKEN/requeue-once fatal failure handling. The sentinel
// termination and worker supervisory shape otherwise follows the
// teacher's cmd/tcplb server goroutine lifecycle conventions (fan out
// stage goroutines, wait on them, aggregate the first error).
package worker

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/lsiudut/yaffmpegp/lib/queue"
	"github.com/lsiudut/yaffmpegp/lib/remote"
	"github.com/lsiudut/yaffmpegp/lib/retry"
	"github.com/lsiudut/yaffmpegp/lib/slog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// admissionPollInterval is how long the supervisor sleeps after failing to
// acquire an admission permit, matching the original's time.sleep(1).
const admissionPollInterval = 1 * time.Second

// pullTimeout is how long TryPop blocks before the supervisor re-checks its
// termination predicates, matching the original's queue.get(timeout=1).
const pullTimeout = 1 * time.Second

// stageChannelCapacity bounds the buffered channels linking stages. The
// admission semaphore already bounds in-flight Segments to AdmissionLimit,
// so a couple of slots of headroom (one in flight, one just finished, one
// sentinel) is always enough; this is not meant to be a second admission
// control, just slack so a send never blocks a stage unnecessarily.
const stageChannelCapacity = 4

// stageMsg flows down the send -> transcode -> fetch pipeline. sentinel
// messages carry no Segment and signal the receiving stage to forward the
// sentinel once more and return.
type stageMsg struct {
	segment  core.Segment
	item     core.WorkItem
	sentinel bool
}

// fatalFailure is reported by a stage on an unrecoverable error (spec §3:
// FatalWorkerFailure). Only the first one the supervisor observes matters.
type fatalFailure struct {
	stage string
	err   error
}

// Config configures a Worker. See spec §4.2 for the per-host pipeline this
// implements and §6.1 for RemoteDir/OutputDir/OutputSuffix naming.
type Config struct {
	Host    core.Host
	Adapter remote.Adapter
	Queue   *queue.SharedQueue
	Logger  slog.Logger

	// QLimit is the shared-queue depth below which (or once the queue is
	// empty) this Worker stops admitting new Segments and transitions to
	// DRAINING (spec §4.3).
	QLimit int

	// AdmissionLimit bounds how many Segments may be in flight (between
	// send-start and transcode-completion) at once. Spec default is 2.
	AdmissionLimit int64

	// UploadMaxAttempts is the total attempt budget (including the first)
	// for the send stage's TransientCopyFailure retry policy.
	UploadMaxAttempts int

	Transcoder   string // remote transcoder binary name, e.g. "ffmpeg"
	RemoteDir    string // remote scratch directory, unique per Worker
	OutputDir    string // local directory to write finished outputs into
	OutputSuffix string // appended to a WorkItem's basename to name its output
}

// Worker runs one Host's send/transcode/fetch pipeline against the shared
// input queue until the queue drains or a fatal failure occurs.
//
// A Worker's exported methods (Telemetry, Run) may be called from separate
// goroutines concurrently; Run must only be called once.
type Worker struct {
	host          core.Host
	adapter       remote.Adapter
	sharedQueue   *queue.SharedQueue
	logger        slog.Logger
	qlimit        int
	admission     *semaphore.Weighted
	uploadRetrier *retry.Retrier
	transcoder    string
	remoteDir     string
	outputDir     string
	outputSuffix  string

	mu    sync.Mutex
	state workerState

	telemetry atomic.Pointer[Telemetry]

	lastDispatchedMu sync.Mutex
	lastDispatched   core.Segment
	haveDispatched   bool
}

// New constructs a Worker from cfg. The returned Worker's Telemetry is
// immediately readable (IDLE, empty stages).
func New(cfg Config) *Worker {
	w := &Worker{
		host:         cfg.Host,
		adapter:      cfg.Adapter,
		sharedQueue:  cfg.Queue,
		logger:       cfg.Logger,
		qlimit:       cfg.QLimit,
		admission:    semaphore.NewWeighted(cfg.AdmissionLimit),
		transcoder:   cfg.Transcoder,
		remoteDir:    cfg.RemoteDir,
		outputDir:    cfg.OutputDir,
		outputSuffix: cfg.OutputSuffix,
	}
	w.uploadRetrier = &retry.Retrier{Logger: cfg.Logger, MaxAttempts: cfg.UploadMaxAttempts, What: "upload"}
	w.state = workerState{
		status:    StatusIdle,
		send:      StageTelemetry{State: StageIdle},
		transcode: StageTelemetry{State: StageIdle},
		fetch:     StageTelemetry{State: StageIdle},
	}
	w.telemetry.Store(w.snapshotLocked())
	return w
}

func (w *Worker) setDispatched(s core.Segment) {
	w.lastDispatchedMu.Lock()
	w.lastDispatched = s
	w.haveDispatched = true
	w.lastDispatchedMu.Unlock()
}

func (w *Worker) takeDispatched() (core.Segment, bool) {
	w.lastDispatchedMu.Lock()
	defer w.lastDispatchedMu.Unlock()
	return w.lastDispatched, w.haveDispatched
}

func (w *Worker) remotePath(item core.WorkItem) string {
	return path.Join(w.remoteDir, string(item))
}

func (w *Worker) remoteOutputPath(item core.WorkItem) string {
	return path.Join(w.remoteDir, string(item)+w.outputSuffix)
}

func (w *Worker) localOutputPath(item core.WorkItem) string {
	return filepath.Join(w.outputDir, string(item)+w.outputSuffix)
}

// Run drives the Worker's supervisor loop and pipeline to completion. It
// returns once the Worker is FINISHED (the queue drained and every
// in-flight Segment was processed) or BROKEN (a fatal failure occurred; the
// in-flight Segment was re-queued exactly once per spec §3 invariant 1).
//
// Run must be called exactly once per Worker.
func (w *Worker) Run(ctx context.Context) {
	w.setStatus(StatusRunning)

	sendCh := make(chan stageMsg, stageChannelCapacity)
	transcodeCh := make(chan stageMsg, stageChannelCapacity)
	fetchCh := make(chan stageMsg, stageChannelCapacity)
	fatalCh := make(chan fatalFailure, 3)

	// stop is closed the instant the supervisor observes a fatal failure,
	// so a stage blocked waiting on its input channel (nothing in flight
	// for adapter.Close to interrupt) unblocks too.
	stop := make(chan struct{})

	// The three stage goroutines never return an error themselves (a fatal
	// failure is reported on fatalCh, not via errgroup's error); Group is
	// used here purely for its fan-out/Wait bookkeeping.
	var g errgroup.Group
	g.Go(func() error { w.runSendStage(ctx, sendCh, transcodeCh, fatalCh, stop); return nil })
	g.Go(func() error { w.runTranscodeStage(ctx, transcodeCh, fetchCh, fatalCh, stop); return nil })
	g.Go(func() error { w.runFetchStage(ctx, fetchCh, fatalCh, stop); return nil })

	stagesDone := make(chan struct{})
	go func() { _ = g.Wait(); close(stagesDone) }()

	broke := w.supervise(sendCh, fatalCh, stagesDone, stop)

	if broke {
		_ = w.adapter.Close() // unblocks whichever stage is mid-command
		<-stagesDone
		w.setStatus(StatusBroken)
		return
	}

	<-stagesDone
	w.setStatus(StatusFinished)
}

// reportFatal logs a fatal stage failure and re-queues the Segment that was
// in flight when it happened (spec §3 invariant 1; see the Open Question
// note in DESIGN.md on why this is the *last dispatched* Segment rather
// than a precise per-stage one).
func (w *Worker) reportFatal(failure fatalFailure, stop chan struct{}) {
	close(stop)
	w.logger.Error(&slog.LogRecord{Msg: fmt.Sprintf("%s stage failed fatally", failure.stage), Error: failure.err, Host: &w.host})
	if segment, ok := w.takeDispatched(); ok {
		w.sharedQueue.Push(segment)
	}
}

// supervise runs the admission/pull loop described in spec §4.3 until the
// queue drains (returns false) or a stage reports a FatalWorkerFailure
// (returns true, having re-queued the in-flight Segment and closed stop).
func (w *Worker) supervise(sendCh chan<- stageMsg, fatalCh chan fatalFailure, stagesDone <-chan struct{}, stop chan struct{}) (broke bool) {
	for {
		select {
		case failure := <-fatalCh:
			w.reportFatal(failure, stop)
			return true
		default:
		}

		acquiredUnclaimed := false
		if w.admission.TryAcquire(1) {
			segment, ok := w.sharedQueue.TryPop(pullTimeout)
			if ok {
				item := core.NewWorkItem(segment)
				w.setDispatched(segment)
				sendCh <- stageMsg{segment: segment, item: item}
			} else {
				acquiredUnclaimed = true
			}
		} else {
			time.Sleep(admissionPollInterval)
		}

		select {
		case failure := <-fatalCh:
			if acquiredUnclaimed {
				w.admission.Release(1)
			}
			w.reportFatal(failure, stop)
			return true
		default:
		}

		if w.sharedQueue.Empty() || w.sharedQueue.Len() < w.qlimit {
			if acquiredUnclaimed {
				w.admission.Release(1)
			}
			w.setStatus(StatusDraining)
			sendCh <- stageMsg{sentinel: true}
			select {
			case failure := <-fatalCh:
				w.reportFatal(failure, stop)
				return true
			case <-stagesDone:
				return false
			}
		}
	}
}
