package worker

import (
	"context"
	"fmt"

	"github.com/lsiudut/yaffmpegp/lib/remote"
	"github.com/lsiudut/yaffmpegp/lib/slog"
)

// recvOrStop waits for the next stageMsg on in, or reports that stop has
// been closed. Every stage loop uses this instead of a bare <-in so that a
// stage idle between Segments still notices a sibling stage's fatal
// failure instead of blocking forever.
func recvOrStop(in <-chan stageMsg, stop <-chan struct{}) (stageMsg, bool) {
	select {
	case msg := <-in:
		return msg, true
	case <-stop:
		return stageMsg{}, false
	}
}

// runSendStage uploads each Segment to the remote scratch directory,
// retrying transient copy failures via the Worker's upload Retrier
// (spec §4.2.1 TransientCopyFailure), and forwards the item to the
// transcode stage once the upload lands.
func (w *Worker) runSendStage(ctx context.Context, in <-chan stageMsg, out chan<- stageMsg, fatalCh chan<- fatalFailure, stop chan struct{}) {
	for {
		msg, ok := recvOrStop(in, stop)
		if !ok {
			return
		}
		if msg.sentinel {
			w.update(func(s *workerState) { s.send = StageTelemetry{State: StageFinished} })
			select {
			case out <- msg:
			case <-stop:
			}
			return
		}

		w.update(func(s *workerState) {
			s.send = StageTelemetry{State: StageSending, QueueLen: len(in), Filename: string(msg.item)}
		})

		remotePath := w.remotePath(msg.item)
		localPath := string(msg.segment)

		sink := func(p remote.CopyProgress) {
			w.update(func(s *workerState) {
				s.copyPercent = p.Percent
				s.copyETA = p.ETA
			})
		}

		attempts := 0
		err := w.uploadRetrier.Do(ctx, func(ctx context.Context, attempt int) error {
			attempts = attempt
			return w.adapter.CopyTo(ctx, localPath, remotePath, sink)
		})
		if attempts > 1 {
			w.update(func(s *workerState) { s.retryCount += attempts - 1 })
		}
		if err != nil {
			select {
			case fatalCh <- fatalFailure{stage: "send", err: err}:
			default:
			}
			return
		}

		w.update(func(s *workerState) { s.send = StageTelemetry{State: StageIdle} })
		select {
		case out <- stageMsg{segment: msg.segment, item: msg.item}:
		case <-stop:
			return
		}
	}
}

// runTranscodeStage runs the remote transcoder against the uploaded input
// and forwards the item to the fetch stage once it exits zero. A non-zero
// exit or transport error is a FatalWorkerFailure (spec §4.2.1): this
// domain does not retry transcode failures in place.
func (w *Worker) runTranscodeStage(ctx context.Context, in <-chan stageMsg, out chan<- stageMsg, fatalCh chan<- fatalFailure, stop chan struct{}) {
	for {
		msg, ok := recvOrStop(in, stop)
		if !ok {
			return
		}
		if msg.sentinel {
			w.update(func(s *workerState) { s.transcode = StageTelemetry{State: StageFinished} })
			select {
			case out <- msg:
			case <-stop:
			}
			return
		}

		w.update(func(s *workerState) {
			s.transcode = StageTelemetry{State: StageCompressing, QueueLen: len(in), Filename: string(msg.item)}
		})
		w.markTranscodeContact()

		// -stats forces ffmpeg's progress printer even when stderr isn't a
		// tty (an SSH session's StderrPipe never is), and -y suppresses the
		// overwrite confirmation prompt that would otherwise block on
		// stdin on a re-run against an existing output (spec §4.2.2).
		argv := []string{w.transcoder, "-stats", "-y", "-i", w.remotePath(msg.item)}
		argv = append(argv, w.host.ExtraParamsArgs()...)
		argv = append(argv, w.remoteOutputPath(msg.item))

		stderrSink := func(record string) {
			// Every stderr record is contact, whether or not it parses as
			// a progress line (original_source/yaffmpegp.py's
			// self._last_contact update sits outside the regex branch).
			w.markTranscodeContact()
			if p, ok := remote.ParseTranscodeProgress(record); ok {
				w.update(func(s *workerState) {
					s.fps = p.FPS
					s.transcodeTime = p.Time
				})
			}
		}

		exitCode, err := w.adapter.Exec(ctx, argv, stderrSink)
		if err != nil {
			select {
			case fatalCh <- fatalFailure{stage: "transcode", err: err}:
			default:
			}
			return
		}
		if exitCode != 0 {
			select {
			case fatalCh <- fatalFailure{stage: "transcode", err: exitCodeError(exitCode)}:
			default:
			}
			return
		}

		// Admission is released here, on the transcode stage's success
		// path, not in the fetch stage: spec invariant 3 bounds in-flight
		// work to what's past the supervisor and not yet past transcode.
		w.admission.Release(1)

		w.update(func(s *workerState) { s.transcode = StageTelemetry{State: StageIdle} })
		select {
		case out <- stageMsg{segment: msg.segment, item: msg.item}:
		case <-stop:
			return
		}
	}
}

// runFetchStage downloads each transcoded output, records the finished
// path, and — once the sentinel arrives — issues one batched remote delete
// covering every WorkItem this stage fetched (spec §3 "cleanup collector";
// §7 CleanupFailure is logged and swallowed, never fatal, since the
// Segment's output has already landed locally by then).
//
// runFetchStage does not release the admission permit: spec invariant 3
// places that on the transcode stage's success path (see runTranscodeStage).
func (w *Worker) runFetchStage(ctx context.Context, in <-chan stageMsg, fatalCh chan<- fatalFailure, stop chan struct{}) {
	var cleanupPaths []string

	for {
		msg, ok := recvOrStop(in, stop)
		if !ok {
			return
		}
		if msg.sentinel {
			w.runCleanup(ctx, cleanupPaths)
			w.update(func(s *workerState) { s.fetch = StageTelemetry{State: StageFinished} })
			return
		}

		w.update(func(s *workerState) {
			s.fetch = StageTelemetry{State: StageDownloading, QueueLen: len(in), Filename: string(msg.item)}
		})

		remoteOut := w.remoteOutputPath(msg.item)
		localOut := w.localOutputPath(msg.item)

		sink := func(p remote.CopyProgress) {
			w.update(func(s *workerState) {
				s.copyPercent = p.Percent
				s.copyETA = p.ETA
			})
		}

		if err := w.adapter.CopyFrom(ctx, remoteOut, localOut, sink); err != nil {
			select {
			case fatalCh <- fatalFailure{stage: "fetch", err: err}:
			default:
			}
			return
		}

		cleanupPaths = append(cleanupPaths, w.remotePath(msg.item), remoteOut)

		w.update(func(s *workerState) {
			s.fetch = StageTelemetry{State: StageIdle}
			s.processedCount++
			s.producedPaths = append(s.producedPaths, localOut)
		})
	}
}

// runCleanup issues the batched "rm -f" described in spec §6.2/§7
// CleanupFailure. Errors are logged and swallowed: by the time this runs,
// every path in it has already been fetched locally.
func (w *Worker) runCleanup(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}
	argv := append([]string{"rm", "-f"}, paths...)
	if _, err := w.adapter.Exec(ctx, argv, nil); err != nil {
		w.logger.Warn(&slog.LogRecord{Msg: "remote cleanup failed", Error: err, Host: &w.host})
	}
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return fmt.Sprintf("remote transcoder exited %d", int(e))
}
