package worker

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/lsiudut/yaffmpegp/lib/remote"
)

// fakeAdapter is an in-memory remote.Adapter stand-in: no network, no real
// files. It records every Exec argv and lets a test fail the transcode
// step for a named WorkItem, or the first N CopyTo attempts, to exercise
// the send-stage retry and transcode fatal-failure paths without touching
// a filesystem or an SSH server.
type fakeAdapter struct {
	mu sync.Mutex

	transcodeFailItem string // WorkItem basename that fails transcode with exit 1
	failFirstNCopies  int    // CopyTo fails this many times per remotePath before succeeding

	copyAttempts map[string]int
	execArgs     [][]string
	closed       bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{copyAttempts: make(map[string]int)}
}

func (f *fakeAdapter) Exec(ctx context.Context, argv []string, stderrSink func(record string)) (int, error) {
	f.mu.Lock()
	f.execArgs = append(f.execArgs, append([]string(nil), argv...))
	f.mu.Unlock()

	if len(argv) == 0 {
		return -1, errors.New("fakeAdapter: empty argv")
	}
	if argv[0] == "rm" {
		return 0, nil
	}

	// Transcode invocation: argv is
	// [transcoder, -stats, -y, -i, remoteInput, ...extra, remoteOutput].
	for _, a := range argv {
		if f.transcodeFailItem != "" && strings.Contains(a, f.transcodeFailItem) {
			return 1, nil
		}
	}
	if stderrSink != nil {
		stderrSink("frame=1 fps=30.0 q=-1 size=100kB time=00:00:01.00 bitrate=1kbit/s speed=1x")
	}
	return 0, nil
}

func (f *fakeAdapter) CopyTo(ctx context.Context, localPath, remotePath string, sink remote.ProgressSink) error {
	f.mu.Lock()
	attempt := f.copyAttempts[remotePath]
	f.copyAttempts[remotePath] = attempt + 1
	fail := attempt < f.failFirstNCopies
	f.mu.Unlock()

	if fail {
		return errors.New("fakeAdapter: simulated transient copy failure")
	}
	if sink != nil {
		sink(remote.CopyProgress{Percent: 100, ETA: "00:00:00"})
	}
	return nil
}

func (f *fakeAdapter) CopyFrom(ctx context.Context, remotePath, localPath string, sink remote.ProgressSink) error {
	if sink != nil {
		sink(remote.CopyProgress{Percent: 100, ETA: "00:00:00"})
	}
	return nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var _ remote.Adapter = (*fakeAdapter)(nil)
