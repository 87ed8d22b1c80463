package dispatcher

import (
	"context"
	"sync"
	"testing"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/lsiudut/yaffmpegp/lib/queue"
	"github.com/lsiudut/yaffmpegp/lib/remote"
	"github.com/lsiudut/yaffmpegp/lib/slog"
	"github.com/lsiudut/yaffmpegp/lib/worker"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is a no-op remote.Adapter: every call succeeds immediately.
// Good enough to exercise the Dispatcher's fan-out/collect logic without a
// real SSH server.
type fakeAdapter struct{ mu sync.Mutex }

func (f *fakeAdapter) Exec(ctx context.Context, argv []string, sink func(record string)) (int, error) {
	return 0, nil
}
func (f *fakeAdapter) CopyTo(ctx context.Context, localPath, remotePath string, sink remote.ProgressSink) error {
	return nil
}
func (f *fakeAdapter) CopyFrom(ctx context.Context, remotePath, localPath string, sink remote.ProgressSink) error {
	return nil
}
func (f *fakeAdapter) Close() error { return nil }

var _ remote.Adapter = (*fakeAdapter)(nil)

func TestDispatcherCollectsSixSegmentsFromTwoHosts(t *testing.T) {
	segments := []core.Segment{
		"/in/clip0000.mp4", "/in/clip0001.mp4", "/in/clip0002.mp4",
		"/in/clip0003.mp4", "/in/clip0004.mp4", "/in/clip0005.mp4",
	}
	q := queue.NewPreloaded(segments)

	hosts := []core.Host{
		{Endpoint: "host1.example.com"},
		{Endpoint: "host2.example.com"},
	}
	workers := make([]*worker.Worker, len(hosts))
	for i, h := range hosts {
		workers[i] = worker.New(worker.Config{
			Host:              h,
			Adapter:           &fakeAdapter{},
			Queue:             q,
			Logger:            &slog.RecordingLogger{},
			QLimit:            0,
			AdmissionLimit:    2,
			UploadMaxAttempts: 3,
			Transcoder:        "ffmpeg",
			RemoteDir:         "/scratch/" + h.Endpoint,
			OutputDir:         "/out",
			OutputSuffix:      ".ts",
		})
	}

	d := New(q, workers, &slog.RecordingLogger{})
	result := d.Run(context.Background())

	require.True(t, result.Succeeded())
	require.False(t, result.AnyBroken)
	require.Len(t, result.ProducedPaths, 6)

	totalProcessed := 0
	for _, snap := range result.WorkerStatuses {
		require.Equal(t, worker.StatusFinished, snap.Status)
		totalProcessed += snap.ProcessedCount
	}
	require.Equal(t, 6, totalProcessed)

	want := []string{
		"/out/clip0000.mp4.ts", "/out/clip0001.mp4.ts", "/out/clip0002.mp4.ts",
		"/out/clip0003.mp4.ts", "/out/clip0004.mp4.ts", "/out/clip0005.mp4.ts",
	}
	require.Equal(t, want, result.ProducedPaths)
}
