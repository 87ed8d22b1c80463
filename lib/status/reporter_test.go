package status

import (
	"testing"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/lsiudut/yaffmpegp/lib/worker"
	"github.com/stretchr/testify/require"
)

func TestRenderWorkerLineMatchesLiteralFormat(t *testing.T) {
	telemetry := &worker.Telemetry{
		Host:   core.Host{Endpoint: "host1"},
		Status: worker.StatusRunning,
		Send: worker.StageTelemetry{
			State: worker.StageSending, QueueLen: 1, Filename: "clip0007.mp4",
		},
		Transcode: worker.StageTelemetry{
			State: worker.StageCompressing, QueueLen: 0, Filename: "clip0006.mp4",
		},
		Fetch:         worker.StageTelemetry{State: worker.StageIdle, QueueLen: 0},
		Stale:         false,
		FPS:           42.1,
		TranscodeTime: "time=00:01:23.45",
	}

	got := renderWorkerLine(3, telemetry)
	want := "host1  [p03]: ST: RUNNING | SENDER(SENDING, 1, ->clip0007.mp4) -> COMPRESS(COMPRESSING, 0, *clip0006.mp4) -> DOWNLOAD(IDLE, 0) | stale: False | fps: 42.1 time: time=00:01:23.45"
	require.Equal(t, want, got)
}

func TestRenderWorkerLineStaleTrue(t *testing.T) {
	telemetry := &worker.Telemetry{
		Host:   core.Host{Endpoint: "host2"},
		Status: worker.StatusRunning,
		Send:   worker.StageTelemetry{State: worker.StageIdle},
		Transcode: worker.StageTelemetry{
			State: worker.StageCompressing, QueueLen: 0, Filename: "clip0009.mp4",
		},
		Fetch: worker.StageTelemetry{State: worker.StageIdle},
		Stale: true,
		FPS:   0,
	}

	got := renderWorkerLine(0, telemetry)
	require.Contains(t, got, "stale: True")
}

func TestReporterAggregateLine(t *testing.T) {
	var buf fakeWriter
	r := &Reporter{
		Out: &buf,
		Source: func() []*worker.Telemetry {
			return []*worker.Telemetry{
				{
					Host: core.Host{Endpoint: "host1"}, Status: worker.StatusRunning,
					Transcode: worker.StageTelemetry{State: worker.StageCompressing}, FPS: 100,
				},
				{
					Host: core.Host{Endpoint: "host2"}, Status: worker.StatusRunning,
					Transcode: worker.StageTelemetry{State: worker.StageCompressing}, FPS: 200,
				},
			}
		},
	}

	r.Tick()
	require.Contains(t, buf.String(), "AVG: 300.00 fps | CURR: 300.00 fps")
}

func TestReporterAVGIsBoundedRollingMeanOfCURRSamples(t *testing.T) {
	var buf fakeWriter
	fps := 0.0
	r := &Reporter{
		Out: &buf,
		Source: func() []*worker.Telemetry {
			return []*worker.Telemetry{
				{
					Host: core.Host{Endpoint: "host1"}, Status: worker.StatusRunning,
					Transcode: worker.StageTelemetry{State: worker.StageCompressing}, FPS: fps,
				},
			}
		},
	}

	// Fill the window past its cap with a constant low value, then a burst
	// of high values: once the window is full, AVG must reflect only the
	// last maxFPSHistory CURR samples, not the lifetime average.
	fps = 10
	for i := 0; i < maxFPSHistory; i++ {
		r.Tick()
	}
	fps = 100
	for i := 0; i < maxFPSHistory; i++ {
		r.Tick()
	}

	require.Len(t, r.fpsHistory, maxFPSHistory)
	require.Contains(t, buf.String(), "AVG: 100.00 fps | CURR: 100.00 fps")
}

type fakeWriter struct{ data []byte }

func (w *fakeWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *fakeWriter) String() string { return string(w.data) }
