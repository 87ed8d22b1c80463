package main

import (
	"context"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/lsiudut/yaffmpegp/lib/dispatcher"
	yerrors "github.com/lsiudut/yaffmpegp/lib/errors"
	"github.com/lsiudut/yaffmpegp/lib/external"
	"github.com/lsiudut/yaffmpegp/lib/preflight"
	"github.com/lsiudut/yaffmpegp/lib/queue"
	"github.com/lsiudut/yaffmpegp/lib/remote"
	"github.com/lsiudut/yaffmpegp/lib/slog"
	"github.com/lsiudut/yaffmpegp/lib/status"
	"github.com/lsiudut/yaffmpegp/lib/worker"
	"golang.org/x/crypto/ssh"
)

// sshDialer is a preflight.Dialer and the one place Server builds an
// SSH client config, shared by the preflight version probe and the
// Workers' own long-lived connections.
type sshDialer struct {
	clientConfig func(user string) *ssh.ClientConfig
}

func (d *sshDialer) Dial(ctx context.Context, host core.Host) (remote.Adapter, error) {
	user, addr := splitEndpoint(host.Endpoint)
	return remote.Dial(addr, d.clientConfig(user), remote.DefaultKeepalive)
}

// splitEndpoint parses a Host.Endpoint in "user@host[:port]" form (spec §3)
// into the ssh.ClientConfig.User and the "host:port" dial address
// golang.org/x/crypto/ssh.Dial expects separately.
func splitEndpoint(endpoint string) (user, addr string) {
	if at := strings.IndexByte(endpoint, '@'); at >= 0 {
		user, addr = endpoint[:at], endpoint[at+1:]
	} else {
		addr = endpoint
	}
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}
	return user, addr
}

// Server wires every package built around lib/worker into one run, the
// way the teacher's cmd/tcplb Server wires lib/forwarder around a
// listener: NewServer only builds the SSH client config, Serve dials and
// runs to completion.
type Server struct {
	logger slog.Logger
	cfg    *Config
	dialer *sshDialer
}

// NewServer constructs a Server from cfg. It does not dial anything yet.
func NewServer(logger slog.Logger, cfg *Config) (*Server, error) {
	clientConfig := func(user string) *ssh.ClientConfig {
		auth := []ssh.AuthMethod{}
		if cfg.SSHKeyFile != "" {
			key, err := os.ReadFile(cfg.SSHKeyFile)
			if err == nil {
				if signer, err := ssh.ParsePrivateKey(key); err == nil {
					auth = append(auth, ssh.PublicKeys(signer))
				}
			}
		}
		return &ssh.ClientConfig{
			User:            user,
			Auth:            auth,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec -- fleet hosts are operator-supplied, not user-supplied
		}
	}
	return &Server{
		logger: logger,
		cfg:    cfg,
		dialer: &sshDialer{clientConfig: clientConfig},
	}, nil
}

// Serve runs preflight, segments the input, dispatches the fleet, renders
// telemetry, concatenates the results, and returns the process's exit
// code (spec §6.4).
func (s *Server) Serve(ctx context.Context) int {
	healthy, failed := s.preflight(ctx)
	if len(failed) > 0 {
		failedErrs := make([]error, len(failed))
		for i, f := range failed {
			failedErrs[i] = f.Err
		}
		s.logger.Warn(&slog.LogRecord{
			Msg:   "excluding hosts that failed preflight",
			Error: yerrors.AggregatePreflightErrors(failedErrs),
		})
	}
	if len(healthy) == 0 {
		s.logger.Error(&slog.LogRecord{Msg: "no healthy hosts; nothing to dispatch"})
		return 1
	}

	tmpDir, err := os.MkdirTemp("", "yaffmpegp-")
	if err != nil {
		s.logger.Error(&slog.LogRecord{Msg: "failed to create scratch directory", Error: err})
		return 1
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	segmenter := external.FFmpegSegmenter{}
	segments, err := segmenter.Segment(ctx, s.cfg.InputFile, s.cfg.SegmentSeconds, tmpDir)
	if err != nil {
		s.logger.Error(&slog.LogRecord{Msg: "segmenting failed", Error: err})
		return 1
	}
	s.logger.Info(&slog.LogRecord{Msg: "segmented input", Details: map[string]any{"segments": len(segments)}})

	q := queue.NewPreloaded(segments)

	workers := make([]*worker.Worker, 0, len(healthy))
	for host := range healthy {
		adapter, err := s.dialer.Dial(ctx, host)
		if err != nil {
			s.logger.Error(&slog.LogRecord{Msg: "failed to dial host for work, excluding from fleet", Error: err, Host: &host})
			continue
		}
		workers = append(workers, worker.New(worker.Config{
			Host:              host,
			Adapter:           adapter,
			Queue:             q,
			Logger:            s.logger,
			QLimit:            s.cfg.QLimit,
			AdmissionLimit:    s.cfg.AdmissionLimit,
			UploadMaxAttempts: s.cfg.MaxAttempts,
			Transcoder:        s.cfg.Transcoder,
			RemoteDir:         path.Join(s.cfg.RemoteBaseDir, "yaffmpegp-"+uuid.NewString()),
			OutputDir:         tmpDir,
			OutputSuffix:      s.cfg.OutputSuffix,
		}))
	}
	if len(workers) == 0 {
		s.logger.Error(&slog.LogRecord{Msg: "no worker could dial its host; nothing to dispatch"})
		return 1
	}

	d := dispatcher.New(q, workers, s.logger)

	reporter := &status.Reporter{Source: d.Telemetry, Out: os.Stdout, Interval: s.cfg.ReportInterval}
	reportCtx, stopReporting := context.WithCancel(ctx)
	defer stopReporting()
	go reporter.Run(reportCtx)

	var httpServer *http.Server
	if s.cfg.ListenAddress != "" {
		metrics := status.NewMetrics()
		handler := status.NewHTTPHandler(d.Telemetry, metrics)
		httpServer = &http.Server{Addr: s.cfg.ListenAddress, Handler: handler}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Warn(&slog.LogRecord{Msg: "status http server stopped", Error: err})
			}
		}()
		defer func() { _ = httpServer.Close() }()

		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go runMetricsLoop(metricsCtx, metrics, d.Telemetry, s.cfg.ReportInterval)
	}

	result := d.Run(ctx)
	stopReporting()
	reporter.Tick() // final frame after the run completes

	s.logger.Info(&slog.LogRecord{Msg: "dispatch complete", Details: map[string]any{
		"produced": len(result.ProducedPaths),
		"broken":   result.AnyBroken,
	}})

	if !result.Succeeded() {
		s.logger.Error(&slog.LogRecord{Msg: "dispatch failed: a worker broke with no surviving completion"})
		return 1
	}

	concatenator := external.FFmpegConcatenator{}
	if err := concatenator.Concatenate(ctx, result.ProducedPaths, s.cfg.OutputFile); err != nil {
		s.logger.Error(&slog.LogRecord{Msg: "concatenation failed", Error: err})
		return 1
	}

	return 0
}

// runMetricsLoop refreshes metrics from source on every interval until ctx
// is canceled, keeping /metrics in step with the same Telemetry the stdout
// Reporter renders.
func runMetricsLoop(ctx context.Context, metrics *status.Metrics, source status.Source, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.Update(source())
		}
	}
}

func (s *Server) preflight(ctx context.Context) (healthy core.HostSet, failed []preflight.Result) {
	hosts := core.NewHostSet(s.cfg.Hosts...)
	prober := &preflight.VersionProber{Dialer: s.dialer, Transcoder: s.cfg.Transcoder}
	results := preflight.ProbeAll(ctx, hosts, prober)
	return preflight.Healthy(results)
}
