package preflight

import (
	"context"
	"fmt"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/lsiudut/yaffmpegp/lib/remote"
)

// Dialer opens a remote.Adapter for a Host. Probing owns the adapter it
// opens only for the duration of the probe; the Worker dials its own
// long-lived adapter separately once preflight has passed.
type Dialer interface {
	Dial(ctx context.Context, host core.Host) (remote.Adapter, error)
}

// VersionProber runs "<Transcoder> -version" on the remote host and fails
// the probe if the command cannot be dialed or exits non-zero, matching
// the original program's check_ffmpeg startup probe
// (original_source/yaffmpegp.py lines 107-123).
type VersionProber struct {
	Dialer     Dialer
	Transcoder string // e.g. "ffmpeg"
}

func (p *VersionProber) Probe(ctx context.Context, host core.Host) error {
	adapter, err := p.Dialer.Dial(ctx, host)
	if err != nil {
		return fmt.Errorf("preflight: dial %s: %w", host.Endpoint, err)
	}
	defer func() { _ = adapter.Close() }()

	exitCode, err := adapter.Exec(ctx, []string{p.Transcoder, "-version"}, nil)
	if err != nil {
		return fmt.Errorf("preflight: probe %s: %w", host.Endpoint, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("preflight: %s -version exited %d on %s", p.Transcoder, exitCode, host.Endpoint)
	}
	return nil
}

var _ Prober = (*VersionProber)(nil) // type check
