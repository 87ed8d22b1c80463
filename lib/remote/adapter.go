// Package remote implements the Remote Exec / Copy Adapter contract
// (spec §4.1, §6.1): running a command on a remote host and copying files
// to/from it, backed by a real SSH transport rather than shelling out to
// the ssh/scp binaries. Grounded on the SSH session and SFTP client usage
// in other_examples/8592bdcb_purpleidea-mgmt__remote-remote.go.go, adapted
// to this domain's per-record stderr streaming and keepalive requirements.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// KeepaliveConfig tunes connection liveness detection so a hung remote end
// is noticed within tens of seconds rather than indefinitely (spec §4.1).
type KeepaliveConfig struct {
	Interval  time.Duration // how often to probe the connection
	MaxMissed int           // consecutive unanswered probes before the connection is declared dead
}

// DefaultKeepalive matches the SSH options (ServerAliveInterval=10,
// ServerAliveCountMax=3) of the original yaffmpegp.py compress_file
// command.
var DefaultKeepalive = KeepaliveConfig{Interval: 10 * time.Second, MaxMissed: 3}

// Adapter is the abstract remote exec/copy contract (spec §4.1).
type Adapter interface {
	// Exec starts argv on the remote host, streams stderr to stderrSink
	// one record at a time in arrival order, waits for completion, and
	// returns the remote process's exit code.
	Exec(ctx context.Context, argv []string, stderrSink func(record string)) (exitCode int, err error)

	// CopyTo copies the local file at localPath to remotePath on the
	// remote host, reporting progress to sink.
	CopyTo(ctx context.Context, localPath, remotePath string, sink ProgressSink) error

	// CopyFrom copies remotePath on the remote host to the local file at
	// localPath, reporting progress to sink.
	CopyFrom(ctx context.Context, remotePath, localPath string, sink ProgressSink) error

	// Close tears down the underlying connection.
	Close() error
}

// SSHAdapter is the default Adapter implementation.
//
// Multiple goroutines may invoke methods on an SSHAdapter simultaneously;
// the underlying ssh.Client and sftp.Client are both safe for concurrent
// use by multiple sessions.
type SSHAdapter struct {
	client    *ssh.Client
	sftp      *sftp.Client
	keepalive KeepaliveConfig

	closeOnce sync.Once
	stopKA    chan struct{}
}

// Dial establishes an SSHAdapter against addr (host:port) authenticating
// as configured by clientCfg, and starts the keepalive prober.
func Dial(addr string, clientCfg *ssh.ClientConfig, keepalive KeepaliveConfig) (*SSHAdapter, error) {
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", addr, err)
	}
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("remote: sftp handshake with %s: %w", addr, err)
	}
	a := &SSHAdapter{
		client:    client,
		sftp:      sftpClient,
		keepalive: keepalive,
		stopKA:    make(chan struct{}),
	}
	go a.probeKeepalive()
	return a, nil
}

// probeKeepalive periodically sends a global keepalive request and closes
// the connection once MaxMissed consecutive probes go unanswered. This is
// the mechanism spec §5 designates as the only thing that cancels a hung
// remote command; the §4.2.2 30s staleness flag is purely observational.
func (a *SSHAdapter) probeKeepalive() {
	if a.keepalive.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(a.keepalive.Interval)
	defer ticker.Stop()
	missed := 0
	for {
		select {
		case <-a.stopKA:
			return
		case <-ticker.C:
			ok, _, err := a.client.SendRequest("keepalive@openssh.com", true, nil)
			if err != nil || !ok {
				missed++
			} else {
				missed = 0
			}
			if a.keepalive.MaxMissed > 0 && missed >= a.keepalive.MaxMissed {
				_ = a.client.Close()
				return
			}
		}
	}
}

// Close tears down the SFTP and SSH connections and stops the keepalive
// prober. Close is idempotent.
func (a *SSHAdapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.stopKA)
		if a.sftp != nil {
			_ = a.sftp.Close()
		}
		err = a.client.Close()
	})
	return err
}

// Exec implements Adapter.
func (a *SSHAdapter) Exec(ctx context.Context, argv []string, stderrSink func(record string)) (int, error) {
	if len(argv) == 0 {
		return -1, errors.New("remote: Exec requires a non-empty argv")
	}
	session, err := a.client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("remote: new session: %w", err)
	}
	defer func() { _ = session.Close() }()

	stderrPipe, err := session.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("remote: stderr pipe: %w", err)
	}

	cmdline := shellQuoteJoin(argv)
	if err := session.Start(cmdline); err != nil {
		return -1, fmt.Errorf("remote: start %q: %w", cmdline, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = forEachRecord(stderrPipe, func(record string) bool {
			if stderrSink != nil {
				stderrSink(record)
			}
			return true
		})
	}()

	waitErr := session.Wait()

	select {
	case <-done:
	case <-ctx.Done():
		// The stderr reader goroutine will observe EOF once the session
		// tears down; we don't block Exec's return on it further.
	}

	var exitErr *ssh.ExitError
	switch {
	case waitErr == nil:
		return 0, nil
	case errors.As(waitErr, &exitErr):
		return exitErr.ExitStatus(), nil
	default:
		return -1, fmt.Errorf("remote: exec %q: %w", cmdline, waitErr)
	}
}

// CopyTo implements Adapter, copying local->remote via SFTP.
func (a *SSHAdapter) CopyTo(ctx context.Context, localPath, remotePath string, sink ProgressSink) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("remote: open local %s: %w", localPath, err)
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("remote: stat local %s: %w", localPath, err)
	}

	dst, err := a.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("remote: create remote %s: %w", remotePath, err)
	}
	defer func() { _ = dst.Close() }()

	reader := newProgressReader(ctx, src, info.Size(), sink)
	_, err = io.Copy(dst, reader)
	if err != nil {
		return fmt.Errorf("remote: copy %s -> %s: %w", localPath, remotePath, err)
	}
	return nil
}

// CopyFrom implements Adapter, copying remote->local via SFTP.
func (a *SSHAdapter) CopyFrom(ctx context.Context, remotePath, localPath string, sink ProgressSink) error {
	src, err := a.sftp.Open(remotePath)
	if err != nil {
		return fmt.Errorf("remote: open remote %s: %w", remotePath, err)
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("remote: stat remote %s: %w", remotePath, err)
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("remote: create local %s: %w", localPath, err)
	}
	defer func() { _ = dst.Close() }()

	reader := newProgressReader(ctx, src, info.Size(), sink)
	_, err = io.Copy(dst, reader)
	if err != nil {
		return fmt.Errorf("remote: copy %s -> %s: %w", remotePath, localPath, err)
	}
	return nil
}

var _ Adapter = (*SSHAdapter)(nil) // type check
