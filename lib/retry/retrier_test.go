package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/lsiudut/yaffmpegp/lib/slog"
	"github.com/stretchr/testify/require"
)

func TestRetrierSucceedsOnThirdAttempt(t *testing.T) {
	r := &Retrier{Logger: &slog.RecordingLogger{}, MaxAttempts: 3, What: "upload"}

	attempts := 0
	err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		if attempt < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	recorder := &slog.RecordingLogger{}
	r := &Retrier{Logger: recorder, MaxAttempts: 3, What: "upload"}

	attempts := 0
	boom := errors.New("boom")
	err := r.Do(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, attempts)
	// 2 retries are logged as warnings; the final failure is the caller's to report.
	require.Len(t, recorder.Events, 2)
}
