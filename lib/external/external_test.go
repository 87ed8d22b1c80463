package external

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/stretchr/testify/require"
)

// writeFakeBinary writes a tiny shell script standing in for ffmpeg so the
// test can exercise Segment's glob/sort logic without a real ffmpeg build.
func writeFakeBinary(t *testing.T, dir, script string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-ffmpeg.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestFFmpegSegmenterReturnsTemporalOrder(t *testing.T) {
	tmp := t.TempDir()
	// Creates the files ffmpeg's segmenter would have, out of order, to
	// prove the result is sorted rather than glob-order-dependent.
	binary := writeFakeBinary(t, tmp, `
for f in output0002.mp4 output0000.mp4 output0001.mp4; do
  touch "`+tmp+`/$f"
done
`)

	s := FFmpegSegmenter{Binary: binary}
	segments, err := s.Segment(context.Background(), "input.mp4", 30, tmp)
	require.NoError(t, err)
	require.Equal(t, []core.Segment{
		core.Segment(filepath.Join(tmp, "output0000.mp4")),
		core.Segment(filepath.Join(tmp, "output0001.mp4")),
		core.Segment(filepath.Join(tmp, "output0002.mp4")),
	}, segments)
}

func TestFFmpegConcatenatorRejectsEmptyInput(t *testing.T) {
	c := FFmpegConcatenator{}
	err := c.Concatenate(context.Background(), nil, "out.mp4")
	require.Error(t, err)
}
