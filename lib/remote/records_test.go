package remote

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForEachRecordSplitsOnCRAndLF(t *testing.T) {
	// The transcoder emits its progress line as a bare-\r in-place update;
	// splitting only on \n would freeze progress until the process ends.
	input := "frame=1 fps=1.0 time=00:00:01.00\rframe=2 fps=2.0 time=00:00:02.00\rframe=3 fps=3.0 time=00:00:03.00\n"

	var records []string
	err := forEachRecord(strings.NewReader(input), func(record string) bool {
		records = append(records, record)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"frame=1 fps=1.0 time=00:00:01.00",
		"frame=2 fps=2.0 time=00:00:02.00",
		"frame=3 fps=3.0 time=00:00:03.00",
	}, records)
}

func TestForEachRecordHandlesCRLF(t *testing.T) {
	input := "one\r\ntwo\r\nthree"
	var records []string
	err := forEachRecord(strings.NewReader(input), func(record string) bool {
		records = append(records, record)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, records)
}

// chunkReader yields each element of chunks from a separate Read call, so a
// SplitFunc sees the data arrive exactly where a test wants a boundary to
// fall, rather than all at once as strings.Reader would deliver it.
type chunkReader struct{ chunks []string }

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestForEachRecordDoesNotSplitCRLFAcrossReads(t *testing.T) {
	// The \r arrives as the last byte of one Read, and its paired \n only
	// arrives on the next Read. Without waiting for it, splitRecords would
	// commit to the \r boundary and emit a spurious empty record between
	// "one" and "two".
	r := &chunkReader{chunks: []string{"one\r", "\ntwo"}}

	var records []string
	err := forEachRecord(r, func(record string) bool {
		records = append(records, record)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, records)
}

func TestForEachRecordStopsEarly(t *testing.T) {
	input := "one\ntwo\nthree\n"
	var records []string
	err := forEachRecord(strings.NewReader(input), func(record string) bool {
		records = append(records, record)
		return len(records) < 2
	})
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, records)
}
