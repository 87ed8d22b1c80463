// Package external implements the two out-of-core collaborators the
// spec names but places out of scope for the dispatch engine itself
// (spec §1 "OUT OF SCOPE", §6.1): splitting the source file into Segments,
// and concatenating the returned parts into the final output.
//
// Grounded on original_source/yaffmpegp.py's two bare subprocess.run
// invocations (segmenting with "-f segment", concatenating with the
// "concat:" protocol), generalized into the Segmenter/Concatenator
// contracts spec §6.1 requires core to depend on only as interfaces.
package external

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lsiudut/yaffmpegp/lib/core"
)

// Segmenter splits a source file into fixed-length Segments, returned in
// temporal order (spec §6.1).
type Segmenter interface {
	Segment(ctx context.Context, input string, segmentSeconds int, tmpDir string) ([]core.Segment, error)
}

// Concatenator consumes the ordered list of local produced paths and
// writes a single output file (spec §6.1).
type Concatenator interface {
	Concatenate(ctx context.Context, paths []string, output string) error
}

// FFmpegSegmenter is the default Segmenter: it shells out to the local
// ffmpeg binary, mirroring the original program's segmenting invocation
// (original_source/yaffmpegp.py line 409).
type FFmpegSegmenter struct {
	// Binary is the local ffmpeg executable name or path. Defaults to
	// "ffmpeg".
	Binary string
}

// Segment implements Segmenter.
func (s FFmpegSegmenter) Segment(ctx context.Context, input string, segmentSeconds int, tmpDir string) ([]core.Segment, error) {
	binary := s.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	pattern := filepath.Join(tmpDir, "output%04d"+filepath.Ext(input))

	cmd := exec.CommandContext(ctx, binary,
		"-i", input,
		"-c", "copy",
		"-f", "segment",
		"-reset_timestamps", "1",
		"-segment_time", strconv.Itoa(segmentSeconds),
		pattern,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("external: segment %s: %w: %s", input, err, out)
	}

	matches, err := filepath.Glob(filepath.Join(tmpDir, "output*"+filepath.Ext(input)))
	if err != nil {
		return nil, fmt.Errorf("external: glob segmented output: %w", err)
	}
	sort.Strings(matches) // basenames are zero-padded, so lexical order is temporal order

	segments := make([]core.Segment, len(matches))
	for i, m := range matches {
		segments[i] = core.Segment(m)
	}
	return segments, nil
}

var _ Segmenter = FFmpegSegmenter{}

// FFmpegConcatenator is the default Concatenator: it shells out to the
// local ffmpeg binary using the concat: protocol, mirroring the original
// program's final step (original_source/yaffmpegp.py line 444).
type FFmpegConcatenator struct {
	Binary string
}

// Concatenate implements Concatenator.
func (c FFmpegConcatenator) Concatenate(ctx context.Context, paths []string, output string) error {
	binary := c.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	if len(paths) == 0 {
		return fmt.Errorf("external: concatenate: no produced paths")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-i", "concat:"+strings.Join(paths, "|"),
		"-c", "copy",
		output,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("external: concatenate into %s: %w: %s", output, err, out)
	}
	return nil
}

var _ Concatenator = FFmpegConcatenator{}
