package remote

import (
	"regexp"
	"strconv"
)

// CopyProgress is one observation of file-copy progress, reported via a
// ProgressSink.
type CopyProgress struct {
	Percent int
	ETA     string
}

// ProgressSink receives copy progress observations as they are produced.
//
// Multiple goroutines do not invoke a ProgressSink simultaneously: records
// are delivered one at a time, in arrival order, by the goroutine driving
// the copy.
type ProgressSink func(p CopyProgress)

// TranscodeProgress is one observation of remote transcoder progress.
type TranscodeProgress struct {
	FPS  float64
	Time string // e.g. "time=00:01:23.45", verbatim as emitted by the transcoder
}

// TranscodeProgressSink receives transcode progress observations.
type TranscodeProgressSink func(p TranscodeProgress)

var copyProgressPattern = regexp.MustCompile(`([0-9]+)%.*?([0-9:.\-]+) ETA`)

// parseCopyProgress matches the literal pattern specified for remote_copy
// progress lines: `N% … HH:MM:SS ETA`.
func parseCopyProgress(record string) (CopyProgress, bool) {
	m := copyProgressPattern.FindStringSubmatch(record)
	if m == nil {
		return CopyProgress{}, false
	}
	percent, err := strconv.Atoi(m[1])
	if err != nil {
		return CopyProgress{}, false
	}
	return CopyProgress{Percent: percent, ETA: m[2]}, true
}

var transcodeProgressPattern = regexp.MustCompile(`fps=\s*([0-9.]+).*?(time=[0-9:.]+)`)

// parseTranscodeProgress matches the literal pattern specified for the
// transcode stage's stderr records: `fps=<number>.*?time=<timecode>`.
func parseTranscodeProgress(record string) (TranscodeProgress, bool) {
	m := transcodeProgressPattern.FindStringSubmatch(record)
	if m == nil {
		return TranscodeProgress{}, false
	}
	fps, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return TranscodeProgress{}, false
	}
	return TranscodeProgress{FPS: fps, Time: m[2]}, true
}

// ParseCopyProgress is the exported form of parseCopyProgress, for callers
// outside this package.
func ParseCopyProgress(record string) (CopyProgress, bool) { return parseCopyProgress(record) }

// ParseTranscodeProgress is the exported form of parseTranscodeProgress;
// lib/worker uses it to scan the transcode stage's stderr records.
func ParseTranscodeProgress(record string) (TranscodeProgress, bool) {
	return parseTranscodeProgress(record)
}
