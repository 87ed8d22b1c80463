package core

import "path/filepath"

// Segment is an opaque local file path naming one input chunk to be
// transcoded. It is immutable once enqueued on the shared input queue.
type Segment string

// Basename returns the filename component of the Segment, which is also
// the WorkItem identifier used once the Segment is picked up by a Worker.
func (s Segment) Basename() string {
	return filepath.Base(string(s))
}

// WorkItem is, within a single Worker, the short identifier that names both
// the uploaded input on the remote host and the produced output. It is the
// Segment's base filename.
type WorkItem string

// NewWorkItem derives the WorkItem identifier for a Segment.
func NewWorkItem(s Segment) WorkItem {
	return WorkItem(s.Basename())
}

func (w WorkItem) String() string {
	return string(w)
}
