package worker

// Status is the overall Worker status (spec §3 "Worker state").
type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusRunning  Status = "RUNNING"
	StatusDraining Status = "DRAINING"
	StatusFinished Status = "FINISHED"
	StatusBroken   Status = "BROKEN"
)

// StageState is one of the three coarse states a pipeline stage can be in
// (spec §3: IDLE, ACTIVE, FINISHED), where the ACTIVE state is rendered
// using the stage-specific action word (SENDING / COMPRESSING /
// DOWNLOADING) per the literal telemetry format in spec §6.3.
type StageState string

const (
	StageIdle     StageState = "IDLE"
	StageFinished StageState = "FINISHED"

	// The three stage-specific ACTIVE labels (spec §3: ACTIVE = {SENDING
	// | TRANSCODING | DOWNLOADING}); the literal spelling used by the
	// transcode stage's rendered label is COMPRESSING, matching the
	// §6.3 telemetry example.
	StageSending     StageState = "SENDING"
	StageCompressing StageState = "COMPRESSING"
	StageDownloading StageState = "DOWNLOADING"
)
