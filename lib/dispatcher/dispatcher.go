// Package dispatcher starts one Worker per configured Host against a
// shared input queue, waits for the fleet to finish, and collects the
// ordered list of produced local paths for the Result Aggregator /
// Concatenator handoff (spec §2 "Dispatcher", §4.4, §6.4).
//
// Grounded on the teacher's cmd/tcplb server goroutine lifecycle: start N
// tasks, wait on all of them, then decide the process's fate from what
// they reported — generalized here from "accept loop per listener" to
// "pipeline per Worker".
package dispatcher

import (
	"context"
	"sort"
	"sync"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/lsiudut/yaffmpegp/lib/queue"
	"github.com/lsiudut/yaffmpegp/lib/slog"
	"github.com/lsiudut/yaffmpegp/lib/worker"
)

// Result summarizes one Dispatcher run (spec §6.4 exit behavior).
type Result struct {
	// ProducedPaths is the lexicographically sorted list of local output
	// paths collected from every Worker. Segment basenames sort in
	// temporal order (spec §6.1), so this ordering is what the
	// Concatenator should consume.
	ProducedPaths []string

	// WorkerStatuses is the final Telemetry snapshot for each Worker,
	// keyed by Host, taken after every Worker's Run has returned.
	WorkerStatuses map[core.Host]*worker.Telemetry

	// AnyBroken is true if at least one Worker ended BROKEN.
	AnyBroken bool
}

// Succeeded reports the spec §6.4 exit condition: non-zero (false) if any
// Worker ended BROKEN and no surviving Worker finished its in-flight
// Segment. We approximate "finished its in-flight segment" conservatively
// as: some Worker FINISHED cleanly. If every Worker broke, there is no
// survivor and the run fails outright.
func (r Result) Succeeded() bool {
	if !r.AnyBroken {
		return true
	}
	for _, t := range r.WorkerStatuses {
		if t.Status == worker.StatusFinished {
			return true
		}
	}
	return false
}

// Dispatcher owns a fleet of Workers sharing one input queue.
type Dispatcher struct {
	Queue   *queue.SharedQueue
	Workers []*worker.Worker
	Logger  slog.Logger
}

// New builds a Dispatcher with one Worker per entry in workers. The caller
// constructs each worker.Worker (via worker.New) against the same queue.
func New(q *queue.SharedQueue, workers []*worker.Worker, logger slog.Logger) *Dispatcher {
	return &Dispatcher{Queue: q, Workers: workers, Logger: logger}
}

// Run starts every Worker concurrently and blocks until all of them reach
// a terminal status (FINISHED or BROKEN), then returns the aggregated
// Result.
func (d *Dispatcher) Run(ctx context.Context) Result {
	var wg sync.WaitGroup
	wg.Add(len(d.Workers))
	for _, w := range d.Workers {
		w := w
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	wg.Wait()

	var produced []string
	statuses := make(map[core.Host]*worker.Telemetry, len(d.Workers))
	anyBroken := false
	for _, w := range d.Workers {
		snap := w.Telemetry()
		statuses[snap.Host] = snap
		produced = append(produced, snap.ProducedPaths...)
		if snap.Status == worker.StatusBroken {
			anyBroken = true
		}
	}
	sort.Strings(produced)

	return Result{
		ProducedPaths:  produced,
		WorkerStatuses: statuses,
		AnyBroken:      anyBroken,
	}
}

// Telemetry returns a live snapshot of every Worker in the fleet, keyed in
// the same order Workers was constructed with. Safe to call from any
// goroutine while Run is in progress, for the Status Reporter's polling
// loop (spec §2 "Status Reporter").
func (d *Dispatcher) Telemetry() []*worker.Telemetry {
	out := make([]*worker.Telemetry, len(d.Workers))
	for i, w := range d.Workers {
		out[i] = w.Telemetry()
	}
	return out
}
