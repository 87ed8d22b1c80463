// Package preflight detects ConfigurationError (spec §7.5): a missing
// remote transcoder binary or an unreachable host, checked once at startup
// via a version probe, before a Worker is allowed to start.
//
// Adapted from the teacher's lib/healthcheck.ProbePool, which fans a probe
// out across a set of upstreams on a *periodic* schedule and reports each
// observation to a belief-tracking sink. This domain's probing is a
// one-shot preflight gate, not an ongoing health belief (spec §7.5: probed
// "at start-up"), so the periodic ticker/HealthReportSink machinery
// collapses to a single fan-out-and-collect pass; what survives is the
// per-upstream worker/WaitGroup fan-out shape.
package preflight

import (
	"context"
	"sync"

	"github.com/lsiudut/yaffmpegp/lib/core"
)

// Prober probes a single Host, returning a non-nil error if the Host is not
// ready to accept work (unreachable, or missing the transcoder binary).
//
// Multiple goroutines may invoke Probe on a Prober simultaneously.
type Prober interface {
	Probe(ctx context.Context, host core.Host) error
}

// Result is the outcome of probing one Host.
type Result struct {
	Host core.Host
	Err  error // nil if the Host passed preflight
}

// ProbeAll probes every Host in hosts concurrently and returns one Result
// per Host once all probes complete.
func ProbeAll(ctx context.Context, hosts core.HostSet, prober Prober) []Result {
	results := make([]Result, len(hosts))

	var wg sync.WaitGroup
	i := 0
	for h := range hosts {
		wg.Add(1)
		go func(i int, h core.Host) {
			defer wg.Done()
			results[i] = Result{Host: h, Err: prober.Probe(ctx, h)}
		}(i, h)
		i++
	}
	wg.Wait()

	return results
}

// Healthy splits results into the Hosts that passed preflight and the
// Results for those that didn't.
func Healthy(results []Result) (healthy core.HostSet, failed []Result) {
	healthy = core.NewHostSet()
	for _, r := range results {
		if r.Err == nil {
			healthy[r.Host] = struct{}{}
		} else {
			failed = append(failed, r)
		}
	}
	return healthy, failed
}
