package remote

import (
	"context"
	"fmt"
	"io"
	"time"
)

// progressReader wraps an io.Reader, reporting (percent, ETA) progress to a
// ProgressSink as bytes are read. The underlying scp/SFTP progress meter
// the original program scraped from terminal output is not observable
// through a library call, so this synthesizes the same (percent, ETA)
// contract (spec §4.1) from observed byte counts against the known total
// size, throttled so a fast local copy doesn't flood the sink.
type progressReader struct {
	ctx        context.Context
	inner      io.Reader
	total      int64
	read       int64
	sink       ProgressSink
	start      time.Time
	lastReport time.Time
	lastPct    int
}

func newProgressReader(ctx context.Context, inner io.Reader, total int64, sink ProgressSink) *progressReader {
	return &progressReader{
		ctx:   ctx,
		inner: inner,
		total: total,
		sink:  sink,
		start: time.Now(),
	}
}

const progressReportInterval = 250 * time.Millisecond

func (p *progressReader) Read(buf []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.inner.Read(buf)
	p.read += int64(n)
	p.maybeReport()
	return n, err
}

func (p *progressReader) maybeReport() {
	if p.sink == nil || p.total <= 0 {
		return
	}
	percent := int(p.read * 100 / p.total)
	now := time.Now()
	if percent == p.lastPct && now.Sub(p.lastReport) < progressReportInterval {
		return
	}
	p.lastPct = percent
	p.lastReport = now

	eta := "00:00:00"
	if p.read > 0 && percent < 100 {
		elapsed := now.Sub(p.start)
		rate := float64(p.read) / elapsed.Seconds()
		if rate > 0 {
			remaining := float64(p.total-p.read) / rate
			eta = formatETA(time.Duration(remaining * float64(time.Second)))
		}
	}
	p.sink(CopyProgress{Percent: percent, ETA: eta})
}

func formatETA(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
