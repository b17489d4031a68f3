package orchestrator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/ingest"
)

// progressTracker emits a structured progress record every interval items
// and once more at the end of the batch.
type progressTracker struct {
	interval int
	total    int
	start    time.Time
	clock    ingest.Clock
	logger   *zap.Logger
}

func newProgressTracker(interval, total int, start time.Time, clock ingest.Clock, logger *zap.Logger) *progressTracker {
	return &progressTracker{
		interval: interval,
		total:    total,
		start:    start,
		clock:    clock,
		logger:   logger,
	}
}

// observe is called after each item with the count handled so far.
func (p *progressTracker) observe(done int, stats ingest.ProcessingStats) {
	if !p.shouldEmit(done) {
		return
	}
	elapsed := p.clock.Now().Sub(p.start)
	p.logger.Info("progress",
		zap.Int("processed", done),
		zap.Int("total", p.total),
		zap.Float64("percent", float64(done)/float64(p.total)*100),
		zap.Float64("cache_hit_rate", stats.CacheHitRatePercent()),
		zap.String("elapsed", formatElapsed(elapsed)),
		zap.String("eta", formatElapsed(eta(elapsed, done, p.total))),
	)
}

// shouldEmit reports whether a record is due: every interval items and once
// more at the end of the batch.
func (p *progressTracker) shouldEmit(done int) bool {
	if p.total == 0 || done == 0 {
		return false
	}
	return done%p.interval == 0 || done == p.total
}

// eta linearly extrapolates the remaining runtime from the average pace so
// far.
func eta(elapsed time.Duration, done, total int) time.Duration {
	if done == 0 {
		return 0
	}
	return time.Duration(float64(elapsed) / float64(done) * float64(total-done))
}

// formatElapsed renders durations the way operators read them: "2h 5m",
// "15m 45s", "45s".
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
