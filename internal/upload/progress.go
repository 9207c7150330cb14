package upload

import (
	"math"
	"sync"
	"time"
)

const percentMultiplier = 100

// ProgressState is an immutable snapshot of upload progress.
// 0 <= Processed <= Total; Percentage is recomputed from the counts on every
// advance rather than incremented, so rounding never drifts.
type ProgressState struct {
	Processed  int `json:"processed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Progress tracks processed items across one upload run. It is advanced once
// per classified item, so progress visibly moves within a batch. Processed is
// monotonic until Reset. Safe for concurrent readers (e.g. a UI polling
// Snapshot while the session advances it).
type Progress struct {
	mu         sync.RWMutex
	processed  int
	total      int
	percentage int

	startTime  time.Time
	lastUpdate time.Time
}

// NewProgress returns a zeroed tracker. Begin must be called before Advance.
func NewProgress() *Progress {
	return &Progress{}
}

// Begin starts a run over total items, resetting counters. Percentage starts
// at 0 for a non-empty run and at 100 for an empty one.
func (p *Progress) Begin(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.processed = 0
	p.total = total
	p.percentage = computePercentage(0, total)
	p.startTime = now
	p.lastUpdate = now
}

// Advance records n more processed items, clamped to the total. Non-positive
// n is ignored; processed never decreases.
func (p *Progress) Advance(n int) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed += n
	if p.processed > p.total {
		p.processed = p.total
	}
	p.percentage = computePercentage(p.processed, p.total)
	p.lastUpdate = time.Now()
}

// Complete pins the percentage to 100 for a finished run.
func (p *Progress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.percentage = percentMultiplier
	p.lastUpdate = time.Now()
}

// Reset returns the tracker to its zero state.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed = 0
	p.total = 0
	p.percentage = 0
	p.startTime = time.Time{}
	p.lastUpdate = time.Time{}
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() ProgressState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressState{
		Processed:  p.processed,
		Total:      p.total,
		Percentage: p.percentage,
	}
}

// Elapsed returns the time since Begin, or zero before the first run.
func (p *Progress) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.startTime.IsZero() {
		return 0
	}
	return time.Since(p.startTime)
}

// ItemsPerSecond returns the processing rate of the current run.
func (p *Progress) ItemsPerSecond() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.startTime.IsZero() {
		return 0
	}
	elapsed := time.Since(p.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.processed) / elapsed
}

// computePercentage applies the documented rule: round(100*processed/total)
// when total > 0, else 100.
func computePercentage(processed, total int) int {
	if total <= 0 {
		return percentMultiplier
	}
	return int(math.Round(percentMultiplier * float64(processed) / float64(total)))
}
