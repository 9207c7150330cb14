package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_AdvanceRecomputesPercentage(t *testing.T) {
	p := NewProgress()
	p.Begin(3)

	assert.Equal(t, ProgressState{Processed: 0, Total: 3, Percentage: 0}, p.Snapshot())

	p.Advance(1)
	assert.Equal(t, ProgressState{Processed: 1, Total: 3, Percentage: 33}, p.Snapshot())

	p.Advance(1)
	assert.Equal(t, ProgressState{Processed: 2, Total: 3, Percentage: 67}, p.Snapshot())

	p.Advance(1)
	assert.Equal(t, ProgressState{Processed: 3, Total: 3, Percentage: 100}, p.Snapshot())
}

func TestProgress_Monotonic(t *testing.T) {
	p := NewProgress()
	p.Begin(10)

	p.Advance(4)
	p.Advance(0)
	p.Advance(-3)
	assert.Equal(t, 4, p.Snapshot().Processed)

	// Clamped at total.
	p.Advance(100)
	assert.Equal(t, ProgressState{Processed: 10, Total: 10, Percentage: 100}, p.Snapshot())
}

func TestProgress_EmptyTotal(t *testing.T) {
	p := NewProgress()
	p.Begin(0)
	assert.Equal(t, ProgressState{Processed: 0, Total: 0, Percentage: 100}, p.Snapshot())
}

func TestProgress_Complete(t *testing.T) {
	p := NewProgress()
	p.Begin(3)
	p.Advance(3)
	p.Complete()
	assert.Equal(t, 100, p.Snapshot().Percentage)
}

func TestProgress_Reset(t *testing.T) {
	p := NewProgress()
	p.Begin(5)
	p.Advance(2)

	p.Reset()
	assert.Equal(t, ProgressState{Processed: 0, Total: 0, Percentage: 0}, p.Snapshot())
	assert.Equal(t, float64(0), p.ItemsPerSecond())
}

func TestProgress_Rates(t *testing.T) {
	p := NewProgress()
	assert.Equal(t, int64(0), p.Elapsed().Nanoseconds())

	p.Begin(10)
	p.Advance(5)
	assert.Greater(t, p.Elapsed().Nanoseconds(), int64(0))
	assert.Greater(t, p.ItemsPerSecond(), 0.0)
}
