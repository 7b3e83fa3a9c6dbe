package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProgressTracker_Progress(t *testing.T) {
	// Given: a tracker in the extracting stage
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := newProgressTracker(clock.now)
	p.SetStage(StageExtracting, 100)

	// When: a quarter of the files are done after 10 seconds
	clock.advance(10 * time.Second)
	p.Update(25, "a.md")

	// Then
	stats := p.Stats()
	assert.Equal(t, StageExtracting, stats.Stage)
	assert.InDelta(t, 0.25, stats.Progress, 1e-9)
	assert.InDelta(t, 2.5, stats.Rate, 1e-9)
	assert.Equal(t, 30*time.Second, stats.ETA)
	assert.Equal(t, "a.md", stats.CurrentFile)
}

func TestProgressTracker_ETASmoothing(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := newProgressTracker(clock.now)
	p.SetStage(StageExtracting, 100)

	clock.advance(10 * time.Second)
	p.Update(50, "")
	first := p.Stats().ETA // raw: 10s

	clock.advance(30 * time.Second)
	p.Update(60, "")
	second := p.Stats().ETA // raw: 26.67s, smoothed towards 10s

	assert.Equal(t, 10*time.Second, first)
	assert.Greater(t, second, first)
	assert.Less(t, second, 26*time.Second)
}

func TestProgressTracker_ProgressClamped(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageExtracting, 2)
	p.Update(5, "")

	stats := p.Stats()
	assert.Equal(t, 1.0, stats.Progress)
	assert.Zero(t, stats.ETA)
}

func TestProgressTracker_SetStageResets(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageExtracting, 10)
	p.Update(10, "last.md")

	p.SetStage(StageWriting, 0)

	stats := p.Stats()
	assert.Equal(t, StageWriting, stats.Stage)
	assert.Zero(t, stats.Current)
	assert.Empty(t, stats.CurrentFile)
}

func TestProgressTracker_Errors(t *testing.T) {
	p := NewProgressTracker()
	p.AddError(ErrorEvent{File: "a.md", Err: errors.New("boom")})
	p.AddError(ErrorEvent{File: "b.md", Err: errors.New("meh"), IsWarn: true})

	stats := p.Stats()
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
	assert.Len(t, p.Errors(), 1)
	assert.Equal(t, "b.md", p.Warnings()[0].File)
}
