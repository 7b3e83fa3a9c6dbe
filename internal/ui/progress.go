package ui

import (
	"sync"
	"time"
)

// etaSmoothingFactor weights a new ETA estimate against the previous one.
const etaSmoothingFactor = 0.3

// ProgressTracker manages progress state across stages.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu          sync.Mutex
	stage       Stage
	current     int
	total       int
	currentFile string
	startTime   time.Time
	stageStart  time.Time
	errors      []ErrorEvent
	warnings    []ErrorEvent
	lastETA     time.Duration
	now         func() time.Time
}

// ProgressStats contains a snapshot of current progress.
type ProgressStats struct {
	Stage       Stage
	Current     int
	Total       int
	Progress    float64
	Rate        float64 // files per second in the current stage
	ETA         time.Duration
	Elapsed     time.Duration
	CurrentFile string
	ErrorCount  int
	WarnCount   int
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker() *ProgressTracker {
	return newProgressTracker(time.Now)
}

func newProgressTracker(now func() time.Time) *ProgressTracker {
	start := now()
	return &ProgressTracker{
		stage:      StageScanning,
		startTime:  start,
		stageStart: start,
		now:        now,
	}
}

// SetStage transitions to a new stage.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.current = 0
	p.currentFile = ""
	p.stageStart = p.now()
	p.lastETA = 0
}

// Update updates progress within the current stage.
func (p *ProgressTracker) Update(current int, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if file != "" {
		p.currentFile = file
	}
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Stats returns a snapshot of the current progress.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	stats := ProgressStats{
		Stage:       p.stage,
		Current:     p.current,
		Total:       p.total,
		Elapsed:     now.Sub(p.startTime),
		CurrentFile: p.currentFile,
		ErrorCount:  len(p.errors),
		WarnCount:   len(p.warnings),
	}
	if p.total > 0 {
		stats.Progress = min(float64(p.current)/float64(p.total), 1.0)
	}
	if inStage := now.Sub(p.stageStart); inStage > 0 && p.current > 0 {
		stats.Rate = float64(p.current) / inStage.Seconds()
	}
	stats.ETA = p.eta(now)
	return stats
}

// eta estimates the remaining time of the current stage, smoothed against
// the previous estimate. The caller holds mu.
func (p *ProgressTracker) eta(now time.Time) time.Duration {
	if p.current == 0 || p.total == 0 || p.current >= p.total {
		return 0
	}

	elapsed := now.Sub(p.stageStart)
	raw := time.Duration(float64(elapsed)/(float64(p.current)/float64(p.total))) - elapsed
	if raw < 0 {
		return 0
	}
	if p.lastETA == 0 {
		p.lastETA = raw
		return raw
	}
	p.lastETA = time.Duration(etaSmoothingFactor*float64(raw) + (1-etaSmoothingFactor)*float64(p.lastETA))
	return p.lastETA
}

// Errors returns the recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ErrorEvent(nil), p.errors...)
}

// Warnings returns the recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ErrorEvent(nil), p.warnings...)
}
