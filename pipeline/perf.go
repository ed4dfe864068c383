package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/montanaflynn/stats"
)

// StageSummary describes the latency distribution of one stage in milliseconds.
type StageSummary struct {
	Stage  string
	Count  int
	Mean   float64
	Median float64
	P95    float64
	Max    float64
}

// PerfStats accumulates stage timings over a run.
type PerfStats struct {
	mu      sync.Mutex
	samples map[string]stats.Float64Data
}

// NewPerfStats returns an empty collector.
func NewPerfStats() *PerfStats {
	return &PerfStats{samples: map[string]stats.Float64Data{}}
}

// Record adds a set of stage timings.
func (p *PerfStats) Record(timings map[string]time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for stage, d := range timings {
		p.samples[stage] = append(p.samples[stage], float64(d)/float64(time.Millisecond))
	}
}

// Summary returns one entry per recorded stage, sorted by stage name.
func (p *PerfStats) Summary() ([]StageSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StageSummary, 0, len(p.samples))
	for stage, data := range p.samples {
		s := StageSummary{Stage: stage, Count: data.Len()}
		var err error
		if s.Mean, err = data.Mean(); err != nil {
			return nil, err
		}
		if s.Median, err = data.Median(); err != nil {
			return nil, err
		}
		if s.P95, err = data.PercentileNearestRank(95); err != nil {
			return nil, err
		}
		if s.Max, err = data.Max(); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out, nil
}

// Log writes the summary at info level.
func (p *PerfStats) Log(logger golog.Logger) {
	summary, err := p.Summary()
	if err != nil {
		logger.Warnw("cannot summarize timings", "error", err)
		return
	}
	for _, s := range summary {
		logger.Infow("stage timing (ms)",
			"stage", s.Stage, "frames", s.Count, "mean", s.Mean, "median", s.Median, "p95", s.P95, "max", s.Max)
	}
}
