// Package metrics tracks build phase timings and counters.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// PhaseTiming is the duration of one named build phase.
type PhaseTiming struct {
	Name     string
	Duration time.Duration
}

// BuildMetrics tracks performance data during the build process. Counters
// are safe to increment from worker goroutines.
type BuildMetrics struct {
	StartTime time.Time
	EndTime   time.Time

	mu              sync.Mutex
	phases          []PhaseTiming
	pagesRendered   int
	filesWritten    int
	filesCopied     int
	imagesProcessed int
	cacheHits       int
	cacheMisses     int
}

// NewBuildMetrics creates a new metrics instance.
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{
		StartTime: time.Now(),
	}
}

// RecordEnd marks the end of the build.
func (m *BuildMetrics) RecordEnd() {
	m.EndTime = time.Now()
}

// TotalDuration returns the total build duration.
func (m *BuildMetrics) TotalDuration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// StartPhase starts timing a phase; call the returned func when it ends.
func (m *BuildMetrics) StartPhase(name string) func() {
	start := time.Now()
	return func() {
		m.mu.Lock()
		m.phases = append(m.phases, PhaseTiming{Name: name, Duration: time.Since(start)})
		m.mu.Unlock()
	}
}

// Phases returns the recorded phases in completion order.
func (m *BuildMetrics) Phases() []PhaseTiming {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PhaseTiming(nil), m.phases...)
}

func (m *BuildMetrics) add(counter *int, n int) {
	m.mu.Lock()
	*counter += n
	m.mu.Unlock()
}

func (m *BuildMetrics) IncrementPagesRendered() { m.add(&m.pagesRendered, 1) }
func (m *BuildMetrics) IncrementFilesWritten() { m.add(&m.filesWritten, 1) }
func (m *BuildMetrics) IncrementFilesCopied() { m.add(&m.filesCopied, 1) }
func (m *BuildMetrics) AddImagesProcessed(n int) { m.add(&m.imagesProcessed, n) }
func (m *BuildMetrics) IncrementCacheHit() { m.add(&m.cacheHits, 1) }
func (m *BuildMetrics) IncrementCacheMiss() { m.add(&m.cacheMisses, 1) }

// Counts is a snapshot of the counters.
type Counts struct {
	PagesRendered   int
	FilesWritten    int
	FilesCopied     int
	ImagesProcessed int
	CacheHits       int
	CacheMisses     int
}

func (m *BuildMetrics) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Counts{
		PagesRendered:   m.pagesRendered,
		FilesWritten:    m.filesWritten,
		FilesCopied:     m.filesCopied,
		ImagesProcessed: m.imagesProcessed,
		CacheHits:       m.cacheHits,
		CacheMisses:     m.cacheMisses,
	}
}

// CacheHitRate returns the cache hit percentage.
func (m *BuildMetrics) CacheHitRate() float64 {
	c := m.Counts()
	total := c.CacheHits + c.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(c.CacheHits) / float64(total) * 100
}

// String returns a single-line summary followed by phase timings.
func (m *BuildMetrics) String() string {
	c := m.Counts()
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Built %d pages in %v (%d written, %d copied, %d images)",
		c.PagesRendered,
		m.TotalDuration().Round(time.Millisecond),
		c.FilesWritten,
		c.FilesCopied,
		c.ImagesProcessed,
	)
	for _, p := range m.Phases() {
		fmt.Fprintf(&b, "\n   %-12s %v", p.Name, p.Duration.Round(time.Millisecond))
	}
	return b.String()
}

// Print outputs the metrics to stdout.
func (m *BuildMetrics) Print() {
	fmt.Println(m.String())
}
