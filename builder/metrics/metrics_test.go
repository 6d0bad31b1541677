package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewBuildMetrics(t *testing.T) {
	m := NewBuildMetrics()

	if m.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
	if !m.EndTime.IsZero() {
		t.Error("EndTime should be zero initially")
	}
	if c := m.Counts(); c != (Counts{}) {
		t.Errorf("counters should start at zero, got %+v", c)
	}
}

func TestTotalDuration(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*BuildMetrics)
		expected func(time.Duration) bool
	}{
		{
			name: "returns elapsed time when end not set",
			setup: func(m *BuildMetrics) {
				m.StartTime = time.Now().Add(-time.Second)
			},
			expected: func(d time.Duration) bool {
				return d >= time.Second
			},
		},
		{
			name: "returns total duration when end is set",
			setup: func(m *BuildMetrics) {
				m.StartTime = time.Now().Add(-5 * time.Second)
				m.EndTime = time.Now()
			},
			expected: func(d time.Duration) bool {
				return d >= 5*time.Second && d < 6*time.Second
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewBuildMetrics()
			tt.setup(m)
			if d := m.TotalDuration(); !tt.expected(d) {
				t.Errorf("TotalDuration() = %v, unexpected value", d)
			}
		})
	}
}

func TestConcurrentCounters(t *testing.T) {
	m := NewBuildMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementPagesRendered()
			m.IncrementFilesWritten()
			m.AddImagesProcessed(2)
		}()
	}
	wg.Wait()

	c := m.Counts()
	if c.PagesRendered != 50 || c.FilesWritten != 50 || c.ImagesProcessed != 100 {
		t.Errorf("Counts() = %+v", c)
	}
}

func TestCacheHitRate(t *testing.T) {
	m := NewBuildMetrics()
	if m.CacheHitRate() != 0 {
		t.Error("hit rate should be 0 with no lookups")
	}
	m.IncrementCacheHit()
	m.IncrementCacheHit()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	if got := m.CacheHitRate(); got != 75 {
		t.Errorf("CacheHitRate() = %v, want 75", got)
	}
}

func TestStringIncludesPhases(t *testing.T) {
	m := NewBuildMetrics()
	done := m.StartPhase("styles")
	done()
	m.IncrementPagesRendered()
	m.RecordEnd()

	s := m.String()
	if !strings.Contains(s, "Built 1 pages") {
		t.Errorf("String() missing page count: %q", s)
	}
	if !strings.Contains(s, "styles") {
		t.Errorf("String() missing phase: %q", s)
	}
	if len(m.Phases()) != 1 {
		t.Errorf("Phases() = %v", m.Phases())
	}
}
