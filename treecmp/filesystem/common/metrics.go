package common

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ComparisonMetrics tracks the work done by one comparison run.
// Counters are updated atomically from worker goroutines.
type ComparisonMetrics struct {
	DirPairsVisited int64
	FilesCompared   int64
	FilesHashed     int64
	BytesHashed     int64
	EntryErrors     int64
	StartTime       time.Time
	EndTime         time.Time
}

// Snapshot is an immutable copy of ComparisonMetrics.
type Snapshot struct {
	DirPairsVisited int64         `json:"dir_pairs_visited" yaml:"dir_pairs_visited"`
	FilesCompared   int64         `json:"files_compared" yaml:"files_compared"`
	FilesHashed     int64         `json:"files_hashed" yaml:"files_hashed"`
	BytesHashed     int64         `json:"bytes_hashed" yaml:"bytes_hashed"`
	EntryErrors     int64         `json:"entry_errors" yaml:"entry_errors"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
}

// NewComparisonMetrics creates metrics with the start time set to now.
func NewComparisonMetrics() *ComparisonMetrics {
	return &ComparisonMetrics{StartTime: time.Now()}
}

func (m *ComparisonMetrics) AddDirPair() { atomic.AddInt64(&m.DirPairsVisited, 1) }

func (m *ComparisonMetrics) AddFilePair() { atomic.AddInt64(&m.FilesCompared, 1) }

func (m *ComparisonMetrics) AddEntryError() { atomic.AddInt64(&m.EntryErrors, 1) }

// AddHashed records one hashed file of the given size.
func (m *ComparisonMetrics) AddHashed(bytes uint64) {
	atomic.AddInt64(&m.FilesHashed, 1)
	atomic.AddInt64(&m.BytesHashed, int64(bytes))
}

// Finish stamps the end time. Calling it again moves the end time forward.
func (m *ComparisonMetrics) Finish() {
	m.EndTime = time.Now()
}

// Snapshot returns the current counter values.
func (m *ComparisonMetrics) Snapshot() Snapshot {
	end := m.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return Snapshot{
		DirPairsVisited: atomic.LoadInt64(&m.DirPairsVisited),
		FilesCompared:   atomic.LoadInt64(&m.FilesCompared),
		FilesHashed:     atomic.LoadInt64(&m.FilesHashed),
		BytesHashed:     atomic.LoadInt64(&m.BytesHashed),
		EntryErrors:     atomic.LoadInt64(&m.EntryErrors),
		Duration:        end.Sub(m.StartTime),
	}
}

// Throughput returns hashed bytes per second over the run duration.
func (s Snapshot) Throughput() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.BytesHashed) / s.Duration.Seconds()
}

// TimeUtils provides time-related utilities used across packages
type TimeUtils struct{}

// NewTimeUtils creates a new TimeUtils instance
func NewTimeUtils() *TimeUtils {
	return &TimeUtils{}
}

// FormatDuration formats a duration for human-readable display
func (tu TimeUtils) FormatDuration(duration time.Duration) string {
	if duration < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(duration.Nanoseconds())/1000)
	} else if duration < time.Second {
		return fmt.Sprintf("%.2fms", float64(duration.Nanoseconds())/1000000)
	} else if duration < time.Minute {
		return fmt.Sprintf("%.2fs", duration.Seconds())
	} else if duration < time.Hour {
		return fmt.Sprintf("%.2fm", duration.Minutes())
	} else {
		return fmt.Sprintf("%.2fh", duration.Hours())
	}
}
