package watcher

import (
	"slices"
	"time"
)

// EventType represents the type of file system event
type EventType int

const (
	// EventCreate represents file/directory creation
	EventCreate EventType = iota
	// EventWrite represents file modification
	EventWrite
	// EventRemove represents file/directory removal
	EventRemove
	// EventRename represents file/directory rename
	EventRename
	// EventChmod represents permission changes
	EventChmod
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	case EventChmod:
		return "chmod"
	default:
		return "unknown"
	}
}

// Event represents a file system event below one of the watched roots
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Batch is a set of events that settled within one debounce window.
type Batch struct {
	Events []Event
}

// Paths returns the distinct paths touched by the batch, sorted.
func (b Batch) Paths() []string {
	paths := make([]string, 0, len(b.Events))
	for _, ev := range b.Events {
		paths = append(paths, ev.Path)
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

// Config holds configuration for the watcher
type Config struct {
	// Debounce is the quiet period after the last event before a batch is emitted
	Debounce time.Duration

	// MaxDelay caps how long a continuous stream of events can hold a batch back
	MaxDelay time.Duration

	// QueueCapacity is the number of settled batches buffered for the consumer
	QueueCapacity int
}

// DefaultConfig returns a default watcher configuration
func DefaultConfig() Config {
	return Config{
		Debounce:      500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		QueueCapacity: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.MaxDelay < c.Debounce {
		c.MaxDelay = 10 * c.Debounce
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = d.QueueCapacity
	}
	return c
}
