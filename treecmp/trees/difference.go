package trees

import (
	"time"
)

// DifferenceKind names one category of file difference.
type DifferenceKind string

const (
	SizeMismatch    DifferenceKind = "size"
	TimeMismatch    DifferenceKind = "mtime"
	ContentMismatch DifferenceKind = "content"
	// ReadFailure is recorded when a common file's metadata could not be read
	// on one or both sides.
	ReadFailure DifferenceKind = "read_error"
)

// SizePair holds the sizes of both sides of a size mismatch.
type SizePair struct {
	Left  uint64 `json:"left" yaml:"left"`
	Right uint64 `json:"right" yaml:"right"`
}

// TimePair holds the modification times of both sides of a time mismatch.
type TimePair struct {
	Left  time.Time `json:"left" yaml:"left"`
	Right time.Time `json:"right" yaml:"right"`
}

// FileDifference is one reason why a common file pair is not identical.
// Only the fields belonging to Kind are set.
type FileDifference struct {
	Kind  DifferenceKind `json:"kind" yaml:"kind"`
	Size  *SizePair      `json:"size,omitempty" yaml:"size,omitempty"`
	Time  *TimePair      `json:"mtime,omitempty" yaml:"mtime,omitempty"`
	Side  Side           `json:"side,omitempty" yaml:"side,omitempty"`
	Error string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func NewSizeMismatch(left, right uint64) FileDifference {
	return FileDifference{Kind: SizeMismatch, Size: &SizePair{Left: left, Right: right}}
}

func NewTimeMismatch(left, right time.Time) FileDifference {
	return FileDifference{Kind: TimeMismatch, Time: &TimePair{Left: left, Right: right}}
}

func NewContentMismatch() FileDifference {
	return FileDifference{Kind: ContentMismatch}
}

// NewReadFailure records that metadata for side could not be read.
func NewReadFailure(side Side, err error) FileDifference {
	d := FileDifference{Kind: ReadFailure, Side: side}
	if err != nil {
		d.Error = err.Error()
	}
	return d
}

// Mirror returns the difference as seen with left and right swapped.
func (d FileDifference) Mirror() FileDifference {
	m := d
	if d.Size != nil {
		m.Size = &SizePair{Left: d.Size.Right, Right: d.Size.Left}
	}
	if d.Time != nil {
		m.Time = &TimePair{Left: d.Time.Right, Right: d.Time.Left}
	}
	if d.Side != "" {
		m.Side = d.Side.Opposite()
	}
	return m
}

// Kinds returns the kinds present in diffs, in order.
func Kinds(diffs []FileDifference) []DifferenceKind {
	kinds := make([]DifferenceKind, 0, len(diffs))
	for _, d := range diffs {
		kinds = append(kinds, d.Kind)
	}
	return kinds
}
