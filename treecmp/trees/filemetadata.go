package trees

import (
	"time"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/fingerprint"
)

// FileMetadata is a snapshot of one file taken at read time.
// It is never cached; every comparison reads it again from disk.
type FileMetadata struct {
	Size        uint64             `json:"size" yaml:"size"`
	ModifiedAt  time.Time          `json:"modified_at" yaml:"modified_at"`
	ContentHash fingerprint.Digest `json:"content_hash" yaml:"content_hash"`
}

// EqualityPolicy decides which attributes two files must share to be identical.
type EqualityPolicy struct {
	// CompareTimes enables the modification time check. Disabling it gives
	// content-only equality for pipelines that do not preserve timestamps.
	CompareTimes bool
	// TimeTolerance is the largest absolute mtime difference still treated as equal.
	TimeTolerance time.Duration
}

// StrictEquality requires size, exact modification time and content to match.
func StrictEquality() EqualityPolicy {
	return EqualityPolicy{CompareTimes: true}
}

// TimesEqual applies the time part of the policy.
func (p EqualityPolicy) TimesEqual(a, b time.Time) bool {
	if !p.CompareTimes {
		return true
	}
	if p.TimeTolerance <= 0 {
		return a.Equal(b)
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= p.TimeTolerance
}

// DiffFiles evaluates every check independently: a size mismatch never
// skips the content check and vice versa. An empty result means identical.
func DiffFiles(left, right FileMetadata, policy EqualityPolicy) []FileDifference {
	diffs := make([]FileDifference, 0, 3)

	if left.Size != right.Size {
		diffs = append(diffs, NewSizeMismatch(left.Size, right.Size))
	}
	if !policy.TimesEqual(left.ModifiedAt, right.ModifiedAt) {
		diffs = append(diffs, NewTimeMismatch(left.ModifiedAt, right.ModifiedAt))
	}
	if left.ContentHash != right.ContentHash {
		diffs = append(diffs, NewContentMismatch())
	}

	return diffs
}
