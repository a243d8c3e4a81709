package trees

import (
	"testing"
	"time"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryClassification(t *testing.T) {
	newSample := func() EntryClassification {
		c := NewEntryClassification()
		c.Add(CategoryOnlyLeft, "b.log")
		c.Add(CategoryOnlyLeft, "a.log")
		c.Add(CategoryOnlyRight, "z.log")
		c.Add(CategoryCommonFiles, "m.log")
		c.Add(CategoryCommonDirs, "sub")
		c.Add(CategoryCommonDirs, "loop")
		c.Add(CategoryInaccessible, "sock")
		c.Sort()
		return c
	}

	t.Run("sort and lookup", func(t *testing.T) {
		c := newSample()
		require.NoError(t, c.Validate())
		assert.Equal(t, []string{"a.log", "b.log"}, c.OnlyLeft)
		assert.Equal(t, []string{"loop", "sub"}, c.CommonDirs)
		assert.Equal(t, 7, c.Len())
		assert.Equal(t, []string{"a.log", "b.log", "loop", "m.log", "sock", "sub", "z.log"}, c.Names())

		cat, ok := c.CategoryOf("m.log")
		assert.True(t, ok)
		assert.Equal(t, CategoryCommonFiles, cat)
		_, ok = c.CategoryOf("nope")
		assert.False(t, ok)
	})

	t.Run("move keeps partition", func(t *testing.T) {
		c := newSample()
		assert.True(t, c.Move("loop", CategoryCommonDirs, CategoryInaccessible))
		assert.Equal(t, []string{"sub"}, c.CommonDirs)
		assert.Equal(t, []string{"loop", "sock"}, c.Inaccessible)
		assert.NoError(t, c.Validate())

		assert.False(t, c.Move("loop", CategoryCommonDirs, CategoryInaccessible))
	})

	t.Run("validate detects overlap and order", func(t *testing.T) {
		c := newSample()
		c.OnlyRight = append(c.OnlyRight, "a.log")
		assert.ErrorContains(t, c.Validate(), "a.log")

		c = newSample()
		c.OnlyLeft = []string{"b", "a"}
		assert.ErrorContains(t, c.Validate(), "not sorted")
	})

	t.Run("structural differences", func(t *testing.T) {
		c := NewEntryClassification()
		c.Add(CategoryCommonFiles, "f")
		assert.False(t, c.HasStructuralDifferences())
		c.Add(CategoryInaccessible, "g")
		assert.True(t, c.HasStructuralDifferences())
	})

	t.Run("mirror swaps one-sided sets", func(t *testing.T) {
		c := newSample()
		m := c.Mirror()
		assert.Equal(t, c.OnlyLeft, m.OnlyRight)
		assert.Equal(t, c.OnlyRight, m.OnlyLeft)
		assert.Equal(t, c.CommonFiles, m.CommonFiles)
		assert.Equal(t, c, m.Mirror())
	})
}

func TestDiffFiles(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	base := FileMetadata{Size: 100, ModifiedAt: t0, ContentHash: fingerprint.SumBytes([]byte("a"))}

	tests := []struct {
		name   string
		right  func(FileMetadata) FileMetadata
		policy EqualityPolicy
		want   []DifferenceKind
	}{
		{
			name:   "identical",
			right:  func(m FileMetadata) FileMetadata { return m },
			policy: StrictEquality(),
			want:   []DifferenceKind{},
		},
		{
			name: "content only, same size and time",
			right: func(m FileMetadata) FileMetadata {
				m.ContentHash = fingerprint.SumBytes([]byte("b"))
				return m
			},
			policy: StrictEquality(),
			want:   []DifferenceKind{ContentMismatch},
		},
		{
			name: "all three at once",
			right: func(m FileMetadata) FileMetadata {
				m.Size = 101
				m.ModifiedAt = m.ModifiedAt.Add(time.Hour)
				m.ContentHash = fingerprint.SumBytes([]byte("b"))
				return m
			},
			policy: StrictEquality(),
			want:   []DifferenceKind{SizeMismatch, TimeMismatch, ContentMismatch},
		},
		{
			name: "time ignored in content-only mode",
			right: func(m FileMetadata) FileMetadata {
				m.ModifiedAt = m.ModifiedAt.Add(time.Hour)
				return m
			},
			policy: EqualityPolicy{CompareTimes: false},
			want:   []DifferenceKind{},
		},
		{
			name: "within tolerance",
			right: func(m FileMetadata) FileMetadata {
				m.ModifiedAt = m.ModifiedAt.Add(-time.Second)
				return m
			},
			policy: EqualityPolicy{CompareTimes: true, TimeTolerance: 2 * time.Second},
			want:   []DifferenceKind{},
		},
		{
			name: "beyond tolerance",
			right: func(m FileMetadata) FileMetadata {
				m.ModifiedAt = m.ModifiedAt.Add(3 * time.Second)
				return m
			},
			policy: EqualityPolicy{CompareTimes: true, TimeTolerance: 2 * time.Second},
			want:   []DifferenceKind{TimeMismatch},
		},
		{
			name: "sub-second difference is strict by default",
			right: func(m FileMetadata) FileMetadata {
				m.ModifiedAt = m.ModifiedAt.Add(time.Nanosecond)
				return m
			},
			policy: StrictEquality(),
			want:   []DifferenceKind{TimeMismatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			right := tt.right(base)
			diffs := DiffFiles(base, right, tt.policy)
			assert.Equal(t, tt.want, Kinds(diffs))

			// Swapping sides yields the mirrored differences.
			swapped := DiffFiles(right, base, tt.policy)
			require.Len(t, swapped, len(diffs))
			for i := range diffs {
				assert.Equal(t, diffs[i].Mirror(), swapped[i])
			}
		})
	}

	t.Run("size values are reported", func(t *testing.T) {
		right := base
		right.Size = 7
		diffs := DiffFiles(base, right, StrictEquality())
		require.Len(t, diffs, 1)
		assert.Equal(t, &SizePair{Left: 100, Right: 7}, diffs[0].Size)
	})
}
