package trees

import (
	"slices"

	"github.com/RoaringBitmap/roaring"
)

// DiffLabel names one bitmap of a DiffIndex. Difference kinds and the
// structural categories share one namespace.
type DiffLabel string

const (
	LabelSize         = DiffLabel(SizeMismatch)
	LabelTime         = DiffLabel(TimeMismatch)
	LabelContent      = DiffLabel(ContentMismatch)
	LabelReadError    = DiffLabel(ReadFailure)
	LabelOnlyLeft     = DiffLabel(CategoryOnlyLeft)
	LabelOnlyRight    = DiffLabel(CategoryOnlyRight)
	LabelInaccessible = DiffLabel(CategoryInaccessible)
)

// DiffIndex assigns every reported entry a dense id and keeps one roaring
// bitmap of ids per label, so category combinations are answered with set
// operations instead of report walks.
type DiffIndex struct {
	paths   []string
	ids     map[string]uint32
	bitmaps map[DiffLabel]*roaring.Bitmap
}

// NewDiffIndex creates an empty index.
func NewDiffIndex() *DiffIndex {
	return &DiffIndex{
		ids:     make(map[string]uint32),
		bitmaps: make(map[DiffLabel]*roaring.Bitmap),
	}
}

// BuildDiffIndex indexes the differences and structural entries of a report tree.
func BuildDiffIndex(root *DirectoryDiffReport) *DiffIndex {
	idx := NewDiffIndex()
	root.Walk(func(node *DirectoryDiffReport) bool {
		for _, name := range node.Classification.OnlyLeft {
			idx.Add(node.ChildRelPath(name), LabelOnlyLeft)
		}
		for _, name := range node.Classification.OnlyRight {
			idx.Add(node.ChildRelPath(name), LabelOnlyRight)
		}
		for _, name := range node.Classification.Inaccessible {
			idx.Add(node.ChildRelPath(name), LabelInaccessible)
		}
		for _, name := range node.DifferingFiles() {
			for _, d := range node.Files[name] {
				idx.Add(node.ChildRelPath(name), DiffLabel(d.Kind))
			}
		}
		return true
	})
	return idx
}

// Add tags relPath with label.
func (idx *DiffIndex) Add(relPath string, label DiffLabel) {
	id, ok := idx.ids[relPath]
	if !ok {
		id = uint32(len(idx.paths))
		idx.paths = append(idx.paths, relPath)
		idx.ids[relPath] = id
	}
	bm, ok := idx.bitmaps[label]
	if !ok {
		bm = roaring.New()
		idx.bitmaps[label] = bm
	}
	bm.Add(id)
}

// Len is the number of distinct indexed paths.
func (idx *DiffIndex) Len() int {
	return len(idx.paths)
}

// Count returns how many paths carry label.
func (idx *DiffIndex) Count(label DiffLabel) uint64 {
	if bm, ok := idx.bitmaps[label]; ok {
		return bm.GetCardinality()
	}
	return 0
}

// Has reports whether relPath carries label.
func (idx *DiffIndex) Has(relPath string, label DiffLabel) bool {
	id, ok := idx.ids[relPath]
	if !ok {
		return false
	}
	bm, ok := idx.bitmaps[label]
	return ok && bm.Contains(id)
}

// All returns paths carrying every one of labels.
func (idx *DiffIndex) All(labels ...DiffLabel) []string {
	if len(labels) == 0 {
		return nil
	}
	bms := make([]*roaring.Bitmap, 0, len(labels))
	for _, l := range labels {
		bm, ok := idx.bitmaps[l]
		if !ok {
			return nil
		}
		bms = append(bms, bm)
	}
	return idx.resolve(roaring.FastAnd(bms...))
}

// Any returns paths carrying at least one of labels.
func (idx *DiffIndex) Any(labels ...DiffLabel) []string {
	bms := make([]*roaring.Bitmap, 0, len(labels))
	for _, l := range labels {
		if bm, ok := idx.bitmaps[l]; ok {
			bms = append(bms, bm)
		}
	}
	if len(bms) == 0 {
		return nil
	}
	return idx.resolve(roaring.FastOr(bms...))
}

// Only returns paths carrying label and none of the excluded labels,
// e.g. files whose modification time differs while size and content match.
func (idx *DiffIndex) Only(label DiffLabel, exclude ...DiffLabel) []string {
	bm, ok := idx.bitmaps[label]
	if !ok {
		return nil
	}
	result := bm.Clone()
	for _, l := range exclude {
		if other, ok := idx.bitmaps[l]; ok {
			result.AndNot(other)
		}
	}
	return idx.resolve(result)
}

// TimeOnly returns files that differ in modification time alone.
func (idx *DiffIndex) TimeOnly() []string {
	return idx.Only(LabelTime, LabelSize, LabelContent, LabelReadError)
}

func (idx *DiffIndex) resolve(bm *roaring.Bitmap) []string {
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, idx.paths[it.Next()])
	}
	slices.Sort(out)
	return out
}
