package trees

import (
	"fmt"
	"slices"
)

// Category names one set of an EntryClassification.
type Category string

const (
	CategoryOnlyLeft     Category = "only_left"
	CategoryOnlyRight    Category = "only_right"
	CategoryCommonFiles  Category = "common_files"
	CategoryCommonDirs   Category = "common_dirs"
	CategoryInaccessible Category = "inaccessible"
)

// EntryClassification partitions the union of entry names of one directory pair.
// Every name appears in exactly one set and each set is sorted.
type EntryClassification struct {
	OnlyLeft     []string `json:"only_left" yaml:"only_left"`
	OnlyRight    []string `json:"only_right" yaml:"only_right"`
	CommonFiles  []string `json:"common_files" yaml:"common_files"`
	CommonDirs   []string `json:"common_dirs" yaml:"common_dirs"`
	Inaccessible []string `json:"inaccessible" yaml:"inaccessible"`
}

// NewEntryClassification returns a classification with non-nil empty sets.
func NewEntryClassification() EntryClassification {
	return EntryClassification{
		OnlyLeft:     []string{},
		OnlyRight:    []string{},
		CommonFiles:  []string{},
		CommonDirs:   []string{},
		Inaccessible: []string{},
	}
}

func (c *EntryClassification) set(cat Category) *[]string {
	switch cat {
	case CategoryOnlyLeft:
		return &c.OnlyLeft
	case CategoryOnlyRight:
		return &c.OnlyRight
	case CategoryCommonFiles:
		return &c.CommonFiles
	case CategoryCommonDirs:
		return &c.CommonDirs
	case CategoryInaccessible:
		return &c.Inaccessible
	default:
		return nil
	}
}

// Categories lists every category in report order.
func Categories() []Category {
	return []Category{
		CategoryOnlyLeft,
		CategoryOnlyRight,
		CategoryCommonFiles,
		CategoryCommonDirs,
		CategoryInaccessible,
	}
}

// Set returns the names in cat.
func (c EntryClassification) Set(cat Category) []string {
	if s := c.set(cat); s != nil {
		return *s
	}
	return nil
}

// Add appends name to cat. Call Sort once all names are added.
func (c *EntryClassification) Add(cat Category, name string) {
	if s := c.set(cat); s != nil {
		*s = append(*s, name)
	}
}

// Move relocates name from one set to another, keeping the target sorted.
// It reports whether name was found in from.
func (c *EntryClassification) Move(name string, from, to Category) bool {
	src, dst := c.set(from), c.set(to)
	if src == nil || dst == nil {
		return false
	}
	i, found := slices.BinarySearch(*src, name)
	if !found {
		return false
	}
	*src = slices.Delete(*src, i, i+1)
	j, _ := slices.BinarySearch(*dst, name)
	*dst = slices.Insert(*dst, j, name)
	return true
}

// Sort orders every set lexicographically.
func (c *EntryClassification) Sort() {
	for _, cat := range Categories() {
		slices.Sort(*c.set(cat))
	}
}

// CategoryOf returns the set holding name.
func (c EntryClassification) CategoryOf(name string) (Category, bool) {
	for _, cat := range Categories() {
		if _, found := slices.BinarySearch(c.Set(cat), name); found {
			return cat, true
		}
	}
	return "", false
}

// Len is the number of classified names.
func (c EntryClassification) Len() int {
	n := 0
	for _, cat := range Categories() {
		n += len(c.Set(cat))
	}
	return n
}

// Names returns the sorted union of all sets.
func (c EntryClassification) Names() []string {
	names := make([]string, 0, c.Len())
	for _, cat := range Categories() {
		names = append(names, c.Set(cat)...)
	}
	slices.Sort(names)
	return names
}

// HasStructuralDifferences reports whether any name is one-sided or inaccessible.
func (c EntryClassification) HasStructuralDifferences() bool {
	return len(c.OnlyLeft) > 0 || len(c.OnlyRight) > 0 || len(c.Inaccessible) > 0
}

// Mirror returns the classification of the same pair with sides swapped.
func (c EntryClassification) Mirror() EntryClassification {
	return EntryClassification{
		OnlyLeft:     slices.Clone(c.OnlyRight),
		OnlyRight:    slices.Clone(c.OnlyLeft),
		CommonFiles:  slices.Clone(c.CommonFiles),
		CommonDirs:   slices.Clone(c.CommonDirs),
		Inaccessible: slices.Clone(c.Inaccessible),
	}
}

// Validate checks that the sets are sorted, free of duplicates and pairwise disjoint.
func (c EntryClassification) Validate() error {
	seen := make(map[string]Category, c.Len())
	for _, cat := range Categories() {
		set := c.Set(cat)
		if !slices.IsSorted(set) {
			return fmt.Errorf("%s is not sorted", cat)
		}
		for _, name := range set {
			if prev, dup := seen[name]; dup {
				return fmt.Errorf("%q appears in both %s and %s", name, prev, cat)
			}
			seen[name] = cat
		}
	}
	return nil
}
