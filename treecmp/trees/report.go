package trees

import (
	"path"
	"slices"
	"strings"
	"time"
)

// RootRelPath is the relative path of the report for the two roots themselves.
const RootRelPath = "."

// OneSidedEntry describes a name present in only one tree.
// Kind, Size and ModifiedAt are best effort; Error is set when the entry
// could not be inspected.
type OneSidedEntry struct {
	Name       string    `json:"name" yaml:"name"`
	Kind       EntryKind `json:"kind" yaml:"kind"`
	Size       uint64    `json:"size,omitempty" yaml:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at" yaml:"modified_at"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// InaccessibleEntry explains why a name could not be classified.
type InaccessibleEntry struct {
	Name   string `json:"name" yaml:"name"`
	Reason string `json:"reason" yaml:"reason"`
	Side   Side   `json:"side" yaml:"side"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DirectoryDiffReport is the comparison result for one directory pair and,
// through Subdirs, for everything below it.
type DirectoryDiffReport struct {
	RelPath   string `json:"path" yaml:"path"`
	LeftPath  string `json:"left" yaml:"left"`
	RightPath string `json:"right" yaml:"right"`

	Classification      EntryClassification `json:"classification" yaml:"classification"`
	OnlyLeftEntries     []OneSidedEntry     `json:"only_left_entries,omitempty" yaml:"only_left_entries,omitempty"`
	OnlyRightEntries    []OneSidedEntry     `json:"only_right_entries,omitempty" yaml:"only_right_entries,omitempty"`
	InaccessibleEntries []InaccessibleEntry `json:"inaccessible_entries,omitempty" yaml:"inaccessible_entries,omitempty"`

	// Files maps every common file name to its differences; identical files map to an empty list.
	Files map[string][]FileDifference `json:"files" yaml:"files"`
	// Subdirs holds one report per name in Classification.CommonDirs.
	Subdirs map[string]*DirectoryDiffReport `json:"subdirs" yaml:"subdirs"`

	// ListError is set when either directory of the pair could not be listed.
	ListError string `json:"list_error,omitempty" yaml:"list_error,omitempty"`
	// Truncated marks a pair that was not descended into because of the depth limit.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`

	HasDifferences bool `json:"has_differences" yaml:"has_differences"`
}

// NewDirectoryDiffReport creates an empty report for a directory pair.
func NewDirectoryDiffReport(relPath, leftPath, rightPath string) *DirectoryDiffReport {
	return &DirectoryDiffReport{
		RelPath:        relPath,
		LeftPath:       leftPath,
		RightPath:      rightPath,
		Classification: NewEntryClassification(),
		Files:          make(map[string][]FileDifference),
		Subdirs:        make(map[string]*DirectoryDiffReport),
	}
}

// ChildRelPath joins name onto the report's relative path.
func (r *DirectoryDiffReport) ChildRelPath(name string) string {
	if r.RelPath == RootRelPath || r.RelPath == "" {
		return name
	}
	return path.Join(r.RelPath, name)
}

// Depth is the number of path segments below the root.
func (r *DirectoryDiffReport) Depth() int {
	if r.RelPath == RootRelPath || r.RelPath == "" {
		return 0
	}
	return strings.Count(r.RelPath, "/") + 1
}

// SubdirNames returns the names of child reports in sorted order.
func (r *DirectoryDiffReport) SubdirNames() []string {
	names := make([]string, 0, len(r.Subdirs))
	for name := range r.Subdirs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DifferingFiles returns the names of common files with differences, sorted.
func (r *DirectoryDiffReport) DifferingFiles() []string {
	names := make([]string, 0, len(r.Files))
	for name, diffs := range r.Files {
		if len(diffs) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// LocalDifferences reports whether this pair alone, ignoring its
// subdirectories, has any difference.
func (r *DirectoryDiffReport) LocalDifferences() bool {
	if r.ListError != "" || r.Classification.HasStructuralDifferences() {
		return true
	}
	for _, diffs := range r.Files {
		if len(diffs) > 0 {
			return true
		}
	}
	return false
}

// Walk visits the report and its descendants in pre-order, children in
// name order. Returning false from fn skips that node's children.
// The traversal uses an explicit stack so deep trees do not grow the call stack.
func (r *DirectoryDiffReport) Walk(fn func(*DirectoryDiffReport) bool) {
	stack := []*DirectoryDiffReport{r}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(node) {
			continue
		}
		names := node.SubdirNames()
		for i := len(names) - 1; i >= 0; i-- {
			stack = append(stack, node.Subdirs[names[i]])
		}
	}
}

// Aggregate recomputes HasDifferences bottom-up for the whole tree and
// returns the root's value.
func (r *DirectoryDiffReport) Aggregate() bool {
	var order []*DirectoryDiffReport
	r.Walk(func(n *DirectoryDiffReport) bool {
		order = append(order, n)
		return true
	})
	// Reverse pre-order visits every child before its parent.
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		has := node.LocalDifferences()
		for _, child := range node.Subdirs {
			if has {
				break
			}
			has = child.HasDifferences
		}
		node.HasDifferences = has
	}
	return r.HasDifferences
}

// Find returns the descendant report at relPath, or nil.
func (r *DirectoryDiffReport) Find(relPath string) *DirectoryDiffReport {
	relPath = path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	if relPath == RootRelPath || relPath == "/" {
		return r
	}
	node := r
	for _, part := range strings.Split(strings.Trim(relPath, "/"), "/") {
		child, ok := node.Subdirs[part]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// Mirror returns a deep copy of the report with left and right swapped.
func (r *DirectoryDiffReport) Mirror() *DirectoryDiffReport {
	m := &DirectoryDiffReport{
		RelPath:          r.RelPath,
		LeftPath:         r.RightPath,
		RightPath:        r.LeftPath,
		Classification:   r.Classification.Mirror(),
		OnlyLeftEntries:  slices.Clone(r.OnlyRightEntries),
		OnlyRightEntries: slices.Clone(r.OnlyLeftEntries),
		Files:            make(map[string][]FileDifference, len(r.Files)),
		Subdirs:          make(map[string]*DirectoryDiffReport, len(r.Subdirs)),
		ListError:        r.ListError,
		Truncated:        r.Truncated,
		HasDifferences:   r.HasDifferences,
	}
	for _, e := range r.InaccessibleEntries {
		e.Side = e.Side.Opposite()
		m.InaccessibleEntries = append(m.InaccessibleEntries, e)
	}
	for name, diffs := range r.Files {
		mirrored := make([]FileDifference, len(diffs))
		for i, d := range diffs {
			mirrored[i] = d.Mirror()
		}
		m.Files[name] = mirrored
	}
	for name, child := range r.Subdirs {
		m.Subdirs[name] = child.Mirror()
	}
	return m
}

// Summary holds totals over a report tree.
type Summary struct {
	DirectoryPairs  int                    `json:"directory_pairs" yaml:"directory_pairs"`
	OnlyLeft        int                    `json:"only_left" yaml:"only_left"`
	OnlyRight       int                    `json:"only_right" yaml:"only_right"`
	Inaccessible    int                    `json:"inaccessible" yaml:"inaccessible"`
	CommonFiles     int                    `json:"common_files" yaml:"common_files"`
	DifferingFiles  int                    `json:"differing_files" yaml:"differing_files"`
	ListErrors      int                    `json:"list_errors" yaml:"list_errors"`
	Truncated       int                    `json:"truncated" yaml:"truncated"`
	DifferenceKinds map[DifferenceKind]int `json:"difference_kinds" yaml:"difference_kinds"`
}

// Summarize counts entries and differences over the whole tree.
func (r *DirectoryDiffReport) Summarize() Summary {
	s := Summary{DifferenceKinds: make(map[DifferenceKind]int)}
	r.Walk(func(n *DirectoryDiffReport) bool {
		s.DirectoryPairs++
		s.OnlyLeft += len(n.Classification.OnlyLeft)
		s.OnlyRight += len(n.Classification.OnlyRight)
		s.Inaccessible += len(n.Classification.Inaccessible)
		s.CommonFiles += len(n.Classification.CommonFiles)
		if n.ListError != "" {
			s.ListErrors++
		}
		if n.Truncated {
			s.Truncated++
		}
		for _, diffs := range n.Files {
			if len(diffs) == 0 {
				continue
			}
			s.DifferingFiles++
			for _, d := range diffs {
				s.DifferenceKinds[d.Kind]++
			}
		}
		return true
	})
	return s
}
