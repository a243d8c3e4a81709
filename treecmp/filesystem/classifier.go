package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/common"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/filter"
	"github.com/ZanzyTHEbar/treecmp/treecmp/trees"
)

// Classified is the outcome of classifying one directory pair.
type Classified struct {
	Classification trees.EntryClassification
	OnlyLeft       []trees.OneSidedEntry
	OnlyRight      []trees.OneSidedEntry
	Inaccessible   []trees.InaccessibleEntry

	// identities of common directories, for the cycle guard
	dirIDs map[string]dirPairID
}

type dirPairID struct {
	left, right       fileID
	hasLeft, hasRight bool
}

// resolved is one side of one entry after following symlinks.
type resolved struct {
	present bool
	kind    trees.EntryKind
	info    fs.FileInfo
	err     error
}

// isDir reports whether the entry resolved to a directory, falling back to
// the listing type when it could not be resolved.
func (r resolved) isDir(entry fs.DirEntry) bool {
	if !r.present {
		return false
	}
	if r.err == nil {
		return r.kind == trees.KindDirectory
	}
	return entry != nil && entry.IsDir()
}

// EntryClassifier partitions the entries of two directories.
type EntryClassifier struct {
	filter *filter.Filter
	logger zerolog.Logger
}

// NewEntryClassifier creates a classifier. f may be nil to compare every entry.
func NewEntryClassifier(f *filter.Filter, logger zerolog.Logger) *EntryClassifier {
	return &EntryClassifier{filter: f, logger: logger}
}

// Classify partitions the entries of leftDir and rightDir, treating them as
// the roots of the comparison for filtering purposes.
func (c *EntryClassifier) Classify(ctx context.Context, leftDir, rightDir string) (*Classified, error) {
	return c.ClassifyAt(ctx, trees.RootRelPath, leftDir, rightDir)
}

// ClassifyAt partitions the entries of a directory pair found at relDir
// below the roots. Each name lands in exactly one set:
//
//   - a name whose entry cannot be resolved on a side where it exists
//     (stat failure, dangling link, neither file nor directory) is inaccessible
//   - a name that is a file on one side and a directory on the other is inaccessible
//   - a common regular file that cannot be opened for reading is inaccessible
//   - otherwise names on both sides are common files or common directories,
//     and names on one side are only-left or only-right
//
// An error is returned only when a directory cannot be listed.
func (c *EntryClassifier) ClassifyAt(ctx context.Context, relDir, leftDir, rightDir string) (*Classified, error) {
	leftEntries, err := listDir(leftDir)
	if err != nil {
		return nil, err
	}
	rightEntries, err := listDir(rightDir)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(leftEntries)+len(rightEntries))
	for name := range leftEntries {
		names[name] = struct{}{}
	}
	for name := range rightEntries {
		names[name] = struct{}{}
	}

	out := &Classified{
		Classification: trees.NewEntryClassification(),
		dirIDs:         make(map[string]dirPairID),
	}

	for name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		leftEntry, inLeft := leftEntries[name]
		rightEntry, inRight := rightEntries[name]

		var left, right resolved
		if inLeft {
			left = resolve(filepath.Join(leftDir, name))
		}
		if inRight {
			right = resolve(filepath.Join(rightDir, name))
		}

		// Directory rules apply to links that resolve to directories.
		relPath := joinRel(relDir, name)
		if c.filter.Excluded(relPath, left.isDir(leftEntry) || right.isDir(rightEntry)) {
			c.logger.Debug().Str("path", relPath).Msg("entry excluded")
			continue
		}

		c.place(out, name, filepath.Join(leftDir, name), filepath.Join(rightDir, name), left, right)
	}

	out.Classification.Sort()
	sortOneSided(out.OnlyLeft)
	sortOneSided(out.OnlyRight)
	sortInaccessible(out.Inaccessible)

	return out, nil
}

func (c *EntryClassifier) place(out *Classified, name, leftPath, rightPath string, left, right resolved) {
	// Unresolvable on a side where the name exists.
	if left.err != nil || right.err != nil {
		out.addInaccessible(name, left.err, right.err)
		c.logger.Debug().Str("name", name).Msg("entry inaccessible")
		return
	}

	switch {
	case left.present && right.present:
		if left.kind != right.kind {
			out.Classification.Add(trees.CategoryInaccessible, name)
			out.Inaccessible = append(out.Inaccessible, trees.InaccessibleEntry{
				Name:   name,
				Reason: common.KindName(common.ErrKindMismatch),
				Side:   trees.SideBoth,
				Error:  "left is a " + left.kind.String() + ", right is a " + right.kind.String(),
			})
			return
		}
		if left.kind == trees.KindDirectory {
			out.Classification.Add(trees.CategoryCommonDirs, name)
			var id dirPairID
			id.left, id.hasLeft = fileIDOf(left.info)
			id.right, id.hasRight = fileIDOf(right.info)
			out.dirIDs[name] = id
			return
		}
		leftErr := checkReadable(leftPath)
		rightErr := checkReadable(rightPath)
		if leftErr != nil || rightErr != nil {
			out.addInaccessible(name, leftErr, rightErr)
			return
		}
		out.Classification.Add(trees.CategoryCommonFiles, name)

	case left.present:
		out.Classification.Add(trees.CategoryOnlyLeft, name)
		out.OnlyLeft = append(out.OnlyLeft, oneSided(name, leftPath, left))

	case right.present:
		out.Classification.Add(trees.CategoryOnlyRight, name)
		out.OnlyRight = append(out.OnlyRight, oneSided(name, rightPath, right))
	}
}

func (out *Classified) addInaccessible(name string, leftErr, rightErr error) {
	entry := trees.InaccessibleEntry{Name: name}
	switch {
	case leftErr != nil && rightErr != nil:
		entry.Side = trees.SideBoth
		entry.Reason = common.KindName(leftErr)
		entry.Error = errors.Join(leftErr, rightErr).Error()
	case leftErr != nil:
		entry.Side = trees.SideLeft
		entry.Reason = common.KindName(leftErr)
		entry.Error = leftErr.Error()
	default:
		entry.Side = trees.SideRight
		entry.Reason = common.KindName(rightErr)
		entry.Error = rightErr.Error()
	}
	out.Classification.Add(trees.CategoryInaccessible, name)
	out.Inaccessible = append(out.Inaccessible, entry)
}

// moveToInaccessible relocates a common directory that cannot be descended into.
func (out *Classified) moveToInaccessible(name string, side trees.Side, err error) {
	if !out.Classification.Move(name, trees.CategoryCommonDirs, trees.CategoryInaccessible) {
		return
	}
	delete(out.dirIDs, name)
	out.Inaccessible = append(out.Inaccessible, trees.InaccessibleEntry{
		Name:   name,
		Reason: common.KindName(err),
		Side:   side,
		Error:  err.Error(),
	})
	sortInaccessible(out.Inaccessible)
}

// listDir reads the entry names of dir without following entries.
func listDir(dir string) (map[string]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, common.NewEntryError("readdir", dir, err)
	}
	byName := make(map[string]fs.DirEntry, len(entries))
	for _, e := range entries {
		byName[e.Name()] = e
	}
	return byName, nil
}

// resolve stats path following symlinks.
func resolve(path string) resolved {
	info, err := os.Stat(path)
	if err != nil {
		return resolved{present: true, err: common.NewEntryError("stat", path, err)}
	}
	kind := trees.KindFromMode(info.Mode())
	if kind == trees.KindUnknown {
		return resolved{
			present: true,
			info:    info,
			err:     &common.EntryError{Op: "stat", Path: path, Kind: common.ErrUnsupportedType, Err: errors.New(info.Mode().Type().String())},
		}
	}
	return resolved{present: true, kind: kind, info: info}
}

// checkReadable returns an error unless the regular file at path opens for reading.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return common.NewEntryError("open", path, err)
	}
	return f.Close()
}

// oneSided records the details of a name present on a single side.
// An unreadable file keeps its place and carries the error instead.
func oneSided(name, path string, r resolved) trees.OneSidedEntry {
	entry := trees.OneSidedEntry{Name: name, Kind: r.kind}
	if r.info != nil {
		entry.ModifiedAt = r.info.ModTime()
		if r.kind == trees.KindFile {
			entry.Size = uint64(r.info.Size())
		}
	}
	if r.kind == trees.KindFile {
		if err := checkReadable(path); err != nil {
			entry.Error = err.Error()
		}
	}
	return entry
}

func joinRel(relDir, name string) string {
	if relDir == "" || relDir == trees.RootRelPath {
		return name
	}
	return strings.TrimSuffix(relDir, "/") + "/" + name
}

func sortOneSided(entries []trees.OneSidedEntry) {
	slices.SortFunc(entries, func(a, b trees.OneSidedEntry) int { return strings.Compare(a.Name, b.Name) })
}

func sortInaccessible(entries []trees.InaccessibleEntry) {
	slices.SortFunc(entries, func(a, b trees.InaccessibleEntry) int { return strings.Compare(a.Name, b.Name) })
}
