package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/common"
	"github.com/ZanzyTHEbar/treecmp/treecmp/trees"
)

const timeLayout = "2006-01-02 15:04:05.999999999"

// TextRenderer writes the human readable report: one block per directory
// pair with differences, nested by depth, followed by a summary.
type TextRenderer struct {
	// Location is used to print modification times. Defaults to time.Local.
	Location *time.Location
	// Indent is prepended once per nesting level.
	Indent string
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{Location: time.Local, Indent: "  "}
}

// Render writes the header, the per-directory sections, the summary and the
// final verdict line.
func (r *TextRenderer) Render(w io.Writer, result *filesystem.ComparisonResult) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "Comparing folders:")
	fmt.Fprintf(bw, "Folder 1: %s\n", result.LeftRoot)
	fmt.Fprintf(bw, "Folder 2: %s\n", result.RightRoot)

	r.RenderReport(bw, result.Report)
	r.renderSummary(bw, result)

	switch {
	case result.Interrupted:
		fmt.Fprintln(bw, "\nComparison interrupted, results are incomplete.")
	case result.HasDifferences:
		fmt.Fprintln(bw, "\nFolders have differences.")
	default:
		fmt.Fprintln(bw, "\nFolders are identical!")
	}
	return bw.Flush()
}

// RenderReport writes the sections of every directory pair with
// differences. Pairs without differences below them are skipped.
func (r *TextRenderer) RenderReport(w io.Writer, root *trees.DirectoryDiffReport) {
	base := root.Depth()
	root.Walk(func(n *trees.DirectoryDiffReport) bool {
		if !n.HasDifferences && !n.Truncated {
			return false
		}
		r.renderNode(w, n, strings.Repeat(r.Indent, n.Depth()-base))
		return true
	})
}

func (r *TextRenderer) renderNode(w io.Writer, n *trees.DirectoryDiffReport, indent string) {
	if n.ListError != "" {
		fmt.Fprintf(w, "\n%sCould not list %s:\n", indent, n.RelPath)
		fmt.Fprintf(w, "%s  - %s\n", indent, n.ListError)
	}
	if n.Truncated {
		fmt.Fprintf(w, "\n%sNot compared (depth limit): %s\n", indent, n.RelPath)
	}

	if len(n.OnlyLeftEntries) > 0 {
		fmt.Fprintf(w, "\n%sOnly in %s:\n", indent, n.LeftPath)
		r.renderOneSided(w, n.OnlyLeftEntries, indent)
	}
	if len(n.OnlyRightEntries) > 0 {
		fmt.Fprintf(w, "\n%sOnly in %s:\n", indent, n.RightPath)
		r.renderOneSided(w, n.OnlyRightEntries, indent)
	}

	if differing := n.DifferingFiles(); len(differing) > 0 {
		fmt.Fprintf(w, "\n%sFiles that differ between %s and %s:\n", indent, n.LeftPath, n.RightPath)
		for _, name := range differing {
			fmt.Fprintf(w, "%s  - %s:\n", indent, name)
			for _, d := range n.Files[name] {
				fmt.Fprintf(w, "%s    * %s\n", indent, r.describe(d))
			}
		}
	}

	if len(n.InaccessibleEntries) > 0 {
		fmt.Fprintf(w, "\n%sFiles with access issues:\n", indent)
		for _, e := range n.InaccessibleEntries {
			fmt.Fprintf(w, "%s  - %s (%s, %s)\n", indent, e.Name, strings.ReplaceAll(e.Reason, "_", " "), sideLabel(e.Side))
		}
	}
}

func (r *TextRenderer) renderOneSided(w io.Writer, entries []trees.OneSidedEntry, indent string) {
	for _, e := range entries {
		switch {
		case e.Kind == trees.KindDirectory:
			fmt.Fprintf(w, "%s  - %s/ (directory)\n", indent, e.Name)
		case e.Error != "":
			fmt.Fprintf(w, "%s  - %s (%d bytes, modified: %s, unreadable: %s)\n", indent, e.Name, e.Size, r.formatTime(e.ModifiedAt), e.Error)
		default:
			fmt.Fprintf(w, "%s  - %s (%d bytes, modified: %s)\n", indent, e.Name, e.Size, r.formatTime(e.ModifiedAt))
		}
	}
}

func (r *TextRenderer) describe(d trees.FileDifference) string {
	switch d.Kind {
	case trees.SizeMismatch:
		return fmt.Sprintf("Size differs: %d vs %d bytes", d.Size.Left, d.Size.Right)
	case trees.TimeMismatch:
		return fmt.Sprintf("Modification time differs: %s vs %s", r.formatTime(d.Time.Left), r.formatTime(d.Time.Right))
	case trees.ContentMismatch:
		return "Content differs (different hash)"
	case trees.ReadFailure:
		return fmt.Sprintf("Could not be read (%s): %s", sideLabel(d.Side), d.Error)
	default:
		return string(d.Kind)
	}
}

func (r *TextRenderer) renderSummary(w io.Writer, result *filesystem.ComparisonResult) {
	s := result.Report.Summarize()

	fmt.Fprintf(w, "\nSummary: %d directory pairs, %d common files (%d differ), %d only in folder 1, %d only in folder 2, %d with access issues\n",
		s.DirectoryPairs, s.CommonFiles, s.DifferingFiles, s.OnlyLeft, s.OnlyRight, s.Inaccessible)
	if s.ListErrors > 0 {
		fmt.Fprintf(w, "%d directory pairs could not be listed\n", s.ListErrors)
	}
	if s.Truncated > 0 {
		fmt.Fprintf(w, "%d directory pairs not compared (depth limit)\n", s.Truncated)
	}

	if timeOnly := trees.BuildDiffIndex(result.Report).TimeOnly(); len(timeOnly) > 0 {
		fmt.Fprintf(w, "%d files differ only in modification time\n", len(timeOnly))
	}

	if result.Stats.FilesHashed > 0 {
		fmt.Fprintf(w, "Hashed %d files (%d bytes) in %s\n",
			result.Stats.FilesHashed, result.Stats.BytesHashed, common.NewTimeUtils().FormatDuration(result.Duration))
	}
}

func (r *TextRenderer) formatTime(t time.Time) string {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(timeLayout)
}

func sideLabel(s trees.Side) string {
	switch s {
	case trees.SideLeft:
		return "folder 1"
	case trees.SideRight:
		return "folder 2"
	default:
		return "both folders"
	}
}
