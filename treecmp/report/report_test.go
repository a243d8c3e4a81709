package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/common"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/options"
	"github.com/ZanzyTHEbar/treecmp/treecmp/trees"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func sampleResult() *filesystem.ComparisonResult {
	root := trees.NewDirectoryDiffReport(trees.RootRelPath, "/data/left", "/data/right")
	root.Classification.Add(trees.CategoryOnlyLeft, "a.log")
	root.Classification.Add(trees.CategoryOnlyLeft, "old")
	root.Classification.Add(trees.CategoryCommonFiles, "big.log")
	root.Classification.Add(trees.CategoryCommonFiles, "same.log")
	root.Classification.Add(trees.CategoryCommonDirs, "logs")
	root.Classification.Add(trees.CategoryCommonDirs, "quiet")
	root.Classification.Add(trees.CategoryInaccessible, "secret.log")
	root.Classification.Sort()
	root.OnlyLeftEntries = []trees.OneSidedEntry{
		{Name: "a.log", Kind: trees.KindFile, Size: 3, ModifiedAt: t0},
		{Name: "old", Kind: trees.KindDirectory, ModifiedAt: t0},
	}
	root.InaccessibleEntries = []trees.InaccessibleEntry{
		{Name: "secret.log", Reason: "permission_denied", Side: trees.SideRight, Error: "open: permission denied"},
	}
	root.Files["big.log"] = []trees.FileDifference{trees.NewSizeMismatch(10, 20), trees.NewContentMismatch()}
	root.Files["same.log"] = []trees.FileDifference{}

	logs := trees.NewDirectoryDiffReport("logs", "/data/left/logs", "/data/right/logs")
	logs.Classification.Add(trees.CategoryCommonFiles, "app.log")
	logs.Files["app.log"] = []trees.FileDifference{trees.NewTimeMismatch(t0, t0.Add(time.Second))}
	root.Subdirs["logs"] = logs

	quiet := trees.NewDirectoryDiffReport("quiet", "/data/left/quiet", "/data/right/quiet")
	quiet.Classification.Add(trees.CategoryCommonFiles, "ok.log")
	quiet.Files["ok.log"] = []trees.FileDifference{}
	root.Subdirs["quiet"] = quiet

	return &filesystem.ComparisonResult{
		RunID:          uuid.MustParse("6f1c3c7e-9c1b-4d3e-8a55-0f4a1c2b3d4e"),
		LeftRoot:       "/data/left",
		RightRoot:      "/data/right",
		StartedAt:      t0,
		Duration:       1500 * time.Millisecond,
		HasDifferences: root.Aggregate(),
		Report:         root,
		Stats:          common.Snapshot{DirPairsVisited: 3, FilesCompared: 4, FilesHashed: 8, BytesHashed: 2048},
	}
}

func TestTextRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	r := &TextRenderer{Location: time.UTC, Indent: "  "}
	require.NoError(t, r.Render(&buf, sampleResult()))
	out := buf.String()

	want := []string{
		"Comparing folders:",
		"Folder 1: /data/left",
		"Folder 2: /data/right",
		"Only in /data/left:",
		"  - a.log (3 bytes, modified: 2024-01-01 12:00:00)",
		"  - old/ (directory)",
		"Files that differ between /data/left and /data/right:",
		"  - big.log:",
		"    * Size differs: 10 vs 20 bytes",
		"    * Content differs (different hash)",
		"Files with access issues:",
		"  - secret.log (permission denied, folder 2)",
		"    * Modification time differs: 2024-01-01 12:00:00 vs 2024-01-01 12:00:01",
		"Summary: 3 directory pairs, 4 common files (2 differ), 2 only in folder 1, 0 only in folder 2, 1 with access issues",
		"1 files differ only in modification time",
		"Hashed 8 files (2048 bytes) in 1.50s",
		"Folders have differences.",
	}
	for _, line := range want {
		assert.Contains(t, out, line)
	}

	// Nested pairs are indented; pairs without differences are omitted.
	assert.Contains(t, out, "\n  Files that differ between /data/left/logs and /data/right/logs:")
	assert.NotContains(t, out, "quiet")
	assert.NotContains(t, out, "same.log")

	// Sections appear in a fixed order.
	assert.Less(t, strings.Index(out, "Only in"), strings.Index(out, "Files that differ"))
	assert.Less(t, strings.Index(out, "Files that differ"), strings.Index(out, "access issues"))
}

func TestTextRenderer_Identical(t *testing.T) {
	root := trees.NewDirectoryDiffReport(trees.RootRelPath, "/a", "/b")
	root.Classification.Add(trees.CategoryCommonFiles, "f")
	root.Files["f"] = []trees.FileDifference{}
	result := &filesystem.ComparisonResult{LeftRoot: "/a", RightRoot: "/b", Report: root, HasDifferences: root.Aggregate()}

	var buf bytes.Buffer
	require.NoError(t, NewTextRenderer().Render(&buf, result))
	out := buf.String()

	assert.True(t, strings.HasSuffix(out, "\nFolders are identical!\n"))
	assert.NotContains(t, out, "Only in")
	assert.NotContains(t, out, "Hashed")
}

func TestTextRenderer_Interrupted(t *testing.T) {
	root := trees.NewDirectoryDiffReport(trees.RootRelPath, "/a", "/b")
	root.Classification.Add(trees.CategoryCommonFiles, "f")
	root.Files["f"] = []trees.FileDifference{}
	root.Aggregate()
	result := &filesystem.ComparisonResult{LeftRoot: "/a", RightRoot: "/b", Report: root, HasDifferences: true, Interrupted: true}

	var buf bytes.Buffer
	require.NoError(t, NewTextRenderer().Render(&buf, result))
	assert.True(t, strings.HasSuffix(buf.String(), "\nComparison interrupted, results are incomplete.\n"))
	assert.NotContains(t, buf.String(), "identical")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, result, Options{}))
	assert.Contains(t, buf.String(), `"interrupted": true`)
	assert.Contains(t, buf.String(), `"has_differences": true`)
}

func TestTextRenderer_ErrorsAndLimits(t *testing.T) {
	root := trees.NewDirectoryDiffReport(trees.RootRelPath, "/a", "/b")
	root.Classification.Add(trees.CategoryCommonFiles, "f")
	root.Classification.Add(trees.CategoryCommonDirs, "locked")
	root.Classification.Add(trees.CategoryCommonDirs, "deep")
	root.Classification.Sort()
	root.Files["f"] = []trees.FileDifference{trees.NewReadFailure(trees.SideLeft, os.ErrPermission)}

	locked := trees.NewDirectoryDiffReport("locked", "/a/locked", "/b/locked")
	locked.ListError = "readdir /a/locked: permission denied"
	root.Subdirs["locked"] = locked

	deep := trees.NewDirectoryDiffReport("deep", "/a/deep", "/b/deep")
	deep.Truncated = true
	root.Subdirs["deep"] = deep
	root.Aggregate()

	var buf bytes.Buffer
	r := &TextRenderer{Location: time.UTC, Indent: "  "}
	require.NoError(t, r.Render(&buf, &filesystem.ComparisonResult{LeftRoot: "/a", RightRoot: "/b", Report: root, HasDifferences: root.HasDifferences}))
	out := buf.String()

	assert.Contains(t, out, "* Could not be read (folder 1): permission denied")
	assert.Contains(t, out, "  Could not list locked:")
	assert.Contains(t, out, "  Not compared (depth limit): deep")
	assert.Contains(t, out, "1 directory pairs could not be listed")
	assert.Contains(t, out, "1 directory pairs not compared (depth limit)")
}

func TestEncode(t *testing.T) {
	result := sampleResult()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, FormatJSON, result))

		var decoded struct {
			RunID          string `json:"run_id"`
			HasDifferences bool   `json:"has_differences"`
			Report         struct {
				Classification trees.EntryClassification `json:"classification"`
				Subdirs        map[string]json.RawMessage `json:"subdirs"`
			} `json:"report"`
			Stats common.Snapshot `json:"stats"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "6f1c3c7e-9c1b-4d3e-8a55-0f4a1c2b3d4e", decoded.RunID)
		assert.True(t, decoded.HasDifferences)
		assert.Equal(t, []string{"a.log", "old"}, decoded.Report.Classification.OnlyLeft)
		assert.Contains(t, decoded.Report.Subdirs, "logs")
		assert.Equal(t, int64(2048), decoded.Stats.BytesHashed)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, FormatYAML, result))

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, true, decoded["has_differences"])
		assert.Equal(t, "6f1c3c7e-9c1b-4d3e-8a55-0f4a1c2b3d4e", decoded["run_id"])
		assert.Contains(t, buf.String(), "kind: content")
	})

	t.Run("text is not structured", func(t *testing.T) {
		assert.ErrorIs(t, Encode(&bytes.Buffer{}, FormatText, result), common.ErrInvalidInput)
	})
}

func TestWrite_Subtree(t *testing.T) {
	result := sampleResult()
	opts := Options{Subtree: "logs", Logger: zerolog.Nop()}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, result, opts))

	var decoded filesystem.ComparisonResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "/data/left/logs", decoded.LeftRoot)
	require.NotNil(t, decoded.Report)
	assert.Equal(t, "logs", decoded.Report.RelPath)
	assert.Contains(t, decoded.Report.Files, "app.log")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatText, result, opts))
	assert.Contains(t, buf.String(), "Files that differ between /data/left/logs and /data/right/logs:")
	assert.NotContains(t, buf.String(), "big.log")

	err := Write(&buf, FormatText, result, Options{Subtree: "missing", Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	// Scoping works on a copy.
	assert.Equal(t, "/data/left", result.LeftRoot)
	assert.Equal(t, trees.RootRelPath, result.Report.RelPath)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"text": FormatText, "JSON": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestWrite_EndToEnd(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(left, "a.log"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(right, "a.log"), []byte("hellO"), 0o644))
	for _, p := range []string{filepath.Join(left, "a.log"), filepath.Join(right, "a.log")} {
		require.NoError(t, os.Chtimes(p, t0, t0))
	}

	d, err := filesystem.NewTreeDiffer(options.DefaultCompareOptions())
	require.NoError(t, err)
	result, err := d.Run(context.Background(), left, right)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, result, Options{}))
	assert.Contains(t, buf.String(), "  - a.log:\n    * Content differs (different hash)\n")
	assert.Contains(t, buf.String(), "Folders have differences.")
}
