// Package report renders comparison results for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/common"
	"github.com/ZanzyTHEbar/treecmp/treecmp/trees"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q (want text, json or yaml)", common.ErrInvalidInput, s)
	}
}

// Options adjusts what is written.
type Options struct {
	// Subtree restricts output to the report at this relative path and below.
	Subtree string
	Logger  zerolog.Logger
}

// Write renders result in the given format.
func Write(w io.Writer, format Format, result *filesystem.ComparisonResult, opts Options) error {
	scoped, err := scope(result, opts)
	if err != nil {
		return err
	}
	switch format {
	case FormatText:
		return NewTextRenderer().Render(w, scoped)
	case FormatJSON, FormatYAML:
		return Encode(w, format, scoped)
	default:
		return fmt.Errorf("%w: unsupported format %q", common.ErrInvalidInput, format)
	}
}

// Encode writes result as indented JSON or YAML.
func Encode(w io.Writer, format Format, result *filesystem.ComparisonResult) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q is not a structured format", common.ErrInvalidInput, format)
	}
}

// scope returns a shallow copy of result whose report is the requested subtree.
func scope(result *filesystem.ComparisonResult, opts Options) (*filesystem.ComparisonResult, error) {
	if result == nil || result.Report == nil {
		return nil, fmt.Errorf("%w: nothing to render", common.ErrInvalidInput)
	}
	if opts.Subtree == "" || opts.Subtree == trees.RootRelPath {
		return result, nil
	}

	idx, err := trees.BuildPathIndex(result.Report, opts.Logger)
	if err != nil {
		return nil, err
	}
	node, ok := idx.Lookup(opts.Subtree)
	if !ok {
		return nil, fmt.Errorf("%w: no compared directory pair at %q", common.ErrInvalidInput, opts.Subtree)
	}

	scoped := *result
	scoped.Report = node
	scoped.LeftRoot = node.LeftPath
	scoped.RightRoot = node.RightPath
	scoped.HasDifferences = node.HasDifferences || result.Interrupted
	return &scoped, nil
}
