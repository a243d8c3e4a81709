package trees

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/rs/zerolog"
)

// PathIndexStats tracks usage of the path index
type PathIndexStats struct {
	TotalNodes    int64
	PathLookups   int64
	PrefixLookups int64
	Insertions    int64
	MaxDepth      int
	mu            sync.RWMutex
}

// PatriciaPathIndex maps relative directory paths to report nodes using a
// compressed trie, so exact and subtree lookups cost O(k) in the path length.
type PatriciaPathIndex struct {
	tree   *radix.Tree
	mu     sync.RWMutex
	stats  *PathIndexStats
	nodes  map[string]*DirectoryDiffReport
	logger zerolog.Logger
}

// NewPatriciaPathIndex creates an empty index.
func NewPatriciaPathIndex(logger zerolog.Logger) *PatriciaPathIndex {
	return &PatriciaPathIndex{
		tree:   radix.New(),
		stats:  &PathIndexStats{},
		nodes:  make(map[string]*DirectoryDiffReport),
		logger: logger,
	}
}

// BuildPathIndex indexes every node of a finished report tree.
func BuildPathIndex(root *DirectoryDiffReport, logger zerolog.Logger) (*PatriciaPathIndex, error) {
	idx := NewPatriciaPathIndex(logger)
	var err error
	root.Walk(func(node *DirectoryDiffReport) bool {
		if err != nil {
			return false
		}
		err = idx.Insert(node)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Insert adds a report node under its RelPath.
func (idx *PatriciaPathIndex) Insert(node *DirectoryDiffReport) error {
	if node == nil {
		return fmt.Errorf("invalid input: node cannot be nil")
	}

	key := normalizeRelPath(node.RelPath)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, updated := idx.tree.Insert(key, node)
	idx.nodes[key] = node

	idx.stats.mu.Lock()
	if !updated {
		idx.stats.TotalNodes++
	}
	idx.stats.Insertions++
	if d := node.Depth(); d > idx.stats.MaxDepth {
		idx.stats.MaxDepth = d
	}
	idx.stats.mu.Unlock()

	idx.logger.Trace().
		Str("path", key).
		Bool("was_update", updated).
		Msg("path index insertion")

	return nil
}

// Lookup finds the report for exactly relPath.
func (idx *PatriciaPathIndex) Lookup(relPath string) (*DirectoryDiffReport, bool) {
	key := normalizeRelPath(relPath)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	value, found := idx.tree.Get(key)

	idx.stats.mu.Lock()
	idx.stats.PathLookups++
	idx.stats.mu.Unlock()

	if !found {
		idx.logger.Debug().Str("path", key).Msg("path lookup miss")
		return nil, false
	}
	return value.(*DirectoryDiffReport), true
}

// PrefixLookup returns the report at prefix and every report below it,
// in path order. Matching respects segment boundaries: "a" does not match "ab".
func (idx *PatriciaPathIndex) PrefixLookup(prefix string) []*DirectoryDiffReport {
	key := normalizeRelPath(prefix)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []*DirectoryDiffReport
	if key == RootRelPath {
		idx.tree.Walk(func(_ string, value interface{}) bool {
			results = append(results, value.(*DirectoryDiffReport))
			return false
		})
	} else {
		idx.tree.WalkPrefix(key, func(k string, value interface{}) bool {
			if k == key || strings.HasPrefix(k, key+"/") {
				results = append(results, value.(*DirectoryDiffReport))
			}
			return false
		})
	}

	idx.stats.mu.Lock()
	idx.stats.PrefixLookups++
	idx.stats.mu.Unlock()

	idx.logger.Debug().
		Str("prefix", key).
		Int("results_count", len(results)).
		Msg("prefix lookup completed")

	return results
}

// GetChildren returns the direct child reports of parentPath in path order.
func (idx *PatriciaPathIndex) GetChildren(parentPath string) []*DirectoryDiffReport {
	parent := normalizeRelPath(parentPath)

	var children []*DirectoryDiffReport
	for _, node := range idx.PrefixLookup(parent) {
		key := normalizeRelPath(node.RelPath)
		if key == parent || key == RootRelPath {
			continue
		}
		remaining := key
		if parent != RootRelPath {
			remaining = strings.TrimPrefix(key, parent+"/")
		}
		if !strings.Contains(remaining, "/") {
			children = append(children, node)
		}
	}
	return children
}

// Size returns the number of indexed nodes.
func (idx *PatriciaPathIndex) Size() int64 {
	idx.stats.mu.RLock()
	defer idx.stats.mu.RUnlock()
	return idx.stats.TotalNodes
}

// GetStats returns a copy of the current statistics.
func (idx *PatriciaPathIndex) GetStats() PathIndexStats {
	idx.stats.mu.RLock()
	defer idx.stats.mu.RUnlock()

	return PathIndexStats{
		TotalNodes:    idx.stats.TotalNodes,
		PathLookups:   idx.stats.PathLookups,
		PrefixLookups: idx.stats.PrefixLookups,
		Insertions:    idx.stats.Insertions,
		MaxDepth:      idx.stats.MaxDepth,
	}
}

// Validate checks the trie against the direct mapping.
func (idx *PatriciaPathIndex) Validate() []error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var errs []error

	count := 0
	idx.tree.Walk(func(key string, value interface{}) bool {
		count++
		if _, exists := idx.nodes[key]; !exists {
			errs = append(errs, fmt.Errorf("patricia_tree_mapping_missing: %s", key))
		}
		if node, ok := value.(*DirectoryDiffReport); !ok {
			errs = append(errs, fmt.Errorf("invalid_node_type: %s", key))
		} else if normalizeRelPath(node.RelPath) != key {
			errs = append(errs, fmt.Errorf("key_mismatch: %s indexes %s", key, node.RelPath))
		}
		return false
	})

	if count != len(idx.nodes) {
		errs = append(errs, fmt.Errorf("count_mismatch: trie has %d, mapping has %d", count, len(idx.nodes)))
	}

	idx.stats.mu.RLock()
	if idx.stats.TotalNodes != int64(count) {
		errs = append(errs, fmt.Errorf("stats_mismatch: stats report %d nodes, trie has %d", idx.stats.TotalNodes, count))
	}
	idx.stats.mu.RUnlock()

	if len(errs) > 0 {
		idx.logger.Warn().Int("error_count", len(errs)).Msg("path index validation found issues")
	}
	return errs
}

// WalkPaths calls fn for each indexed path in order until fn returns true.
func (idx *PatriciaPathIndex) WalkPaths(fn func(relPath string, node *DirectoryDiffReport) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.tree.Walk(func(key string, value interface{}) bool {
		return fn(key, value.(*DirectoryDiffReport))
	})
}

// normalizeRelPath gives relative paths a single spelling: slash separated,
// cleaned, without leading or trailing slashes, "." for the root.
func normalizeRelPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return RootRelPath
	}
	return p
}
