package filesystem

import (
	"context"
	"os"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/common"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/fingerprint"
	"github.com/ZanzyTHEbar/treecmp/treecmp/trees"
)

// MetadataReader produces FileMetadata snapshots for regular files.
type MetadataReader struct {
	hasher  *fingerprint.Hasher
	metrics *common.ComparisonMetrics
}

// NewMetadataReader creates a reader hashing with blockSize byte reads.
// metrics may be nil.
func NewMetadataReader(blockSize int, metrics *common.ComparisonMetrics) *MetadataReader {
	return &MetadataReader{
		hasher:  fingerprint.NewHasher(blockSize),
		metrics: metrics,
	}
}

// Read stats path for size and modification time, then hashes its content.
// Symlinks are followed. Failures are *common.EntryError of kind
// ErrNotFound, ErrPermission or ErrIO and are never retried.
func (r *MetadataReader) Read(ctx context.Context, path string) (trees.FileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return trees.FileMetadata{}, common.NewEntryError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return trees.FileMetadata{}, &common.EntryError{Op: "stat", Path: path, Kind: common.ErrUnsupportedType}
	}

	digest, n, err := r.hasher.SumFile(ctx, path)
	if err != nil {
		return trees.FileMetadata{}, err
	}
	if r.metrics != nil {
		r.metrics.AddHashed(n)
	}

	// Size comes from stat, not from the bytes hashed, so a file growing
	// while it is read shows up as a content difference, not a size one.
	return trees.FileMetadata{
		Size:        uint64(info.Size()),
		ModifiedAt:  info.ModTime(),
		ContentHash: digest,
	}, nil
}
