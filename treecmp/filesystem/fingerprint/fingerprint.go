// Package fingerprint computes SHA-256 content digests of files by streaming
// their bytes in fixed-size blocks.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/common"
)

// DefaultBlockSize is the read size used when none is configured.
const DefaultBlockSize = 64 * 1024

// Digest is a SHA-256 content fingerprint.
type Digest [sha256.Size]byte

// String returns the lowercase hex form of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero value (no content was hashed).
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText encodes the digest as hex for JSON and YAML output.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a hex digest.
func (d *Digest) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != sha256.Size {
		return fmt.Errorf("digest must be %d hex characters, got %d", sha256.Size*2, len(text))
	}
	_, err := hex.Decode(d[:], text)
	return err
}

// Hasher streams content through SHA-256. It holds no state between calls
// and is safe for concurrent use.
type Hasher struct {
	blockSize int
}

// NewHasher creates a hasher reading blockSize bytes at a time.
// Non-positive sizes fall back to DefaultBlockSize.
func NewHasher(blockSize int) *Hasher {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Hasher{blockSize: blockSize}
}

// BlockSize returns the configured read size.
func (h *Hasher) BlockSize() int {
	return h.blockSize
}

// Sum hashes r until EOF and returns the digest with the number of bytes read.
// The context is checked between blocks; a read error wraps common.ErrIO.
func (h *Hasher) Sum(ctx context.Context, r io.Reader) (Digest, uint64, error) {
	digest, total, err := h.sum(ctx, r)
	if err != nil {
		return digest, total, fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return digest, total, nil
}

// sum returns read and context errors unwrapped so callers attach the kind once.
func (h *Hasher) sum(ctx context.Context, r io.Reader) (Digest, uint64, error) {
	var digest Digest
	hasher := sha256.New()
	buf := make([]byte, h.blockSize)
	var total uint64

	for {
		if err := ctx.Err(); err != nil {
			return digest, total, fmt.Errorf("hashing interrupted: %w", err)
		}

		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			total += uint64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return digest, total, err
		}
	}

	copy(digest[:], hasher.Sum(nil))
	return digest, total, nil
}

// SumFile opens path and hashes its content.
// Failures are returned as *common.EntryError.
func (h *Hasher) SumFile(ctx context.Context, path string) (Digest, uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, 0, common.NewEntryError("open", path, err)
	}
	defer file.Close()

	digest, n, err := h.sum(ctx, file)
	if err != nil {
		return Digest{}, n, &common.EntryError{Op: "read", Path: path, Kind: common.ErrIO, Err: err}
	}
	return digest, n, nil
}

// SumBytes hashes an in-memory buffer.
func SumBytes(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}
