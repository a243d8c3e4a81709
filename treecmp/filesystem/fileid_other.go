//go:build !unix

package filesystem

import "io/fs"

type fileID struct {
	dev uint64
	ino uint64
}

// fileIDOf is unsupported here; cycles are then bounded only by MaxDepth
// and the operating system's symlink resolution limit.
func fileIDOf(fs.FileInfo) (fileID, bool) {
	return fileID{}, false
}
