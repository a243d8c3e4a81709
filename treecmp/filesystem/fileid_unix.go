//go:build unix

package filesystem

import (
	"io/fs"
	"syscall"
)

// fileID identifies a directory independently of the path used to reach it.
type fileID struct {
	dev uint64
	ino uint64
}

// fileIDOf extracts (device, inode) from stat results. ok is false when the
// platform did not provide them.
func fileIDOf(info fs.FileInfo) (fileID, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, false
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}
