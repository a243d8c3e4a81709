package trees

import (
	"fmt"
	"io/fs"
)

// EntryKind is the resolved type of a directory entry.
type EntryKind int

const (
	KindUnknown EntryKind = iota
	KindFile
	KindDirectory
)

// KindFromMode maps a (symlink-resolved) file mode onto an EntryKind.
// Anything other than a regular file or a directory is KindUnknown.
func KindFromMode(mode fs.FileMode) EntryKind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDirectory
	default:
		return KindUnknown
	}
}

// Convert EntryKind to String
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EntryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *EntryKind) UnmarshalText(text []byte) error {
	kind, err := ParseEntryKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseEntryKind maps a kind name back to its EntryKind.
func ParseEntryKind(s string) (EntryKind, error) {
	switch s {
	case "file":
		return KindFile, nil
	case "directory":
		return KindDirectory, nil
	case "unknown":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("unknown entry kind %q", s)
	}
}

// Side names which of the two compared trees something belongs to.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideBoth  Side = "both"
)

// Opposite swaps left and right; SideBoth maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return s
	}
}
