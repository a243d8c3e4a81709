package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"syscall"
)

// Error kinds used across the comparison packages. An EntryError always
// unwraps to exactly one of these.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrPermission      = errors.New("permission denied")
	ErrIO              = errors.New("i/o failure")
	ErrKindMismatch    = errors.New("file on one side, directory on the other")
	ErrUnsupportedType = errors.New("neither a regular file nor a directory")
	ErrCycle           = errors.New("directory cycle")
	ErrPathEmpty       = errors.New("path cannot be empty")
	ErrPathInvalid     = errors.New("path contains invalid characters")
)

// EntryError describes a failure tied to a single filesystem entry.
type EntryError struct {
	Op   string // stat, open, read, readdir
	Path string
	Kind error
	Err  error
}

func (e *EntryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is / errors.As.
func (e *EntryError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewEntryError wraps err for path, deriving its kind from the cause.
// Returns nil when err is nil.
func NewEntryError(op, path string, err error) *EntryError {
	if err == nil {
		return nil
	}
	var existing *EntryError
	if errors.As(err, &existing) {
		return existing
	}
	return &EntryError{Op: op, Path: path, Kind: KindOf(err), Err: err}
}

// KindOf maps an arbitrary filesystem error onto one of the error kinds.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return ErrNotFound
	case errors.Is(err, ErrPermission), errors.Is(err, fs.ErrPermission):
		return ErrPermission
	case errors.Is(err, ErrKindMismatch):
		return ErrKindMismatch
	case errors.Is(err, ErrUnsupportedType):
		return ErrUnsupportedType
	case errors.Is(err, ErrCycle):
		return ErrCycle
	case errors.Is(err, syscall.ELOOP):
		// too many levels of symbolic links
		return ErrCycle
	default:
		return ErrIO
	}
}

// KindName returns a short stable label for an error kind, used in reports.
func KindName(err error) string {
	switch KindOf(err) {
	case nil:
		return ""
	case ErrNotFound:
		return "not_found"
	case ErrPermission:
		return "permission_denied"
	case ErrKindMismatch:
		return "kind_mismatch"
	case ErrUnsupportedType:
		return "unsupported_type"
	case ErrCycle:
		return "cycle"
	default:
		return "io_error"
	}
}

// ValidationUtils provides common validation utilities used across packages
type ValidationUtils struct{}

// NewValidationUtils creates a new ValidationUtils instance
func NewValidationUtils() *ValidationUtils {
	return &ValidationUtils{}
}

// ValidateContextCancellation checks if context is cancelled and returns appropriate error
func (vu *ValidationUtils) ValidateContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// ValidatePathCharacters validates that a path doesn't contain invalid characters
func (vu *ValidationUtils) ValidatePathCharacters(path string) error {
	if strings.Contains(path, "\x00") {
		return ErrPathInvalid
	}
	return nil
}

// ValidateRoot checks that path names an existing, listable directory.
// Every failure wraps ErrInvalidInput.
func (vu *ValidationUtils) ValidateRoot(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrPathEmpty)
	}
	if err := vu.ValidatePathCharacters(path); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidInput, path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: root %s: %w", ErrInvalidInput, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root %s is not a directory", ErrInvalidInput, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: root %s is not readable: %w", ErrInvalidInput, path, err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: root %s cannot be listed: %w", ErrInvalidInput, path, err)
	}

	return nil
}
