package tree

import "errors"

var (
	// ErrInvalidPath is returned for paths that are absolute, contain "..",
	// or resolve outside the root.
	ErrInvalidPath = errors.New("invalid path")
	// ErrNotFound is returned when nothing visible exists at the path.
	ErrNotFound = errors.New("not found")
	// ErrNotADirectory is returned when a directory listing targets a file.
	ErrNotADirectory = errors.New("not a directory")
	// ErrPermission is returned when the process may not read the path.
	ErrPermission = errors.New("permission denied")
	// ErrTooLarge is returned by ReadFile when the file exceeds the byte limit.
	ErrTooLarge = errors.New("file too large")
)
