package track

import (
	"io"
	"os"
	"time"
)

// Handle is an open track output: a seekable writer the Emitter can
// rewind to patch in the final sample count once a track closes.
type Handle interface {
	io.Writer
	io.Seeker
	io.Closer
}

// FileSystem is the abstract sink an Emitter writes tracks and their
// sidecar .details files through. The disk-backed implementation
// wraps *os.File directly; tests substitute an in-memory one.
type FileSystem interface {
	// Open creates path for writing, truncating any existing file.
	Open(path string) (Handle, error)
	// Delete removes path. Used when a finished track falls below the
	// minimum track length.
	Delete(path string) error
	// Rename moves oldPath to newPath, used when a track's final name
	// (now that its first date/time is known) differs from the
	// placeholder name it was opened under.
	Rename(oldPath, newPath string) error
	// SetTimes sets path's access and modification times to t, mirroring
	// the tape's own recording timestamp onto the recovered file.
	SetTimes(path string, t time.Time) error
}

// DiskFileSystem is the default FileSystem, backed directly by the OS
// filesystem.
type DiskFileSystem struct{}

func (DiskFileSystem) Open(path string) (Handle, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
}

func (DiskFileSystem) Delete(path string) error {
	return os.Remove(path)
}

func (DiskFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (DiskFileSystem) SetTimes(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}
