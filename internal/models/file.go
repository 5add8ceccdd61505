package models

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileHandle is a file offered to the upload queue.
type FileHandle interface {
	Name() string                 // Base file name, used for filtering and de-duplication
	Size() int64                  // Size in bytes
	Open() (io.ReadCloser, error) // Open returns a fresh reader over the file contents
}

// LocalFile is a [FileHandle] backed by a path on disk.
type LocalFile struct {
	path string
	size int64
}

var _ FileHandle = (*LocalFile)(nil)

// NewLocalFile stats path and returns a handle to it.
func NewLocalFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &LocalFile{path: path, size: info.Size()}, nil
}

func (f *LocalFile) Name() string                 { return filepath.Base(f.path) }
func (f *LocalFile) Size() int64                  { return f.size }
func (f *LocalFile) Path() string                 { return f.path }
func (f *LocalFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// ItemStatus is the client-side lifecycle state of a [FileItem].
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemUploading ItemStatus = "uploading"
	ItemAnalyzing ItemStatus = "analyzing"
	ItemComplete  ItemStatus = "complete"
	ItemError     ItemStatus = "error"
)

// Terminal reports whether no further transition can leave s.
func (s ItemStatus) Terminal() bool {
	return s == ItemComplete || s == ItemError
}

// CanTransition reports whether an item may move from s to next.
//
//	pending → uploading → analyzing → complete | error
//	                    ↘ error
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	switch s {
	case ItemPending:
		return next == ItemUploading
	case ItemUploading:
		return next == ItemAnalyzing || next == ItemError
	case ItemAnalyzing:
		return next == ItemComplete || next == ItemError
	default:
		return false
	}
}

// FileItem is one upload queue entry. Values are immutable snapshots; the queue replaces them wholesale.
type FileItem struct {
	ID            string
	File          FileHandle
	Status        ItemStatus
	Progress      int
	ErrorMessage  string
	ServerTrackID string
	TrackData     *Track
}

// Filename returns the name of the underlying file.
func (i FileItem) Filename() string {
	if i.File == nil {
		return ""
	}
	return i.File.Name()
}

// Size returns the size of the underlying file in bytes.
func (i FileItem) Size() int64 {
	if i.File == nil {
		return 0
	}
	return i.File.Size()
}
