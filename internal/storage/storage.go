package storage

import (
	"errors"
	"io"
)

var ErrInvalidPath = errors.New("invalid path")

type FileInfo struct {
	Filename  string
	Extension string
	Size      int64
}

// StoredFile describes an evidence file written by SaveFile.
type StoredFile struct {
	StoredName  string
	StagingPath string
	PublicPath  string
	PublicURL   string
	Size        int64
	SHA256      string
}

// Storage stages evidence files by stored name. PublicDir is the directory
// served under PublicPrefix.
type Storage interface {
	SaveFile(file io.Reader, info FileInfo) (*StoredFile, error)
	OpenFile(name string) (io.ReadSeekCloser, error)
	DeleteFile(name string) error
	PublicDir() string
}

var _ Storage = (*LocalStorage)(nil)
