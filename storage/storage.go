package storage

import (
	"context"
	"io"
)

const (
	ResultOK       = "ok"
	ResultNotFound = "not found"
)

// File is an upload waiting to be committed to storage.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        io.Reader
}

// StoredFile locates a committed file. PublicID is the locator passed back
// to Delete.
type StoredFile struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type DeleteResult struct {
	Result  string `json:"result"`
	Deleted string `json:"deleted"`
}

// FileStorage commits and removes uploaded files. Delete of a missing file
// reports ResultNotFound instead of failing.
type FileStorage interface {
	Store(ctx context.Context, f File, folder string) (StoredFile, error)
	Delete(ctx context.Context, publicID string) (DeleteResult, error)
}
