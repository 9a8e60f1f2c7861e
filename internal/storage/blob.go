// Package storage reads and writes backup documents on the local filesystem
// or in Cloud Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("backup not found")

// Blob is a single backup document.
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
	String() string
}

// Location is a parsed backup destination.
type Location struct {
	Bucket string
	Object string
	Path   string
}

func (l Location) IsGCS() bool { return l.Bucket != "" }

// ParseLocation accepts a filesystem path or gs://bucket/object.
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Location{}, errors.New("location is required")
	}
	if !strings.HasPrefix(s, "gs://") {
		return Location{Path: s}, nil
	}
	rest := strings.TrimPrefix(s, "gs://")
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return Location{}, fmt.Errorf("invalid Cloud Storage location %q: want gs://bucket/object", s)
	}
	return Location{Bucket: bucket, Object: object}, nil
}

// Open returns the Blob for a location string.
func Open(ctx context.Context, location string) (Blob, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if loc.IsGCS() {
		return NewGCSBlob(ctx, loc.Bucket, loc.Object)
	}
	return NewFileBlob(loc.Path), nil
}
