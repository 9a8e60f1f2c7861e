package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSBlob is a backup object in Cloud Storage, using application default
// credentials.
type GCSBlob struct {
	client *storage.Client
	bucket string
	object string
}

func NewGCSBlob(ctx context.Context, bucket, object string) (*GCSBlob, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCSBlob{client: client, bucket: bucket, object: object}, nil
}

func (b *GCSBlob) Read(ctx context.Context) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(b.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", b, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Write uploads the document; the object only becomes visible when the writer
// closes successfully.
func (b *GCSBlob) Write(ctx context.Context, data []byte) error {
	w := b.client.Bucket(b.bucket).Object(b.object).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-store"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", b, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", b, err)
	}
	return nil
}

func (b *GCSBlob) Close() error { return b.client.Close() }

func (b *GCSBlob) String() string { return "gs://" + b.bucket + "/" + b.object }
