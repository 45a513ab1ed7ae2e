package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

// AttachmentStore persists uploaded binaries and hands back the URL that
// becomes the message body. The messaging core never touches the bytes
// again.
type AttachmentStore interface {
	Save(ctx context.Context, conversationID int64, filename, contentType string, r io.Reader) (string, error)
	Close() error
}

// BlobStore stores attachments in a gocloud bucket (file:// locally,
// s3:// and friends in production).
type BlobStore struct {
	bucket    *blob.Bucket
	publicURL string
}

// OpenBlobStore opens the bucket behind the given URL. publicURL prefixes
// returned attachment URLs when the bucket cannot sign its own.
func OpenBlobStore(ctx context.Context, bucketURL, publicURL string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open attachment bucket: %w", err)
	}
	return &BlobStore{bucket: bucket, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// Save writes the payload under a per-conversation key and returns its URL.
func (s *BlobStore) Save(ctx context.Context, conversationID int64, filename, contentType string, r io.Reader) (string, error) {
	key := fmt.Sprintf("conversations/%d/%s%s", conversationID, uuid.NewString(), path.Ext(filename))

	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("open attachment writer: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finish attachment: %w", err)
	}

	if signed, err := s.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: 24 * time.Hour}); err == nil {
		return signed, nil
	}
	return s.publicURL + "/" + key, nil
}

// Close releases the bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
