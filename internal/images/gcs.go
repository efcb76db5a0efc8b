package images

import (
	"context"
	"fmt"
	"io"
	"log"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploader implements Uploader on a Cloud Storage bucket. Writes go
// through the client's resumable upload protocol.
type GCSUploader struct {
	bucket     *storage.BucketHandle
	bucketName string
	logger     *log.Logger
}

// NewGCSUploader opens a storage client against the given bucket.
func NewGCSUploader(ctx context.Context, bucketName, credentialsFile string, logger *log.Logger) (*GCSUploader, error) {
	if logger == nil {
		logger = log.Default()
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	return &GCSUploader{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		logger:     logger,
	}, nil
}

// Upload streams the blob to the bucket, makes it publicly readable, and
// returns the public fetch URL.
func (u *GCSUploader) Upload(ctx context.Context, objectPath string, r io.Reader) (string, error) {
	obj := u.bucket.Object(objectPath)

	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", objectPath, err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("publish object %s: %w", objectPath, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, objectPath), nil
}
