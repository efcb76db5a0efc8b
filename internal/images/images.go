package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
)

// ErrInvalidArgument indicates a missing entity id or image payload.
var ErrInvalidArgument = errors.New("images: invalid argument")

// Uploader pushes a blob to storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, objectPath string, r io.Reader) (string, error)
}

// PhotoUpdater writes an image URL onto a catalog entity.
type PhotoUpdater interface {
	SetPhotoURL(ctx context.Context, id, url string) error
}

// Service attaches uploaded images to catalog entities: blob first, then the
// entity's photo field. The two writes are not atomic; the photo field is
// last-write-wins.
type Service struct {
	uploader Uploader
	catalog  PhotoUpdater
	logger   *log.Logger
}

// NewService wires an uploader to the catalog.
func NewService(uploader Uploader, catalog PhotoUpdater, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{uploader: uploader, catalog: catalog, logger: logger}
}

// Attach stores the image under images/{entityID}/{filename}, then records
// the public URL on the entity. Returns the public URL.
func (s *Service) Attach(ctx context.Context, entityID, filename string, r io.Reader) (string, error) {
	if strings.TrimSpace(entityID) == "" {
		return "", fmt.Errorf("%w: entity id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(filename) == "" || r == nil {
		return "", fmt.Errorf("%w: a valid image is required", ErrInvalidArgument)
	}

	objectPath := fmt.Sprintf("images/%s/%s", entityID, path.Base(filename))
	url, err := s.uploader.Upload(ctx, objectPath, r)
	if err != nil {
		s.logger.Printf("images: upload %s failed: %v", objectPath, err)
		return "", err
	}

	if err := s.catalog.SetPhotoURL(ctx, entityID, url); err != nil {
		s.logger.Printf("images: record photo url for %s failed: %v", entityID, err)
		return "", err
	}
	return url, nil
}
