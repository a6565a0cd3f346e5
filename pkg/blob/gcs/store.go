// Package gcs reads objects from Google Cloud Storage through the JSON API.
package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"

	gerrors "github.com/go-faster/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/iota-uz/sentencing-etl/pkg/blob"
)

type Store struct {
	svc *storage.Service
}

// New uses application default credentials unless opts say otherwise.
func New(ctx context.Context, opts ...option.ClientOption) (*Store, error) {
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, gerrors.Wrap(err, "create storage service")
	}
	return &Store{svc: svc}, nil
}

func (s *Store) Driver() blob.Driver { return blob.DriverGCS }

func (s *Store) Get(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	if err := blob.CheckKey(bucket, object); err != nil {
		return nil, err
	}
	resp, err := s.svc.Objects.Get(bucket, object).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			return nil, blob.ErrNotFound
		}
		return nil, gerrors.Wrapf(err, "get gs://%s/%s", bucket, object)
	}
	return resp.Body, nil
}

func (s *Store) Put(ctx context.Context, bucket, object string, r io.Reader, contentType string) error {
	if err := blob.CheckKey(bucket, object); err != nil {
		return err
	}
	obj := &storage.Object{Name: object, ContentType: contentType}
	call := s.svc.Objects.Insert(bucket, obj).Context(ctx)
	if contentType != "" {
		call = call.Media(r, googleapi.ContentType(contentType))
	} else {
		call = call.Media(r)
	}
	if _, err := call.Do(); err != nil {
		return gerrors.Wrapf(err, "put gs://%s/%s", bucket, object)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
