// Package archive copies evidence files and reports to long-term storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

type Archiver interface {
	Archive(ctx context.Context, objectName string, r io.Reader) error
}

// ObjectName places a file under prefix/sha256/name so all artifacts of one
// piece of evidence share a folder.
func ObjectName(prefix, sha256, name string) string {
	return path.Join(prefix, sha256, path.Base(name))
}

// ErrDisabled reports that nothing was archived.
var ErrDisabled = errors.New("archive disabled")

// NopArchiver stands in when no bucket is configured.
type NopArchiver struct{}

func (NopArchiver) Archive(ctx context.Context, objectName string, r io.Reader) error {
	return ErrDisabled
}

type objectWriter interface {
	io.Writer
	Close() error
}

// GCSArchiver writes objects to a Cloud Storage bucket. Objects are never
// overwritten: an existing object with the same name is left untouched.
type GCSArchiver struct {
	client    *storage.Client
	newWriter func(ctx context.Context, objectName string) objectWriter
	logger    *slog.Logger
}

func NewGCSArchiver(ctx context.Context, bucket string, logger *slog.Logger) (*GCSArchiver, error) {
	if bucket == "" {
		return nil, errors.New("bucket name must not be empty")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	handle := client.Bucket(bucket)
	return &GCSArchiver{
		client: client,
		newWriter: func(ctx context.Context, objectName string) objectWriter {
			return handle.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
		},
		logger: logger,
	}, nil
}

func (a *GCSArchiver) Archive(ctx context.Context, objectName string, r io.Reader) error {
	w := a.newWriter(ctx, objectName)

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			a.logger.Info("archive object already exists", "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to write archive object %s: %w", objectName, err)
	}

	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			a.logger.Info("archive object already exists", "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize archive object %s: %w", objectName, err)
	}
	return nil
}

func (a *GCSArchiver) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
