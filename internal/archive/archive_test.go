package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
)

type fakeWriter struct {
	buf      bytes.Buffer
	closeErr error
	closed   bool
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func newTestArchiver(w *fakeWriter, names *[]string) *GCSArchiver {
	return &GCSArchiver{
		newWriter: func(ctx context.Context, objectName string) objectWriter {
			*names = append(*names, objectName)
			return w
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGCSArchiverArchive(t *testing.T) {
	tests := []struct {
		name     string
		closeErr error
		wantErr  bool
	}{
		{name: "written", closeErr: nil},
		{name: "already exists", closeErr: &googleapi.Error{Code: http.StatusPreconditionFailed}},
		{name: "server error", closeErr: &googleapi.Error{Code: http.StatusInternalServerError}, wantErr: true},
		{name: "plain error", closeErr: errors.New("boom"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{closeErr: tt.closeErr}
			var names []string
			a := newTestArchiver(w, &names)

			err := a.Archive(context.Background(), "evidence/abc/file.png", bytes.NewReader([]byte("png")))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Archive() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !w.closed {
				t.Error("Expected writer to be closed")
			}
			if w.buf.String() != "png" {
				t.Errorf("Expected content to be written, got %q", w.buf.String())
			}
			if len(names) != 1 || names[0] != "evidence/abc/file.png" {
				t.Errorf("Unexpected object names: %v", names)
			}
		})
	}
}

func TestNopArchiver(t *testing.T) {
	err := NopArchiver{}.Archive(context.Background(), "evidence/x/a.png", bytes.NewReader([]byte("x")))
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}

func TestObjectName(t *testing.T) {
	got := ObjectName("evidence", "deadbeef", "/tmp/uploads/a_1.png")
	if got != "evidence/deadbeef/a_1.png" {
		t.Errorf("ObjectName() = %s", got)
	}
}
