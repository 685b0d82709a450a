package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const copyBufferSize = 8192

// LocalStorage keeps each evidence file twice: a staging copy the analyzers
// read and a public copy served under PublicPrefix.
type LocalStorage struct {
	stagingDir string
	publicDir  string
	now        func() time.Time
}

const PublicPrefix = "/uploads/"

func NewLocalStorage(stagingDir, publicDir string) (*LocalStorage, error) {
	for _, dir := range []string{stagingDir, publicDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &LocalStorage{stagingDir: stagingDir, publicDir: publicDir, now: time.Now}, nil
}

func (ls *LocalStorage) PublicDir() string {
	return ls.publicDir
}

func (ls *LocalStorage) SaveFile(file io.Reader, info FileInfo) (*StoredFile, error) {
	ext := strings.ToLower(strings.TrimPrefix(info.Extension, "."))
	if ext == "" {
		ext = Extension(info.Filename)
	}
	if ext == "" {
		return nil, fmt.Errorf("file %q has no extension", info.Filename)
	}

	name := fmt.Sprintf("%s_%s.%s",
		strings.ReplaceAll(uuid.New().String(), "-", ""),
		ls.now().Format("20060102150405"),
		ext)
	stagingPath := filepath.Join(ls.stagingDir, name)

	dst, err := os.Create(stagingPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	hasher := sha256.New()
	size, err := io.CopyBuffer(io.MultiWriter(dst, hasher), file, make([]byte, copyBufferSize))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(stagingPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	publicPath := filepath.Join(ls.publicDir, name)
	if err := copyFile(stagingPath, publicPath); err != nil {
		os.Remove(stagingPath)
		return nil, fmt.Errorf("failed to publish file: %w", err)
	}

	return &StoredFile{
		StoredName:  name,
		StagingPath: stagingPath,
		PublicPath:  publicPath,
		PublicURL:   PublicPrefix + name,
		Size:        size,
		SHA256:      hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (ls *LocalStorage) OpenFile(name string) (io.ReadSeekCloser, error) {
	cleanPath, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(ls.stagingDir, cleanPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// DeleteFile removes both copies of name. Copies that are already gone are
// not an error.
func (ls *LocalStorage) DeleteFile(name string) error {
	cleanPath, err := cleanName(name)
	if err != nil {
		return err
	}

	var errs []error
	for _, dir := range []string{ls.stagingDir, ls.publicDir} {
		if err := os.Remove(filepath.Join(dir, cleanPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func cleanName(name string) (string, error) {
	cleanPath := filepath.Clean(name)
	if cleanPath == "." || strings.Contains(cleanPath, "..") || filepath.IsAbs(cleanPath) {
		return "", ErrInvalidPath
	}
	return cleanPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.CopyBuffer(out, in, make([]byte, copyBufferSize)); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
