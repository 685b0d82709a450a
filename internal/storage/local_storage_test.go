package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestLocalStorage(t *testing.T) {
	stagingDir := t.TempDir()
	publicDir := t.TempDir()
	storage, err := NewLocalStorage(stagingDir, publicDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	storage.now = func() time.Time { return time.Date(2025, 7, 18, 9, 30, 15, 0, time.UTC) }

	t.Run("SaveFile", func(t *testing.T) {
		content := []byte("철수: 꺼져\n영희: 왜 그래")
		sum := sha256.Sum256(content)

		stored, err := storage.SaveFile(bytes.NewReader(content), FileInfo{
			Filename: "chat.TXT",
			Size:     int64(len(content)),
		})
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		pattern := regexp.MustCompile(`^[0-9a-f]{32}_20250718093015\.txt$`)
		if !pattern.MatchString(stored.StoredName) {
			t.Errorf("Unexpected stored name: %s", stored.StoredName)
		}
		if stored.SHA256 != hex.EncodeToString(sum[:]) {
			t.Errorf("Expected sha256 %x, got %s", sum, stored.SHA256)
		}
		if stored.Size != int64(len(content)) {
			t.Errorf("Expected size %d, got %d", len(content), stored.Size)
		}
		if stored.PublicURL != "/uploads/"+stored.StoredName {
			t.Errorf("Unexpected public url: %s", stored.PublicURL)
		}

		for _, p := range []string{stored.StagingPath, stored.PublicPath} {
			data, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("Expected file at %s: %v", p, err)
			}
			if !bytes.Equal(data, content) {
				t.Errorf("Content mismatch at %s", p)
			}
		}

		fromDisk, err := hashFile(t, stored.StagingPath)
		if err != nil {
			t.Fatalf("Failed to hash file: %v", err)
		}
		if fromDisk != stored.SHA256 {
			t.Errorf("Streaming hash %s differs from file hash %s", stored.SHA256, fromDisk)
		}
	})

	t.Run("SaveFileWithoutExtension", func(t *testing.T) {
		if _, err := storage.SaveFile(strings.NewReader("x"), FileInfo{Filename: "noext"}); err == nil {
			t.Error("Expected error for file without extension")
		}
	})

	t.Run("OpenFile", func(t *testing.T) {
		content := []byte("test evidence content")
		testFile := "test-file.png"
		if err := os.WriteFile(filepath.Join(stagingDir, testFile), content, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		file, err := storage.OpenFile(testFile)
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("File content mismatch")
		}
	})

	t.Run("DeleteFile", func(t *testing.T) {
		stored, err := storage.SaveFile(strings.NewReader("to delete"), FileInfo{Filename: "a.png"})
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if err := storage.DeleteFile(stored.StoredName); err != nil {
			t.Fatalf("Failed to delete file: %v", err)
		}

		for _, p := range []string{stored.StagingPath, stored.PublicPath} {
			if _, err := os.Stat(p); !os.IsNotExist(err) {
				t.Errorf("File was not deleted: %s", p)
			}
		}

		if err := storage.DeleteFile(stored.StoredName); err != nil {
			t.Errorf("Expected deleting a missing file to succeed, got %v", err)
		}
	})

	t.Run("PathTraversalPrevention", func(t *testing.T) {
		_, err := storage.OpenFile("../../../etc/passwd")
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Path traversal was not prevented: %v", err)
		}

		err = storage.DeleteFile("../../../etc/passwd")
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Path traversal was not prevented in delete: %v", err)
		}
	})
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"evidence.png", "evidence.png"},
		{"my chat log.txt", "my_chat_log.txt"},
		{"café.jpg", "cafe.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\photo.jpeg`, "photo.jpeg"},
		{"카톡 캡처.png", "upload.png"},
		{"증거_01.png", "01.png"},
		{"...", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SecureFilename(tt.in); got != tt.want {
				t.Errorf("SecureFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	allowed := []string{"txt", "png", "jpg", "jpeg"}
	tests := []struct {
		name string
		want bool
	}{
		{"a.png", true},
		{"A.JPEG", true},
		{"archive.tar.txt", true},
		{"movie.mp4", false},
		{"noext", false},
		{"trailing.", false},
	}

	for _, tt := range tests {
		if got := Allowed(tt.name, allowed); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func hashFile(t *testing.T, path string) (string, error) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	defer f.Close()
	return SHA256Reader(f)
}

func TestSHA256ReaderDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	content := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	first, err := hashFile(t, path)
	if err != nil {
		t.Fatalf("Failed to hash file: %v", err)
	}
	second, err := SHA256Reader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Failed to hash file: %v", err)
	}

	sum := sha256.Sum256(content)
	if first != second || first != hex.EncodeToString(sum[:]) {
		t.Errorf("Expected deterministic digest %x, got %s and %s", sum, first, second)
	}
}
