package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Extension returns the lower-cased text after the last dot of filename, or
// "" when there is none.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// Allowed reports whether filename carries one of the allowed extensions.
func Allowed(filename string, allowed []string) bool {
	ext := Extension(filename)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

// SecureFilename reduces name to an ASCII-only base name that is safe to put
// on disk. Accents are decomposed and dropped, path separators and
// whitespace become underscores. When nothing survives the result is
// "upload" with the original extension.
func SecureFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r > unicode.MaxASCII:
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r == '.' || r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}

	safe := strings.Trim(b.String(), "._")
	if safe == "" || (Extension(safe) == "" && Extension(name) != "") {
		if ext := Extension(name); ext != "" {
			return "upload." + ext
		}
		return "upload"
	}
	return safe
}

// SHA256Reader hashes r to EOF in fixed-size chunks.
func SHA256Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.CopyBuffer(h, r, make([]byte, copyBufferSize)); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
