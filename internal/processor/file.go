package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// DefaultMimeType is used when the extension does not map to a known type.
const DefaultMimeType = "application/octet-stream"

// ErrUnsafeFilename is returned for names that cannot be written inside the
// destination directory.
var ErrUnsafeFilename = errors.New("unsafe filename")

// DetectMimeType guesses the MIME type from the file extension.
func DetectMimeType(path string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		return DefaultMimeType
	}
	return mimeType
}

// Checksum returns the hex SHA-256 of everything r yields.
func Checksum(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", fmt.Errorf("failed to read data for checksum: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// SafeFilename reduces a peer-supplied name to its last path element.
func SafeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + name))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrUnsafeFilename, name)
	}
	return base, nil
}
