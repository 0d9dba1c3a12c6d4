package processor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qrshare/internal/transfer"
	"qrshare/pkg/utils"

	"github.com/sirupsen/logrus"
)

// maxNameAttempts bounds the search for a free "name (n).ext" slot.
const maxNameAttempts = 1000

// SaveArtifact writes a received file into destDir and returns its path.
// The filename comes from the peer, so only its base name is used and an
// existing file is never overwritten.
func SaveArtifact(destDir string, artifact transfer.Artifact) (string, error) {
	dir, err := utils.ResolveDestinationPath(destDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	name, err := SafeFilename(artifact.Metadata.Filename)
	if err != nil {
		return "", err
	}

	file, path, err := createUnique(dir, name)
	if err != nil {
		return "", err
	}

	if _, err := file.Write(artifact.Data); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	checksum, err := Checksum(bytes.NewReader(artifact.Data))
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "SaveArtifact",
		"path":      path,
		"file_size": len(artifact.Data),
		"mime_type": artifact.Metadata.MimeType,
		"sha256":    checksum,
	}).Info("File saved")

	return path, nil
}

// createUnique creates name in dir, or "name (n).ext" if it is taken.
func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("failed to create file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("no free filename for %s in %s", name, dir)
}
