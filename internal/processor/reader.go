package processor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileSource serves a local file to the sender engine by offset.
type FileSource struct {
	file     *os.File
	name     string
	size     int64
	mimeType string
}

// OpenFile opens path for sending. Directories are rejected.
func OpenFile(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	src := &FileSource{
		file:     file,
		name:     filepath.Base(path),
		size:     stat.Size(),
		mimeType: DetectMimeType(path),
	}

	logrus.WithFields(logrus.Fields{
		"function":  "OpenFile",
		"file_name": src.name,
		"file_size": src.size,
		"mime_type": src.mimeType,
	}).Info("File prepared for sending")

	return src, nil
}

func (s *FileSource) Name() string     { return s.name }
func (s *FileSource) Size() int64      { return s.size }
func (s *FileSource) MimeType() string { return s.mimeType }

// ReadAt reads len(p) bytes at off.
func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	return s.file.Close()
}
