package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidMetadata is returned when a text frame does not satisfy the
// metadata schema.
var ErrInvalidMetadata = errors.New("invalid file metadata")

// FileMetadata describes the file being transferred. It is sent once, as the
// first protocol message, and is immutable afterwards.
type FileMetadata struct {
	Filename    string `json:"filename"`    // Original filename
	Size        int64  `json:"size"`        // File size in bytes
	MimeType    string `json:"type"`        // MIME type of the file
	ChunkSize   int64  `json:"chunkSize"`   // Upper bound of each binary message
	TotalChunks int64  `json:"totalChunks"` // ceil(Size / ChunkSize)
}

// wireMetadata uses pointers so missing fields can be told apart from zero.
type wireMetadata struct {
	Filename    *string `json:"filename"`
	Size        *int64  `json:"size"`
	MimeType    *string `json:"type"`
	ChunkSize   *int64  `json:"chunkSize"`
	TotalChunks *int64  `json:"totalChunks"`
}

// PlanChunks builds metadata for a file of size bytes whose chunks must stay
// at or below bound bytes.
func PlanChunks(filename, mimeType string, size, bound int64) (FileMetadata, error) {
	if bound <= 0 {
		return FileMetadata{}, fmt.Errorf("chunk bound must be positive, got %d", bound)
	}
	if size < 0 {
		return FileMetadata{}, fmt.Errorf("file size must not be negative, got %d", size)
	}

	chunkSize := min(size, bound)
	if chunkSize == 0 {
		chunkSize = bound
	}

	return FileMetadata{
		Filename:    filename,
		Size:        size,
		MimeType:    mimeType,
		ChunkSize:   chunkSize,
		TotalChunks: CeilDiv(size, chunkSize),
	}, nil
}

// CeilDiv returns ceil(a / b) for a >= 0 and b > 0.
func CeilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// Validate checks the metadata invariants.
func (m FileMetadata) Validate() error {
	switch {
	case m.Filename == "":
		return fmt.Errorf("%w: missing filename", ErrInvalidMetadata)
	case m.MimeType == "":
		return fmt.Errorf("%w: missing type", ErrInvalidMetadata)
	case m.Size < 0:
		return fmt.Errorf("%w: negative size %d", ErrInvalidMetadata, m.Size)
	case m.Size == 0 && m.ChunkSize == 0:
		// Empty files may carry no chunk plan at all.
		if m.TotalChunks != 0 {
			return fmt.Errorf("%w: empty file with %d chunks", ErrInvalidMetadata, m.TotalChunks)
		}
	case m.ChunkSize <= 0:
		return fmt.Errorf("%w: chunkSize must be positive, got %d", ErrInvalidMetadata, m.ChunkSize)
	case m.TotalChunks != CeilDiv(m.Size, m.ChunkSize):
		return fmt.Errorf("%w: totalChunks %d does not match ceil(%d/%d)",
			ErrInvalidMetadata, m.TotalChunks, m.Size, m.ChunkSize)
	}
	return nil
}

// Encode serializes the metadata for a text frame.
func (m FileMetadata) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

// ParseFileMetadata decodes and validates a metadata text frame. Every field
// is required, except that an empty file may omit chunkSize and totalChunks
// or send them as null. Unknown fields are ignored.
func ParseFileMetadata(data []byte) (FileMetadata, error) {
	var w wireMetadata
	if err := json.Unmarshal(data, &w); err != nil {
		return FileMetadata{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	var missing []string
	if w.Filename == nil {
		missing = append(missing, "filename")
	}
	if w.Size == nil {
		missing = append(missing, "size")
	}
	if w.MimeType == nil {
		missing = append(missing, "type")
	}
	empty := w.Size != nil && *w.Size == 0
	if w.ChunkSize == nil {
		if !empty {
			missing = append(missing, "chunkSize")
		} else {
			w.ChunkSize = new(int64)
		}
	}
	if w.TotalChunks == nil {
		if !empty {
			missing = append(missing, "totalChunks")
		} else {
			w.TotalChunks = new(int64)
		}
	}
	if len(missing) > 0 {
		return FileMetadata{}, fmt.Errorf("%w: missing fields %v", ErrInvalidMetadata, missing)
	}

	m := FileMetadata{
		Filename:    *w.Filename,
		Size:        *w.Size,
		MimeType:    *w.MimeType,
		ChunkSize:   *w.ChunkSize,
		TotalChunks: *w.TotalChunks,
	}
	if err := m.Validate(); err != nil {
		return FileMetadata{}, err
	}
	return m, nil
}
