package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name          string
		size          int64
		bound         int64
		wantChunkSize int64
		wantTotal     int64
	}{
		{"small file is one chunk", 10, 3 * mib, 10, 1},
		{"exact multiple", 6 * mib, 3 * mib, 3 * mib, 2},
		{"remainder chunk", 6*mib + 1, 3 * mib, 3 * mib, 3},
		{"bound equals size", 3 * mib, 3 * mib, 3 * mib, 1},
		{"empty file", 0, 3 * mib, 3 * mib, 0},
		{"tiny bound", 10, 4, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := PlanChunks("a.bin", "application/octet-stream", tt.size, tt.bound)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunkSize, m.ChunkSize)
			assert.Equal(t, tt.wantTotal, m.TotalChunks)
			assert.NoError(t, m.Validate())
		})
	}
}

func TestPlanChunks_RejectsBadInput(t *testing.T) {
	_, err := PlanChunks("a", "b", 10, 0)
	assert.Error(t, err)

	_, err = PlanChunks("a", "b", -1, 10)
	assert.Error(t, err)
}

func TestFileMetadata_EncodeUsesWireKeys(t *testing.T) {
	m := FileMetadata{Filename: "a.txt", Size: 10, MimeType: "text/plain", ChunkSize: 4, TotalChunks: 3}

	data, err := m.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"filename":"a.txt","size":10,"type":"text/plain","chunkSize":4,"totalChunks":3}`, string(data))

	parsed, err := ParseFileMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestParseFileMetadata_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "hello"},
		{"control message", `{"type":"receiver_connected"}`},
		{"missing filename", `{"size":10,"type":"text/plain","chunkSize":4,"totalChunks":3}`},
		{"missing type", `{"filename":"a","size":10,"chunkSize":4,"totalChunks":3}`},
		{"empty filename", `{"filename":"","size":10,"type":"text/plain","chunkSize":4,"totalChunks":3}`},
		{"empty type", `{"filename":"a","size":10,"type":"","chunkSize":4,"totalChunks":3}`},
		{"zero chunk size", `{"filename":"a","size":10,"type":"t","chunkSize":0,"totalChunks":3}`},
		{"negative size", `{"filename":"a","size":-1,"type":"t","chunkSize":4,"totalChunks":0}`},
		{"inconsistent total", `{"filename":"a","size":10,"type":"t","chunkSize":4,"totalChunks":2}`},
		{"null total for non-empty file", `{"filename":"a","size":10,"type":"t","chunkSize":4,"totalChunks":null}`},
		{"empty file with chunks", `{"filename":"a","size":0,"type":"t","chunkSize":0,"totalChunks":2}`},
		{"wrong field type", `{"filename":"a","size":"10","type":"t","chunkSize":4,"totalChunks":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFileMetadata([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMetadata))
		})
	}
}

func TestParseFileMetadata_IgnoresUnknownFields(t *testing.T) {
	m, err := ParseFileMetadata([]byte(`{"filename":"a","size":0,"type":"t","chunkSize":8,"totalChunks":0,"extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Size)
}

func TestParseFileMetadata_EmptyFileWithoutChunkPlan(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"null plan", `{"filename":"empty.txt","size":0,"type":"text/plain","chunkSize":0,"totalChunks":null}`},
		{"missing plan", `{"filename":"empty.txt","size":0,"type":"text/plain"}`},
		{"planned", `{"filename":"empty.txt","size":0,"type":"text/plain","chunkSize":1024,"totalChunks":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseFileMetadata([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, "empty.txt", m.Filename)
			assert.Equal(t, int64(0), m.Size)
			assert.Equal(t, int64(0), m.TotalChunks)
		})
	}
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, int64(0), CeilDiv(0, 4))
	assert.Equal(t, int64(1), CeilDiv(1, 4))
	assert.Equal(t, int64(1), CeilDiv(4, 4))
	assert.Equal(t, int64(3), CeilDiv(10, 4))
}
