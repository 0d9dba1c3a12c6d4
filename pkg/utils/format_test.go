package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFileSize(tt.size), "size %d", tt.size)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0 seconds"},
		{"negative", -5 * time.Second, "0 seconds"},
		{"one second", time.Second, "1 second"},
		{"truncates fraction", 1900 * time.Millisecond, "1 second"},
		{"minute only", time.Minute, "1 minute"},
		{"mixed", time.Hour + 2*time.Minute + 3*time.Second, "1 hour, 2 minutes, 3 seconds"},
		{"hours and seconds", 2*time.Hour + 5*time.Second, "2 hours, 5 seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}
