package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcess(t *testing.T) {
	tests := []struct {
		name   string
		filter FilterConfig
		path   string
		want   bool
	}{
		{"plain file", DefaultFilterConfig(), "/in/report.pdf", true},
		{"tmp file", DefaultFilterConfig(), "/in/report.pdf.tmp", false},
		{"swap file", DefaultFilterConfig(), "/in/.report.pdf.swp", false},
		{"backup file", DefaultFilterConfig(), "/in/notes.txt~", false},
		{"ds store", DefaultFilterConfig(), "/in/.DS_Store", false},
		{"hidden file", DefaultFilterConfig(), "/in/.env", false},
		{"hidden allowed", FilterConfig{}, "/in/.env", true},
		{"extension allowed", FilterConfig{AllowedExtensions: []string{".pdf", ".txt"}}, "/in/a.txt", true},
		{"extension rejected", FilterConfig{AllowedExtensions: []string{".pdf"}}, "/in/a.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.ShouldProcess(tt.path))
		})
	}
}

func TestPushable(t *testing.T) {
	assert.True(t, FileEvent{Type: EventCreate}.Pushable())
	assert.True(t, FileEvent{Type: EventWrite}.Pushable())
	assert.False(t, FileEvent{Type: EventRemove}.Pushable())
	assert.False(t, FileEvent{Type: EventRename}.Pushable())
}
