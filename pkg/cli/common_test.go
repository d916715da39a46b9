package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDestinationFromURL(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
	}{
		{"file path", "https://example.com/releases/v1/archive.tar.gz", "archive.tar.gz"},
		{"query string ignored", "https://example.com/data.bin?token=abc", "data.bin"},
		{"escaped name", "https://example.com/my%20file.iso", "my file.iso"},
		{"trailing slash", "https://example.com/releases/", FallbackOutputName},
		{"no path", "https://example.com", FallbackOutputName},
		{"root path", "https://example.com/", FallbackOutputName},
		{"dot dot", "https://example.com/a/..", FallbackOutputName},
		{"unparseable", "http://bad host/\x7f", FallbackOutputName},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DestinationFromURL(tc.url))
		})
	}
}
