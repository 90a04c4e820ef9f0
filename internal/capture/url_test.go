package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fragment stripped", "https://example.com/page#section", "https://example.com/page"},
		{"query kept", "https://example.com/search?q=go#top", "https://example.com/search?q=go"},
		{"bare host gets root path", "https://example.com", "https://example.com/"},
		{"unparseable passes through", "not a url", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeURL(tt.in))
		})
	}
}

func TestBrowserURLSkipsNonBrowserApps(t *testing.T) {
	assert.Empty(t, browserURL(context.Background(), "Terminal"))
	assert.Empty(t, browserURL(context.Background(), ""))
}
