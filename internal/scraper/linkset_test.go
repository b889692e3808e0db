package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLink(t *testing.T) {
	base, err := url.Parse(baseURL)
	require.NoError(t, err)

	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/video/7301", "https://www.douyin.com/video/7301", true},
		{"https://www.douyin.com/video/7301?previous_page=app", "https://www.douyin.com/video/7301", true},
		{"//www.douyin.com/video/7301/", "https://www.douyin.com/video/7301", true},
		{"/search/cue?modal_id=7302&type=video", "https://www.douyin.com/video/7302", true},
		{"  /video/abc_9  ", "https://www.douyin.com/video/abc_9", true},
		{"/user/MS4wLj", "", false},
		{"/search/cue?modal_id=", "", false},
		{"", "", false},
		{"javascript:void(0)", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, ok := NormalizeLink(base, tt.href)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinkSet(t *testing.T) {
	s := NewLinkSet()
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Add("c"))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Freeze(2))
	assert.Equal(t, []string{"a", "b", "c"}, s.Freeze(10))
	assert.Empty(t, s.Freeze(0))
}

func TestTitleFromHTML(t *testing.T) {
	assert.Equal(t, "og", titleFromHTML(`<html><head><meta property="og:title" content=" og "><title>t</title></head></html>`))
	assert.Equal(t, "t", titleFromHTML(`<html><head><meta property="og:title" content=""><title> t </title></head></html>`))
	assert.Equal(t, "", titleFromHTML(`<html><body>no title</body></html>`))
}
