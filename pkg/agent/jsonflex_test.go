package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLooseObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
		ok   bool
	}{
		{
			name: "strict json",
			in:   `{"blog_name": "Example", "total_posts": 10}`,
			want: map[string]any{"blog_name": "Example", "total_posts": float64(10)},
			ok:   true,
		},
		{
			name: "single quoted",
			in:   `{'blog_name': 'Example'}`,
			want: map[string]any{"blog_name": "Example"},
			ok:   true,
		},
		{
			name: "python literals",
			in:   `{'done': True, 'failed': False, 'extra': None,}`,
			want: map[string]any{"done": true, "failed": false, "extra": nil},
			ok:   true,
		},
		{
			name: "object buried in prose",
			in:   `Sure, here is the data you asked for: {"blog_name": "Example"} hope that helps!`,
			want: map[string]any{"blog_name": "Example"},
			ok:   true,
		},
		{
			name: "trailing comma",
			in:   `{"blog_name": "Example",}`,
			want: map[string]any{"blog_name": "Example"},
			ok:   true,
		},
		{
			name: "not an object",
			in:   `[1, 2, 3]`,
			ok:   false,
		},
		{
			name: "plain prose",
			in:   `I could not find any information on that page.`,
			ok:   false,
		},
		{
			name: "empty",
			in:   "   ",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLooseObject(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractFencedObject(t *testing.T) {
	text := "Here is my plan:\n```json\n{\"name\": \"search_web_for_blogs\", \"parameters\": {\"keyword\": \"tea\"}}\n```\nDone."
	obj, ok := ExtractFencedObject(text)
	require.True(t, ok)
	assert.Contains(t, obj, `"search_web_for_blogs"`)

	_, ok = ExtractFencedObject("no fences here")
	assert.False(t, ok)
}
