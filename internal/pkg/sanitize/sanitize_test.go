package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "database down", "database down"},
		{"trims", "  spaces  ", "spaces"},
		{"strips tags", "<b>db</b> down", "db down"},
		{"keeps ampersand", "db & cache", "db & cache"},
		{"strips link", `<a href="http://evil">click</a>`, "click"},
		{"empty", "", ""},
		{"keeps comparison", "latency < 200ms", "latency < 200ms"},
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"encoded tag keeps text", "&lt;b&gt;db&lt;/b&gt; down", "db down"},
		{"double encoded tag", "&amp;lt;i&amp;gt;slow", "slow"},
		{"only markup", "<b></b>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;",
		"db & cache <b>down</b>",
	}

	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), in)
		assert.NotContains(t, once, "<")
	}
}
