package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeechText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "bonjour", "bonjour"},
		{"html tags", "<p>le <b>chat</b></p>", "le chat"},
		{"script removed", "dog<script>alert(1)</script>", "dog"},
		{"entities", "salt &amp; pepper", "salt & pepper"},
		{"emphasis", "**Bonjour** le _monde_", "Bonjour le monde"},
		{"code span kept", "use `fmt.Println`", "use fmt.Println"},
		{"link label kept", "[Paris](https://example.com/paris)", "Paris"},
		{"fenced code dropped", "before\n\n```\nx := 1\n```\n\nafter", "before after"},
		{"heading and paragraph", "# Title\nbody text", "Title body text"},
		{"whitespace collapsed", "  a \n  b\t\tc  ", "a b c"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpeechText(tt.input))
		})
	}
}
