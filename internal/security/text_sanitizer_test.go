package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSanitizer_StripsMarkup(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Walked 5km today", "Walked 5km today"},
		{"タグは除去される", "<p>Felt <strong>great</strong></p>", "Felt great"},
		{"scriptは中身ごと除去される", "ok<script>alert('x')</script>", "ok"},
		{"styleは中身ごと除去される", "<style>body{}</style>calm", "calm"},
		{"記号はエスケープされずに残る", "Tom & Jerry's \"tea\"", "Tom & Jerry's \"tea\""},
		{"前後の空白は除去される", "  \n gratitude \t ", "gratitude"},
		{"日本語", "<em>感謝</em>の気持ち", "感謝の気持ち"},
		{"NUL文字は除去される", "a\x00b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizer.Sanitize(tt.input))
		})
	}
}

func TestTextSanitizer_EmptyInput(t *testing.T) {
	assert.Equal(t, "", NewTextSanitizer().Sanitize(""))
}

func TestTextSanitizer_OnlyMarkupBecomesEmpty(t *testing.T) {
	assert.Equal(t, "", NewTextSanitizer().Sanitize("<img src=x onerror=alert(1)><br/>"))
}

func TestTextSanitizer_XSSPayloads(t *testing.T) {
	sanitizer := NewTextSanitizer()

	for _, input := range []string{
		`<svg onload="alert('xss')">`,
		`<img src="x" onerror="alert('xss')">`,
		`<a href="javascript:alert('xss')">click</a>`,
		`<p OnClick="alert('xss')">text</p>`,
	} {
		got := strings.ToLower(sanitizer.Sanitize(input))
		assert.NotContains(t, got, "<", "input %q", input)
		assert.NotContains(t, got, "onload")
		assert.NotContains(t, got, "onerror")
		assert.NotContains(t, got, "javascript:")
	}
}

func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizerService = NewTextSanitizer()
}
