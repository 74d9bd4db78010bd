// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は日記エントリ本文からマークアップを取り除き、
// 保存・エクスポートされる値をプレーンテキストに限定する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize は入力からHTMLタグを全て除去したプレーンテキストを返す。
	// script, styleの中身は捨てる。前後の空白は除去する。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyでTextSanitizerServiceを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去し、エスケープされた文字実体を元の文字に戻す。
// 結果はHTMLとしてではなくテキストとして扱われる。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(strings.ReplaceAll(raw, "\x00", ""))
	return strings.TrimSpace(html.UnescapeString(stripped))
}
