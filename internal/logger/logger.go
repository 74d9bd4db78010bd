// Package logger はslogの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// redactedValue は秘匿属性の置換値。
const redactedValue = "[REDACTED]"

// sensitiveKeys はログに値を残してはならない属性キー。
// セッショントークンや認可コードが誤って渡されても出力されない。
var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"session_token": {},
	"code":          {},
	"state":         {},
	"client_secret": {},
	"cookie":        {},
	"authorization": {},
}

// options はJSON/テキスト共通のHandlerOptionsを返す。
func options(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	}
}

// redact は秘匿キーの値を置換する。グループ内のキーも対象。
func redact(groups []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// Setup は本番用のJSON・INFOレベルのLoggerを返す。
func Setup(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, options(slog.LevelInfo)))
}

// SetupDevelopment は開発用のテキスト形式・DEBUGレベルのLoggerを返す。
func SetupDevelopment(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, options(slog.LevelDebug)))
}

// SetupDefault は環境に応じたLoggerをグローバルロガーとして設定し、返す。
// writerがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer, development bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	var l *slog.Logger
	if development {
		l = SetupDevelopment(w)
	} else {
		l = Setup(w)
	}
	slog.SetDefault(l)
	return l
}
