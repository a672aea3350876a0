// Package logger はJSON構造化ログの初期化とログ出力値のサニタイズを提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// levelが解釈できない場合はINFOを使用する。
func Setup(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定し、そのロガーを返す。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w, level)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel はdebug/info/warn/errorのいずれかをslog.Levelに変換する。
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Sanitize はログに出力するユーザー入力から英数字・アンダースコア・ハイフン以外を取り除く。
// 改行や制御文字によるログ偽装を防ぐ。
func Sanitize(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, value)
}

// SafeString はSanitize済みの値を持つ文字列属性を返す。
func SafeString(key, value string) slog.Attr {
	return slog.String(key, Sanitize(value))
}
