// Package logger - общий zerolog-логгер приложения.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// L - логгер, которым пользуются все пакеты. До вызова Init пишет JSON в stderr.
var L = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init настраивает уровень и формат вывода.
// pretty=true включает человекочитаемый ConsoleWriter (удобно локально).
func Init(level string, pretty bool) {
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	L = New(w, level)
}

// New создает логгер с заданным уровнем. Неизвестный уровень трактуется как info.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
