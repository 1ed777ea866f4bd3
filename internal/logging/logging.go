// Package logging 建立服務使用的 zerolog.Logger
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-nox-ledger/internal/config"
)

// New 依設定建立 Logger，pretty 時輸出人類可讀格式
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter 同 New，但寫到指定的 io.Writer
func NewWithWriter(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "nox-core").Logger()
}
