package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging installs the default logger. With a file the output is
// logfmt through a rotating writer, otherwise a terminal handler on stderr,
// coloured when stderr is a terminal.
func setupLogging(verbosity int, file string) error {
	level := log.FromLegacyLevel(verbosity)
	if verbosity <= 0 {
		level = slog.LevelError + 4
	}
	var handler slog.Handler
	if file != "" {
		handler = log.LogfmtHandlerWithLevel(newRotatingWriter(file), level)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		var output io.Writer = os.Stderr
		if useColor {
			output = colorable.NewColorableStderr()
		}
		handler = log.NewTerminalHandlerWithLevel(output, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return nil
}

func newRotatingWriter(file string) io.Writer {
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    100, // megabytes
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
}
