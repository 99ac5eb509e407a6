// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Fields = logrus.Fields

// Options controls Setup. File enables a rotating log file next to stderr.
type Options struct {
	Level   string
	File    string
	NoColor bool
	Caller  bool
}

// Setup applies opts to the standard logrus logger and returns it.
func Setup(opts Options) (*logrus.Logger, error) {
	logger := logrus.StandardLogger()
	if err := Configure(logger, os.Stderr, opts); err != nil {
		return nil, err
	}
	return logger, nil
}

// Configure applies opts to logger, writing to out plus the optional file.
func Configure(logger *logrus.Logger, out io.Writer, opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = lvl
	}
	logger.SetLevel(level)

	f := &formatter.Formatter{
		NoColors:        opts.NoColor,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
	}
	if opts.Caller {
		f.CustomCallerFormatter = func(fr *runtime.Frame) string {
			s := strings.Split(fr.Function, ".")
			funcName := s[len(s)-1]
			if opts.NoColor {
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(fr.File), fr.Line, funcName)
			}
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(fr.File), fr.Line, funcName)
		}
	}
	logger.SetFormatter(f)
	logger.SetReportCaller(opts.Caller)

	writers := []io.Writer{out}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))
	return nil
}
