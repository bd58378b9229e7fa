// Package logger owns the process-wide logrus loggers.  Until InitLoggers
// runs, the loggers write text to stderr so packages can log safely from
// tests and init code.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  = logrus.New()
	WarnLogger  = logrus.New()
	ErrorLogger = logrus.New()
)

// Options controls where and how loudly the loggers write.
type Options struct {
	File       string // rotated log file; empty disables file output
	Level      string // logrus level name, default "info"
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	JSON       bool
}

// InitLoggers points every logger at stdout plus a rotated file and sets
// the formatter and level.
func InitLoggers(opts Options) error {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	var out io.Writer = os.Stdout
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return err
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		})
	}
	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if opts.JSON {
		formatter = &logrus.JSONFormatter{}
	}
	for _, l := range []*logrus.Logger{InfoLogger, WarnLogger, ErrorLogger} {
		l.SetOutput(out)
		l.SetFormatter(formatter)
		l.SetLevel(level)
	}
	return nil
}

// NewFileLogger returns a standalone logger writing JSON lines to a
// rotated file.  The audit consumer uses it for its event log.
func NewFileLogger(path string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 10,
		MaxAge:     90,
	})
	return l
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
