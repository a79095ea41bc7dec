/*
Package log holds the logger shared by the vhandle packages. Library code
calls the package level helpers; binaries call Setup once at start up.
*/
package log

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

const timestampFormat = "2006-01-02 15:04:05"

var log = logrus.New()

// Config selects the level, format and destination of log output.
type Config struct {
	Level      string
	Structured bool   // emit JSON lines
	File       string // also write to this file
	Quiet      bool   // discard console output
}

// Setup replaces the shared logger with one built from cfg.
func Setup(cfg Config) error {
	l := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	l.SetLevel(level)

	var out []io.Writer
	if !cfg.Quiet {
		out = append(out, os.Stderr)
	}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		out = append(out, f)
	}
	switch len(out) {
	case 0:
		l.SetOutput(ioutil.Discard)
	case 1:
		l.SetOutput(out[0])
	default:
		l.SetOutput(io.MultiWriter(out...))
	}

	if cfg.Structured {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		l.SetFormatter(&prefixed.TextFormatter{
			TimestampFormat: timestampFormat,
			ForceFormatting: true,
		})
	}
	log = l
	return nil
}

// Get returns the shared logger.
func Get() *logrus.Logger {
	return log
}

// SetOutput redirects the shared logger. Tests use it to silence output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// WithField starts an entry carrying one field.
func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}

// WithFields starts an entry carrying several fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Info(args ...interface{}) {
	log.Info(args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func Error(args ...interface{}) {
	log.Error(args...)
}
