// Package definition holds the small cross-cutting interfaces the rest
// of distcal is built against, starting with the logger every component
// logs through.
package definition

import (
	"os"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// Logger is the interface every component of distcal logs through,
// backed by a real structured-logging library rather than raw fmt
// calls.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}

// DefaultLogger wraps logrus, colorizing the level prefix when writing
// to a terminal and falling back to plain text otherwise.
type DefaultLogger struct {
	entry *logrus.Entry
	debug bool
}

// NewDefaultLogger builds the logger used when the caller does not
// supply their own implementation. name tags every line, e.g. the node
// id, so interleaved node logs in a single process stay distinguishable.
func NewDefaultLogger(name string) *DefaultLogger {
	base := logrus.New()
	base.SetOutput(colorable.NewColorableStderr())
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return &DefaultLogger{
		entry: base.WithField("node", name),
		debug: false,
	}
}

func (l *DefaultLogger) Info(v ...interface{})                 { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }
func (l *DefaultLogger) Warn(v ...interface{})                 { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }
func (l *DefaultLogger) Error(v ...interface{})                { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	if l.debug {
		l.entry.Debug(v...)
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, v...)
	}
}

func (l *DefaultLogger) Fatal(v ...interface{}) {
	l.entry.Error(v...)
	os.Exit(1)
}

func (l *DefaultLogger) Fatalf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
	os.Exit(1)
}

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	if value {
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	}
	return l.debug
}

// LevelColor returns level wrapped in the ANSI color this logger uses
// for that severity, for callers building their own output outside of
// logrus (e.g. the CLI's "log" command dump).
func LevelColor(level string) string {
	switch level {
	case "WARN":
		return color.YellowString(level)
	case "ERROR", "FATAL":
		return color.RedString(level)
	case "DEBUG":
		return color.CyanString(level)
	default:
		return color.GreenString(level)
	}
}
