// Package guildlog provides component-tagged logging shared by every
// reconciliation and command package. Dev mode prints a coloured,
// human-oriented line to stdout in addition to the structured logrus record;
// prod mode logs structured records only.
package guildlog

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
)

var devMode atomic.Bool

func init() {
	std := logrus.StandardLogger()
	std.SetFormatter(&logrus.JSONFormatter{})
	if os.Getenv("GUILDSYNC_ENV") != "production" {
		devMode.Store(true)
	}
}

// SetDevMode overrides the dev/prod split detected from GUILDSYNC_ENV.
// Passing false silences the coloured stdout lines.
func SetDevMode(enabled bool) { devMode.Store(enabled) }

// IsDev reports whether dev-mode console output is enabled.
func IsDev() bool { return devMode.Load() }

// Logger logs on behalf of one named component (e.g. "seriessync", "roles").
type Logger struct {
	tag   string
	entry *logrus.Entry
}

// New creates a Logger tagged with the given component name.
func New(tag string) *Logger {
	return &Logger{
		tag:   tag,
		entry: logrus.WithField("component", tag),
	}
}

func (l *Logger) prefix() string {
	return fmt.Sprintf("[guildsync:%s]", l.tag)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if IsDev() {
		fmt.Printf("%s  • %s %s%s\n", gray, l.prefix(), msg, reset)
	}
	l.entry.Debug(msg)
}

func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if IsDev() {
		fmt.Printf("%s  ℹ %s %s%s\n", cyan, l.prefix(), msg, reset)
	}
	l.entry.Info(msg)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if IsDev() {
		fmt.Printf("%s  ⚠ %s %s%s\n", yellow, l.prefix(), msg, reset)
	}
	l.entry.Warn(msg)
}

func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if IsDev() {
		fmt.Printf("%s  ✗ %s %s%s\n", red, l.prefix(), msg, reset)
	}
	l.entry.Error(msg)
}
