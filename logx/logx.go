// Package logx provides the structured logger used throughout the parser.
// It keeps the teacher's level-gated Logger interface shape (Debug/Info/
// Warn/Error behind SetLevel/IsLevelEnabled) but re-backs the default
// implementation with logrus instead of the teacher's bare log.Logger, so
// log entries carry structured fields instead of printf-interpolated text.
package logx

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is the parser's own small level enum, decoupled from any wire
// protocol's logging-level vocabulary.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the interface every component in this module logs through. A
// nil Logger is never passed around; NoOp() satisfies every call as a
// silent sink so Options.Logger never requires explicit configuration.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
	SetLevel(level Level)
	IsLevelEnabled(level Level) bool
}

// Fields carries structured context (component, stage, candidate_method,
// ...) the way logrus.WithField accumulates it, without requiring every
// call site to build a logrus.Entry by hand.
type Fields map[string]interface{}

// logrusLogger is the default Logger implementation.
type logrusLogger struct {
	entry *logrus.Entry
	mu    sync.RWMutex
	level Level
}

// New returns a Logger backed by logrus, logging to its default output
// (stderr) with structured fields. component is attached to every entry.
func New(component string) Logger {
	base := logrus.New()
	return &logrusLogger{
		entry: base.WithField("component", component),
		level: LevelInfo,
	}
}

// NoOp returns a Logger that discards everything, the zero-config default
// for Options.Logger.
func NoOp() Logger { return noop{} }

type noop struct{}

func (noop) Debug(string, Fields)        {}
func (noop) Info(string, Fields)         {}
func (noop) Warn(string, Fields)         {}
func (noop) Error(string, Fields)        {}
func (noop) SetLevel(Level)              {}
func (noop) IsLevelEnabled(Level) bool   { return false }

func (l *logrusLogger) log(level Level, msg string, fields Fields) {
	if !l.IsLevelEnabled(level) {
		return
	}
	entry := l.entry
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	switch level {
	case LevelDebug:
		entry.Debug(msg)
	case LevelInfo:
		entry.Info(msg)
	case LevelWarn:
		entry.Warn(msg)
	case LevelError:
		entry.Error(msg)
	}
}

func (l *logrusLogger) Debug(msg string, fields Fields) { l.log(LevelDebug, msg, fields) }
func (l *logrusLogger) Info(msg string, fields Fields)  { l.log(LevelInfo, msg, fields) }
func (l *logrusLogger) Warn(msg string, fields Fields)  { l.log(LevelWarn, msg, fields) }
func (l *logrusLogger) Error(msg string, fields Fields) { l.log(LevelError, msg, fields) }

func (l *logrusLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.entry.Logger.SetLevel(level.logrusLevel())
}

func (l *logrusLogger) IsLevelEnabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}
