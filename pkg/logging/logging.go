package logging

import (
	"fmt"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel accepts debug, info, warn (or warning) and error, case-insensitively
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level: %q", s)
}

// Logger is the sink every component logs through. It is injected at
// construction; nothing in this module keeps a package-level logger.
type Logger interface {
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

type LogFunc func(format string, args ...interface{})

type LogFuncs struct {
	Debugf LogFunc
	Infof  LogFunc
	Warnf  LogFunc
	Errorf LogFunc
}

type logger struct {
	prefix string
	funcs  LogFuncs
}

func NewLogger(prefix string, funcs LogFuncs) Logger {
	return &logger{
		prefix: prefix,
		funcs:  funcs,
	}
}

func (l *logger) logf(f LogFunc, msg string, args ...interface{}) {
	if f == nil {
		return
	}
	if l.prefix != "" {
		msg = l.prefix + msg
	}
	f(msg, args...)
}

func (l *logger) Debugf(msg string, args ...interface{}) {
	l.logf(l.funcs.Debugf, msg, args...)
}

func (l *logger) Infof(msg string, args ...interface{}) {
	l.logf(l.funcs.Infof, msg, args...)
}

func (l *logger) Warnf(msg string, args ...interface{}) {
	l.logf(l.funcs.Warnf, msg, args...)
}

func (l *logger) Errorf(msg string, args ...interface{}) {
	l.logf(l.funcs.Errorf, msg, args...)
}
