// Package log provides a small leveled wrapper around the standard
// library's log.Logger, used by cmd/chaincore. The
// CORE packages (trie, evm, rlp, primitives) take no logging dependency
// of any kind — they stay pure, deterministic functions over their inputs.
package log

import (
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level orders log severity from most to least verbose.
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
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a level-filtered, prefix-tagged wrapper around a single
// underlying *log.Logger.
type Logger struct {
	std       *log.Logger
	min       Level
	component string
}

// Config controls where a Logger writes and which file-rotation policy (if
// any) applies to it.
type Config struct {
	// MinLevel suppresses any call below this severity.
	MinLevel Level
	// Component is prefixed onto every line, e.g. "collator" or "p2p".
	Component string
	// FilePath, if set, routes output through a lumberjack rotating
	// writer instead of (in addition to, if Stdout is also true) stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Stdout     bool
}

// New builds a Logger from cfg. With no FilePath and Stdout false, it
// defaults to writing to stderr so a misconfigured logger is never
// silently swallowed.
func New(cfg Config) *Logger {
	var writers []io.Writer
	if cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		})
	}
	if cfg.Stdout || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = io.MultiWriter(writers...)
	}

	return &Logger{
		std:       log.New(out, "", log.LstdFlags),
		min:       cfg.MinLevel,
		component: cfg.Component,
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// With returns a copy of l scoped to a sub-component, e.g.
// base.With("discovery") so lines read "[collator/discovery] ...".
func (l *Logger) With(component string) *Logger {
	next := *l
	if l.component != "" {
		next.component = l.component + "/" + component
	} else {
		next.component = component
	}
	return &next
}

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil || level < l.min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		l.std.Printf("[%s] [%s] %s", level, l.component, msg)
		return
	}
	l.std.Printf("[%s] %s", level, msg)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
