// Package logger is the small leveled logger used for diagnostics across
// the library and the updctl command. The default logger writes to
// stderr at Info level; embedding applications can lower the level to
// see per-request backend diagnostics or silence it entirely.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to Info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type Logger struct {
	mu       sync.Mutex
	minLevel Level
	out      io.Writer
}

func New(out io.Writer, level Level) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{minLevel: level, out: out}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

func (l *Logger) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

func (l *Logger) log(level Level, tag string, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.out, "[%-5s] %s %s\n", tag, ts, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, "WARN", format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, "ERROR", format, args...) }

var std = New(os.Stderr, LevelInfo)

// Default returns the process-wide logger.
func Default() *Logger { return std }

func SetLevel(level Level)     { std.SetLevel(level) }
func SetOutput(w io.Writer)    { std.SetOutput(w) }
func Debug(f string, a ...any) { std.Debug(f, a...) }
func Info(f string, a ...any)  { std.Info(f, a...) }
func Warn(f string, a ...any)  { std.Warn(f, a...) }
func Error(f string, a ...any) { std.Error(f, a...) }
