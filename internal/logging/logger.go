/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logging provides centralized, stdout-safe logging for codebuddy.
//
// Both transports (stdio and websocket) frame JSON-RPC messages; the stdio
// transport in particular reserves stdout exclusively for those frames, so
// every log line here goes to stderr — the same constraint any
// stdio-framed JSON-RPC server has to enforce.
package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

func init() {
	pterm.SetDefaultOutput(os.Stderr)

	pterm.Info = *pterm.Info.WithPrefix(pterm.Prefix{
		Text:  "INFO",
		Style: pterm.NewStyle(pterm.FgBlue),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Success = *pterm.Success.WithPrefix(pterm.Prefix{
		Text:  "SUCCESS",
		Style: pterm.NewStyle(pterm.FgGreen),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Warning = *pterm.Warning.WithPrefix(pterm.Prefix{
		Text:  "WARNING",
		Style: pterm.NewStyle(pterm.FgYellow),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Error = *pterm.Error.WithPrefix(pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.FgRed),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Debug = *pterm.Debug.WithPrefix(pterm.Prefix{
		Text:  "DEBUG",
		Style: pterm.NewStyle(pterm.FgCyan),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)
}

// Level is the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is safe for concurrent use; every tool handler, session and
// per-server goroutine may log through the same instance.
type Logger struct {
	mu           sync.RWMutex
	correlation  string
	debugEnabled bool
}

var global = &Logger{}

// Global returns the process-wide logger instance.
func Global() *Logger { return global }

func (l *Logger) SetDebugEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugEnabled = enabled
}

func (l *Logger) IsDebugEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.debugEnabled
}

// WithCorrelation returns a child logger that tags every line with id,
// the same id carried in an Internal error's details so a wire error
// can be matched to its log lines.
func (l *Logger) WithCorrelation(id string) *Logger {
	return &Logger{debugEnabled: l.IsDebugEnabled(), correlation: id}
}

func (l *Logger) Debug(format string, args ...any)   { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)    { l.log(LevelInfo, format, args...) }
func (l *Logger) Warning(format string, args ...any) { l.log(LevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...any)   { l.log(LevelError, format, args...) }

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.RLock()
	debugEnabled := l.debugEnabled
	correlation := l.correlation
	l.mu.RUnlock()

	if level == LevelDebug && !debugEnabled {
		return
	}

	message := fmt.Sprintf(format, args...)
	if correlation != "" {
		message = fmt.Sprintf("[%s] %s", correlation, message)
	}

	switch level {
	case LevelDebug:
		pterm.Debug.Println(message)
	case LevelInfo:
		pterm.Info.Println(message)
	case LevelWarning:
		pterm.Warning.Println(message)
	case LevelError:
		pterm.Error.Println(message)
	}
}

func Debug(format string, args ...any)   { global.Debug(format, args...) }
func Info(format string, args ...any)    { global.Info(format, args...) }
func Warning(format string, args ...any) { global.Warning(format, args...) }
func Error(format string, args ...any)   { global.Error(format, args...) }

func SetDebugEnabled(enabled bool) { global.SetDebugEnabled(enabled) }
func IsDebugEnabled() bool         { return global.IsDebugEnabled() }
