// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent   = 4  // spaces to indent file entries
	nameWidth    = 40 // Base width for filename
	outcomeWidth = 10 // Width for outcome
	detailWidth  = 15 // Width for detail text
)

// 🎯 Outcome is what happened to one file
type Outcome string

const (
	Uploaded Outcome = "uploaded"
	Repaired Outcome = "repaired"
	Skipped  Outcome = "skipped"
	Failed   Outcome = "failed"
	Noted    Outcome = "noted"
)

// 🎯 FileEvent is one file line of the console output
type FileEvent struct {
	Path     string  // File path relative to the source root
	Outcome  Outcome // What happened
	Detail   string  // Short detail (new name, document id, error class)
	Attempts uint    // Attempts used, when retried
}

// 📁 FolderOperation is a folder being migrated
type FolderOperation struct {
	Name        string // Local folder path relative to the source root
	LogicalPath string // Remote logical path
	RemoteID    string // Resolved remote folder id
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	mu        sync.Mutex
	currentOp *FolderOperation
	events    []FileEvent
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🔇 Discard is a logger that prints nothing
func Discard() *Logger {
	return &Logger{zlog: zerolog.Nop(), console: io.Discard}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// Ctx gets the logger from context, or a discarding one when there is none.
func Ctx(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return Discard()
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatFileEvent formats a file event for display
func (l *Logger) formatFileEvent(ev FileEvent) string {
	// Determine symbol and color
	var symbol rune
	var symbolColor color.Attribute
	switch ev.Outcome {
	case Uploaded:
		symbol = '✓'
		symbolColor = color.FgGreen
	case Repaired:
		symbol = '⟳'
		symbolColor = color.FgBlue
	case Failed:
		symbol = '✗'
		symbolColor = color.FgRed
	case Noted:
		symbol = '•'
		symbolColor = color.FgCyan
	default:
		symbol = '-'
		symbolColor = color.FgYellow
	}

	detail := ev.Detail
	if ev.Attempts > 1 {
		detail = fmt.Sprintf("%s (%d attempts)", detail, ev.Attempts)
	}

	// Build the line
	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, ev.Path),
		color.New(symbolColor).Sprint(fmt.Sprintf("%-*s", outcomeWidth, ev.Outcome)),
		fmt.Sprintf("%-*s", detailWidth, detail))
}

// 📝 LogFile logs a file event
func (l *Logger) LogFile(ctx context.Context, ev FileEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ev)

	fmt.Fprintln(l.console, l.formatFileEvent(ev))

	l.zlog.Info().
		Str("file", ev.Path).
		Str("outcome", string(ev.Outcome)).
		Str("detail", ev.Detail).
		Uint("attempts", ev.Attempts).
		Msg("file event")
}

// 📝 StartFolder starts a new folder section
func (l *Logger) StartFolder(ctx context.Context, op FolderOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.events = nil

	fmt.Fprintf(l.console, "[migrating %s]\n",
		color.New(color.FgCyan).Sprint(op.Name))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.LogicalPath),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(op.RemoteID))

	l.zlog.Info().
		Str("folder", op.Name).
		Str("logical_path", op.LogicalPath).
		Str("remote_id", op.RemoteID).
		Msg("starting folder")
}

// 📝 EndFolder ends the current folder section
func (l *Logger) EndFolder(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return
	}

	failed := 0
	for _, ev := range l.events {
		if ev.Outcome == Failed {
			failed++
		}
	}

	l.zlog.Info().
		Str("folder", l.currentOp.Name).
		Int("files", len(l.events)).
		Int("failed", failed).
		Msg("folder complete")

	l.currentOp = nil
	l.events = nil
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("clmigrate")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
