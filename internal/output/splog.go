// Package output provides the console and file logger used by every command.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a Splog
type Options struct {
	// Writer receives console output, os.Stderr when nil
	Writer io.Writer
	// Debug enables debug messages on the console
	Debug bool
	// LogFile enables a rotating file log with every level when set
	LogFile string
	// MaxSize is the size in megabytes at which the log file is rotated
	MaxSize int
	// MaxBackups is the number of rotated files to keep
	MaxBackups int
	// MaxAge is the number of days to keep rotated files
	MaxAge int
}

// consoleHandler writes bare messages, styled by level, without timestamps
type consoleHandler struct {
	writer io.Writer
	debug  bool
	styles Styles
	attrs  []slog.Attr
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level < slog.LevelInfo {
		return h.debug
	}
	return true
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Message)
	appendAttr := func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	record.Attrs(appendAttr)

	msg := b.String()
	switch {
	case record.Level >= slog.LevelError:
		msg = h.styles.Error.Render("error: " + msg)
	case record.Level >= slog.LevelWarn:
		msg = h.styles.Warn.Render("warning: " + msg)
	case record.Level < slog.LevelInfo:
		msg = h.styles.Dim.Render(msg)
	}
	_, err := fmt.Fprintln(h.writer, msg)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// multiHandler fans out log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			errs = append(errs, handler.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// newRotatingFile creates the lumberjack writer, falling back to its defaults
// for unset knobs
func newRotatingFile(opts Options) *lumberjack.Logger {
	file := &lumberjack.Logger{
		Filename:   opts.LogFile,
		MaxSize:    1,
		MaxBackups: 2,
		MaxAge:     30,
	}
	if opts.MaxSize > 0 {
		file.MaxSize = opts.MaxSize
	}
	if opts.MaxBackups > 0 {
		file.MaxBackups = opts.MaxBackups
	}
	if opts.MaxAge > 0 {
		file.MaxAge = opts.MaxAge
	}
	return file
}

// Splog provides leveled console output and an optional rotating file log
type Splog struct {
	logger    *slog.Logger
	styles    Styles
	logWriter io.WriteCloser
}

// NewSplog creates a console-only logger on stderr
func NewSplog() *Splog {
	splog, _ := NewSplogWithOptions(Options{})
	return splog
}

// NewSplogWithOptions creates a logger; it only fails when the log file
// directory cannot be created
func NewSplogWithOptions(opts Options) (*Splog, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	splog := &Splog{styles: NewStyles(NewRenderer(writer))}

	handlers := []slog.Handler{&consoleHandler{
		writer: writer,
		debug:  opts.Debug,
		styles: splog.styles,
	}}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := newRotatingFile(opts)
		splog.logWriter = file
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String(a.Key, a.Value.Time().Format("2006-01-02 15:04:05.000"))
				}
				return a
			},
		}))
	}

	splog.logger = slog.New(&multiHandler{handlers: handlers})
	return splog, nil
}

// Logger returns the underlying slog logger
func (s *Splog) Logger() *slog.Logger {
	return s.logger
}

// Styles returns the console styles
func (s *Splog) Styles() Styles {
	return s.styles
}

// WithContext installs the logger as the clog logger of ctx
func (s *Splog) WithContext(ctx context.Context) context.Context {
	return clog.WithLogger(ctx, clog.NewLogger(s.logger))
}

func (s *Splog) log(level slog.Level, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.logger.Log(context.Background(), level, msg)
}

// Info writes an info message
func (s *Splog) Info(format string, args ...any) {
	s.log(slog.LevelInfo, format, args...)
}

// Warn writes a warning message
func (s *Splog) Warn(format string, args ...any) {
	s.log(slog.LevelWarn, format, args...)
}

// Error writes an error message
func (s *Splog) Error(format string, args ...any) {
	s.log(slog.LevelError, format, args...)
}

// Debug writes a debug message
func (s *Splog) Debug(format string, args ...any) {
	s.log(slog.LevelDebug, format, args...)
}

// Tip writes a hint at info level
func (s *Splog) Tip(format string, args ...any) {
	s.log(slog.LevelInfo, s.styles.Tip.Render("hint: ")+format, args...)
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.logWriter != nil {
		return s.logWriter.Close()
	}
	return nil
}
