// Package logger configures the process-wide slog output: one compact
// console handler with level colors on terminals, timestamps in verbose
// mode, and third-party records dropped unless the engine runs at debug.
// cmd/interviewer calls Init once at startup; everything else logs through
// the slog default.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// modulePrefix identifies this module's own frames when deciding whether a
// record is third-party noise.
const modulePrefix = "github.com/lattice-hire/interviewer"

// ParseLevel converts a --log-level flag value to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Init installs the console handler as the slog default. format "verbose"
// prefixes each line with a timestamp; anything else gets the compact
// form. Colors switch on automatically when output is a terminal.
func Init(level slog.Level, output *os.File, format string) {
	slog.SetDefault(slog.New(newConsoleHandler(output, level, isTerminal(output), format == "verbose")))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// consoleHandler renders records as single "LEVEL message key=value" lines.
// Records originating outside this module are dropped unless the handler
// runs at debug, so net/http and dependency chatter stays out of a live
// interview's log stream.
type consoleHandler struct {
	mu      *sync.Mutex
	out     io.Writer
	level   slog.Level
	color   bool
	verbose bool
	attrs   []slog.Attr
	group   string
}

func newConsoleHandler(out io.Writer, level slog.Level, color, verbose bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: out, level: level, color: color, verbose: verbose}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	if h.level > slog.LevelDebug && !fromThisModule(r.PC) {
		return nil
	}

	var b strings.Builder
	if h.verbose && !r.Time.IsZero() {
		b.WriteString(r.Time.Format(time.DateTime))
		b.WriteByte(' ')
	}
	b.WriteString(h.levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	b.WriteByte(' ')
	if group != "" {
		b.WriteString(group)
		b.WriteByte('.')
	}
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}

func (h *consoleHandler) levelTag(level slog.Level) string {
	tag := level.String()
	if !h.color {
		return tag
	}
	switch {
	case level >= slog.LevelError:
		return "\033[31m" + tag + "\033[0m"
	case level >= slog.LevelWarn:
		return "\033[33m" + tag + "\033[0m"
	case level >= slog.LevelInfo:
		return "\033[36m" + tag + "\033[0m"
	default:
		return "\033[90m" + tag + "\033[0m"
	}
}

// WithAttrs stores attrs with the group in effect at the time they are
// added already folded into their keys, matching slog's contract that a
// group only qualifies attrs added after it.
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	cp := *h
	if cp.group != "" {
		cp.group += "." + name
	} else {
		cp.group = name
	}
	return &cp
}

// fromThisModule reports whether the record's call site is in this module.
// cmd/interviewer compiles as package main, so the function-name prefix
// alone misses it; the file path check catches it.
func fromThisModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	if strings.HasPrefix(fn.Name(), modulePrefix) {
		return true
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(file, "interviewer/")
}
