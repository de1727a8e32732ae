package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var levelStyles = map[slog.Level]lipgloss.Style{
	slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
	slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")).Bold(true),
	slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true),
}

var keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

// consoleHandler writes one line per record:
//
//	15:04:05 INFO  message key=value key=value
type consoleHandler struct {
	mu      *sync.Mutex
	writer  io.Writer
	level   *slog.LevelVar
	attrs   []slog.Attr
	groups  []string
	noColor bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, noColor bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: lvl, noColor: noColor}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(ts.Format("15:04:05"))
	buf.WriteByte(' ')
	buf.WriteString(h.levelLabel(record.Level))
	buf.WriteByte(' ')
	buf.WriteString(strings.TrimSpace(record.Message))

	for _, attr := range h.attrs {
		h.writeAttr(&buf, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.writeAttr(&buf, h.groups, attr)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, qualify(h.groups, a))
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	return &clone
}

// qualify bakes the current group prefix into an attribute added through
// WithAttrs, so later groups do not apply to it.
func qualify(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		return a
	}
	a.Key = strings.Join(groups, ".") + "." + a.Key
	return a
}

func (h *consoleHandler) writeAttr(buf *bytes.Buffer, groups []string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		sub := groups
		if attr.Key != "" {
			sub = append(append([]string{}, groups...), attr.Key)
		}
		for _, a := range attr.Value.Group() {
			h.writeAttr(buf, sub, a)
		}
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	buf.WriteByte(' ')
	buf.WriteString(h.render(keyStyle, key))
	buf.WriteByte('=')
	buf.WriteString(formatValue(attr.Value))
}

func (h *consoleHandler) levelLabel(level slog.Level) string {
	label := fmt.Sprintf("%-5s", level.String())
	style, ok := levelStyles[level]
	if !ok {
		return label
	}
	return h.render(style, label)
}

func (h *consoleHandler) render(style lipgloss.Style, s string) string {
	if h.noColor {
		return s
	}
	return style.Render(s)
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\"=") {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	default:
		return fmt.Sprint(v.Any())
	}
}
