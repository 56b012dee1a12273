package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// CompactHandler formats logs for a terminal:
//
//	[LEVEL] HH:MM:SS component: message | key=value key=value
//
// The component attribute becomes the message prefix. Level tags are
// colored when writing to a terminal on stderr.
type CompactHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	out    io.Writer
	color  bool
	prefix string      // component, from WithAttrs
	attrs  []slog.Attr // other attributes from WithAttrs, already grouped
	groups []string    // open groups from WithGroup
}

// NewCompactHandler creates a new compact console handler
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &CompactHandler{
		opts:  *opts,
		mu:    &sync.Mutex{},
		out:   w,
		color: w == os.Stderr && !color.NoColor,
	}
}

var levelTags = []struct {
	level slog.Level
	tag   string
	paint *color.Color
}{
	{LevelTrace, "[TRACE] ", color.New(color.FgHiBlack)},
	{slog.LevelDebug, "[DEBUG] ", color.New(color.FgCyan)},
	{slog.LevelInfo, "[INFO]  ", color.New(color.FgGreen)},
	{slog.LevelWarn, "[WARN]  ", color.New(color.FgYellow)},
	{slog.LevelError, "[ERROR] ", color.New(color.FgRed, color.Bold)},
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.Grow(256)

	b.WriteString(h.levelTag(r.Level))
	b.WriteString(r.Time.Format("15:04:05"))
	b.WriteByte(' ')

	prefix := h.prefix
	var attrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" && len(h.groups) == 0 {
			prefix = a.Value.String()
			return true
		}
		attrs = append(attrs, a)
		return true
	})

	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString(": ")
	}
	b.WriteString(r.Message)

	sep := " |"
	emit := func(key string, v slog.Value) {
		b.WriteString(sep)
		sep = ""
		b.WriteByte(' ')
		writeAttr(&b, key, v)
	}
	for _, a := range h.attrs {
		flatten("", a, emit)
	}
	group := strings.Join(h.groups, ".")
	for _, a := range attrs {
		flatten(group, a, emit)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *CompactHandler) levelTag(level slog.Level) string {
	for _, lt := range levelTags {
		if lt.level == level {
			if h.color {
				return lt.paint.Sprint(lt.tag)
			}
			return lt.tag
		}
	}
	return fmt.Sprintf("[%-5s] ", level.String())
}

// flatten emits a as dotted key/value pairs, expanding groups.
func flatten(group string, a slog.Attr, emit func(string, slog.Value)) {
	v := a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" && key != "" {
		key = group + "." + key
	} else if key == "" {
		key = group
	}
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			flatten(key, ga, emit)
		}
		return
	}
	emit(key, v)
}

func writeAttr(b *strings.Builder, key string, v slog.Value) {
	switch key {
	case "requestID":
		// Request IDs are UUIDs; the first block is enough to correlate
		s := v.String()
		if len(s) > 8 {
			s = s[:8]
		}
		b.WriteString("req=")
		b.WriteString(s)
		return
	case "durationMs":
		b.WriteString("duration=")
		b.WriteString(v.String())
		b.WriteString("ms")
		return
	case "error", "err":
		b.WriteString("error=")
		b.WriteString(strconv.Quote(v.String()))
		return
	}

	b.WriteString(key)
	b.WriteByte('=')
	switch v.Kind() {
	case slog.KindString:
		writeString(b, v.String())
	case slog.KindDuration:
		b.WriteString(v.Duration().String())
	case slog.KindTime:
		b.WriteString(v.Time().Format(time.RFC3339))
	case slog.KindAny:
		switch x := v.Any().(type) {
		case []string:
			// Issue key lists read better unbracketed
			writeString(b, strings.Join(x, ","))
		case error:
			b.WriteString(strconv.Quote(x.Error()))
		default:
			writeString(b, fmt.Sprint(x))
		}
	default:
		b.WriteString(v.String())
	}
}

func writeString(b *strings.Builder, s string) {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		b.WriteString(strconv.Quote(s))
		return
	}
	b.WriteString(s)
}

func (h *CompactHandler) clone() *CompactHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	c.groups = append([]string(nil), h.groups...)
	return &c
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	group := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if a.Key == "component" && group == "" {
			c.prefix = a.Value.String()
			continue
		}
		if group != "" {
			a = slog.Attr{Key: group, Value: slog.GroupValue(a)}
		}
		c.attrs = append(c.attrs, a)
	}
	return c
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}
