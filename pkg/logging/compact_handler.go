package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CompactOptions configures a CompactHandler
type CompactOptions struct {
	// Level is the minimum level written; nil means info
	Level slog.Leveler
	// Root, when set, is stripped from note paths so lines show vault-relative names
	Root string
}

// CompactHandler writes one console line per record:
//
//	[INFO]  15:04:05 applied vault changes | nodes=12 change=+3/-1
//
// A "path" under Root prints relative to it, and an upserts/deletes pair folds
// into a single change attribute.
type CompactHandler struct {
	opts   CompactOptions
	mu     *sync.Mutex
	w      io.Writer
	prefix string      // dotted group path applied to record attributes
	bound  []slog.Attr // attributes from WithAttrs, already qualified
}

// NewCompactHandler creates a handler writing to w
func NewCompactHandler(w io.Writer, opts CompactOptions) *CompactHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &CompactHandler{opts: opts, mu: &sync.Mutex{}, w: w}
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

var levelLabels = map[slog.Level]string{
	LevelTrace:      "[TRACE] ",
	slog.LevelDebug: "[DEBUG] ",
	slog.LevelInfo:  "[INFO]  ",
	slog.LevelWarn:  "[WARN]  ",
	slog.LevelError: "[ERROR] ",
}

func levelLabel(l slog.Level) string {
	if s, ok := levelLabels[l]; ok {
		return s
	}
	return fmt.Sprintf("[%-5s] ", l.String())
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.bound)+r.NumAttrs())
	attrs = append(attrs, h.bound...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})
	attrs = foldChange(attrs)

	var b strings.Builder
	b.WriteString(levelLabel(r.Level))
	b.WriteString(r.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	sep := " |"
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) {
			continue
		}
		b.WriteString(sep)
		b.WriteByte(' ')
		sep = ""
		h.writeAttr(&b, a)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *CompactHandler) qualify(a slog.Attr) slog.Attr {
	if h.prefix != "" {
		a.Key = h.prefix + "." + a.Key
	}
	return a
}

func (h *CompactHandler) writeAttr(b *strings.Builder, a slog.Attr) {
	switch a.Key {
	case "requestID":
		if s := a.Value.String(); len(s) > 8 {
			b.WriteString("req=")
			b.WriteString(s[:8])
			return
		}
	case "error":
		b.WriteString("error=")
		b.WriteString(strconv.Quote(a.Value.String()))
		return
	case "path":
		if h.opts.Root != "" && a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(relativeTo(h.opts.Root, a.Value.String()))
		}
	}

	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}

// relativeTo shortens p to a path under root; paths elsewhere are returned unchanged
func relativeTo(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}

// foldChange replaces an upserts/deletes pair with change=+U/-D at the upserts position
func foldChange(attrs []slog.Attr) []slog.Attr {
	ui, di := -1, -1
	for i, a := range attrs {
		switch {
		case a.Key == "upserts" && a.Value.Kind() == slog.KindInt64:
			ui = i
		case a.Key == "deletes" && a.Value.Kind() == slog.KindInt64:
			di = i
		}
	}
	if ui < 0 || di < 0 {
		return attrs
	}

	change := slog.String("change", fmt.Sprintf("+%d/-%d", attrs[ui].Value.Int64(), attrs[di].Value.Int64()))
	folded := make([]slog.Attr, 0, len(attrs)-1)
	for i, a := range attrs {
		switch i {
		case ui:
			folded = append(folded, change)
		case di:
		default:
			folded = append(folded, a)
		}
	}
	return folded
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.bound = make([]slog.Attr, 0, len(h.bound)+len(attrs))
	next.bound = append(next.bound, h.bound...)
	for _, a := range attrs {
		next.bound = append(next.bound, h.qualify(a))
	}
	return &next
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.prefix != "" {
		name = h.prefix + "." + name
	}
	next.prefix = name
	return &next
}
