package logging

import (
	"context"
	"log/slog"

	"github.com/thoreinstein/clawmgr/internal/redact"
)

// Fanout sends each record to every handler that accepts its level. String
// attributes whose key names a secret (API_KEY, token, ...) are masked
// before any handler sees them, since --log-file output outlives the
// terminal.
type Fanout struct {
	handlers []slog.Handler
}

// NewFanout returns a Fanout over the non-nil handlers given.
func NewFanout(handlers ...slog.Handler) *Fanout {
	f := &Fanout{}
	for _, h := range handlers {
		if h != nil {
			f.handlers = append(f.handlers, h)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle returns the first handler error; later handlers still run.
func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(maskAttr(a))
		return true
	})

	var first error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, masked.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(masked) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) each(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{handlers: make([]slog.Handler, len(f.handlers))}
	for i, h := range f.handlers {
		out.handlers[i] = fn(h)
	}
	return out
}

func maskAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		masked := make([]any, len(group))
		for i, g := range group {
			masked[i] = maskAttr(g)
		}
		return slog.Group(a.Key, masked...)
	case slog.KindString:
		if s := v.String(); redact.ShouldMask(a.Key) || redact.ContainsTokenPrefix(s) {
			return slog.String(a.Key, redact.Value(s))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}
