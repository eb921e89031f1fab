package logging

import (
	"context"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// keys are compared lowercased
var sensitiveFields = map[string]struct{}{
	"passphrase": {},
	"password":   {},
	"key":        {},
	"secret":     {},
	"totpsecret": {},
	"payload":    {},
	"ciphertext": {},
}

// RedactingHandler replaces the values of sensitive attributes before they
// reach the wrapped handler.
type RedactingHandler struct {
	inner slog.Handler
}

func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(redactAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, redactAttr(attr))
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(out)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	if _, ok := sensitiveFields[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, redacted)
	}

	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		out := make([]slog.Attr, 0, len(group))
		for _, nested := range group {
			out = append(out, redactAttr(nested))
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(out...)}
	}

	return attr
}
