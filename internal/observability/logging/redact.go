package logging

import (
	"context"
	"log/slog"
	"strings"
)

// Mask replaces credential values in log output.
const Mask = "****"

// minSecretLength keeps short values such as "1" from masking unrelated text.
const minSecretLength = 6

// Redact replaces every occurrence of the given secrets in s with Mask.
func Redact(s string, secrets []string) string {
	for _, secret := range secrets {
		if len(secret) < minSecretLength {
			continue
		}
		s = strings.ReplaceAll(s, secret, Mask)
	}
	return s
}

// RedactError returns the error text with secrets masked.
func RedactError(err error, secrets []string) string {
	if err == nil {
		return ""
	}
	return Redact(err.Error(), secrets)
}

// Redacting returns a logger whose messages and string-valued attributes
// never contain any of the given secrets. Error attributes are rendered to
// their masked text.
func Redacting(logger *slog.Logger, secrets []string) *slog.Logger {
	var kept []string
	for _, s := range secrets {
		if len(s) >= minSecretLength {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return logger
	}
	return slog.New(&redactHandler{next: logger.Handler(), secrets: kept})
}

type redactHandler struct {
	next    slog.Handler
	secrets []string
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, Redact(r.Message, h.secrets), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &redactHandler{next: h.next.WithAttrs(redacted), secrets: h.secrets}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), secrets: h.secrets}
}

func (h *redactHandler) redactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Redact(v.String(), h.secrets))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, g := range group {
			redacted[i] = h.redactAttr(g)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, RedactError(err, h.secrets))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}
