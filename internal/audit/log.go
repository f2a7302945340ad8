// Package audit writes append-only audit lines for account events.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mileusna/useragent"

	"matchbook.org/internal/auth"
	"matchbook.org/internal/obs"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	userAgentKey ctxKey = "audit_user_agent"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserAgent attaches the raw User-Agent header of the caller.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentKey, ua)
}

// LogEvent writes an audit entry enriched with request, user and client
// context. Callers must never pass credentials in fields.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	if ua, ok := ctx.Value(userAgentKey).(string); ok {
		attrs = append(attrs, clientAttr(ua))
	}
	fieldAttrs := make([]any, 0, len(fields))
	for k, v := range fields {
		fieldAttrs = append(fieldAttrs, slog.Any(k, v))
	}
	attrs = append(attrs, slog.Group("fields", fieldAttrs...))

	obs.Logger().LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}

func clientAttr(raw string) slog.Attr {
	ua := useragent.Parse(raw)
	device := "desktop"
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Tablet:
		device = "tablet"
	case ua.Mobile:
		device = "mobile"
	case !ua.Desktop:
		device = "unknown"
	}
	return slog.Group("client",
		slog.String("browser", ua.Name),
		slog.String("os", ua.OS),
		slog.String("device", device),
	)
}
