package log

import (
	"context"
	"log/slog"

	"github.com/edumarket/storefront/internal/requestid"
)

type flowKey struct{}

// WithFlowID attaches an identity flow ID so every record logged under ctx
// carries flow_id.
func WithFlowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, flowKey{}, id)
}

// FlowIDFromContext returns "" if no flow ID is attached.
func FlowIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(flowKey{}).(string)
	return id
}

// ContextHandler wraps an slog.Handler and automatically extracts
// request_id and flow_id from the context of each log record.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler returns a handler that enriches every record with
// context values before delegating to inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id := FlowIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String("flow_id", id))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
