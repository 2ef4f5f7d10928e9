package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes describing the running match. It is
// called once per record and must not log.
type ContextProvider func() []slog.Attr

// ContextHandler appends the provider's attributes to every record. A
// provided attribute is skipped when the record or the logger already
// carries its key, or when its value is empty.
type ContextHandler struct {
	next     slog.Handler
	provider ContextProvider
	bound    map[string]struct{}
	grouped  bool
}

// NewContextHandler wraps next with the attributes returned by provider.
func NewContextHandler(next slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		next:     next,
		provider: provider,
		bound:    map[string]struct{}{},
	}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.next.Handle(ctx, r)
	}
	extra := h.provider()
	if len(extra) == 0 {
		return h.next.Handle(ctx, r)
	}

	present := make(map[string]struct{}, r.NumAttrs()+len(h.bound))
	for k := range h.bound {
		present[k] = struct{}{}
	}
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = struct{}{}
		return true
	})

	r = r.Clone()
	for _, a := range extra {
		if _, dup := present[a.Key]; dup || emptyAttr(a) {
			continue
		}
		r.AddAttrs(a)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.bound
	if !h.grouped {
		bound = make(map[string]struct{}, len(h.bound)+len(attrs))
		for k := range h.bound {
			bound[k] = struct{}{}
		}
		for _, a := range attrs {
			bound[a.Key] = struct{}{}
		}
	}
	return &ContextHandler{
		next:     h.next.WithAttrs(attrs),
		provider: h.provider,
		bound:    bound,
		grouped:  h.grouped,
	}
}

// WithGroup nests later attributes. Keys inside a group no longer shadow
// the match attributes.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		next:     h.next.WithGroup(name),
		provider: h.provider,
		bound:    h.bound,
		grouped:  true,
	}
}

func emptyAttr(a slog.Attr) bool {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String() == ""
	case slog.KindGroup:
		return len(v.Group()) == 0
	case slog.KindAny:
		return v.Any() == nil
	}
	return false
}
