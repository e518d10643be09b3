package llm

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/gavelhq/gavel/internal/logging"
)

// Fallback wraps a primary completer with a secondary one tried once when
// the primary fails. Auth errors are not retried against the fallback:
// credentials are shared, so the second call would fail the same way.
type Fallback struct {
	primary   Completer
	secondary Completer
	log       zerolog.Logger
}

// WithFallback wraps primary so that failures retry once against secondary.
// A nil secondary returns primary unchanged.
func WithFallback(primary, secondary Completer) Completer {
	if secondary == nil {
		return primary
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		log:       logging.Component("llm"),
	}
}

func (f *Fallback) Model() string { return f.primary.Model() }

func (f *Fallback) Complete(ctx context.Context, messages []Message, schema json.RawMessage) (string, error) {
	content, err := f.primary.Complete(ctx, messages, schema)
	if err == nil {
		return content, nil
	}
	if IsAuthError(err) || ctx.Err() != nil {
		return "", err
	}
	f.log.Warn().Err(err).Str("fallback_model", f.secondary.Model()).Msg("primary model failed, trying fallback")
	return f.secondary.Complete(ctx, messages, schema)
}
