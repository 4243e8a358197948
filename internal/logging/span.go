package logging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Span times a named unit of work within a request.
type Span struct {
	name   string
	logger zerolog.Logger
	start  time.Time
}

// StartSpan derives a child span from ctx. The returned context carries a logger
// tagged with the span id and name, so log lines emitted inside the span can be
// correlated with the request that triggered it.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	spanID := uuid.NewString()
	lc := FromContext(ctx).With().
		Str("span_id", spanID).
		Str("span_name", name)
	if parent := spanIDFromContext(ctx); parent != "" {
		lc = lc.Str("parent_span_id", parent)
	}
	logger := lc.Logger()

	ctx = WithLogger(ctx, logger)
	ctx = withSpanID(ctx, spanID)

	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// End emits a completion entry with the span duration. A non-nil err is attached
// to the entry and raises it to warn level.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	evt := s.logger.Debug()
	if err != nil {
		evt = s.logger.Warn().Err(err)
	}
	evt.Dur("duration", time.Since(s.start)).Msg("span completed")
}
