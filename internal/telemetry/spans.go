package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome labels shared by spans, metrics and logs.
const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

// Span attribute keys used across the salon.
const (
	AttrSessionID = attribute.Key("salon.session_id")
	AttrMode      = attribute.Key("salon.mode")
	AttrSpeaker   = attribute.Key("salon.speaker")
	AttrKind      = attribute.Key("salon.kind")
	AttrRound     = attribute.Key("salon.round")
	AttrProvider  = attribute.Key("llm.provider")
	AttrModel     = attribute.Key("llm.model")
)

// Outcome classifies err. Context cancellation and deadline count as
// cancelled, not as failures.
func Outcome(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	default:
		return StatusError
	}
}

// End finishes span with the outcome of err and returns that outcome.
// Only real failures are recorded as span errors.
func End(span trace.Span, err error) string {
	status := Outcome(err)
	switch status {
	case StatusError:
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	case StatusCancelled:
		span.SetStatus(codes.Error, status)
	}
	span.End()
	return status
}
