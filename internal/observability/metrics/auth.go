package metrics

import (
	"time"

	obserrors "github.com/target/casgate/internal/observability/errors"
	"github.com/target/casgate/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// ValidationMetric captures a single ticket validation attempt.
type ValidationMetric struct {
	Protocol string
	Result   string
	Failure  string
	Duration time.Duration
	Err      error
}

// EmitValidation emits ticket validation metrics.
func EmitValidation(sink statsd.Sink, in ValidationMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"protocol": in.Protocol,
		"result":   in.Result,
	}
	if in.Failure != "" {
		tags["failure"] = in.Failure
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("cas.validation", 1, tags)

	if in.Duration > 0 {
		sink.Timing("cas.validation.duration", in.Duration, CloneTags(tags))
	}
}

// EmitGateDecision counts a gate decision for a capability.
func EmitGateDecision(sink statsd.Sink, decision, capability string) {
	if sink == nil {
		return
	}
	if capability == "" {
		capability = "authenticated"
	}
	sink.Count("gate.decision", 1, map[string]string{
		"decision":   decision,
		"capability": capability,
	})
}

// EmitRecovery counts a recovery outcome (redirect or exhausted).
func EmitRecovery(sink statsd.Sink, outcome string) {
	if sink == nil {
		return
	}
	sink.Count("recovery.outcome", 1, map[string]string{"outcome": outcome})
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
