// Package errors turns errors into low-cardinality labels for metrics and logs.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"
)

// Labels for errors recognised by behaviour rather than type.
const (
	ClassTimeout  = "timeout"
	ClassCanceled = "canceled"
	ClassUnknown  = "unknown"
)

type timeout interface {
	Timeout() bool
}

// Classify returns a normalized error label. Deadlines and network timeouts
// collapse to "timeout" and cancellations to "canceled"; anything else is
// named after the innermost error's type in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	if goerrors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	var te timeout
	if goerrors.As(err, &te) && te.Timeout() {
		return ClassTimeout
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ClassUnknown
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return ClassUnknown
	}
	return name
}
