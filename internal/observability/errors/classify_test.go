package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedError struct{ code string }

func (e *codedError) Error() string { return e.code }

func TestClassify(t *testing.T) {
	dnsTimeout := &net.DNSError{Err: "i/o timeout", Name: "cas", IsTimeout: true}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), ClassTimeout},
		{"canceled", context.Canceled, ClassCanceled},
		{"net timeout", &url.Error{Op: "Get", URL: "https://cas", Err: dnsTimeout}, ClassTimeout},
		{"wrapped type", fmt.Errorf("outer: %w", &codedError{code: "x"}), "errors_codederror"},
		{"plain", goerrors.New("boom"), "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
