package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/fkoehler/gearharvest/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected models.ErrorKind
	}{
		{name: "nil", err: nil, expected: models.ErrorUnexpected},
		{name: "context deadline", err: context.DeadlineExceeded, expected: models.ErrorTimeout},
		{name: "wrapped deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), expected: models.ErrorTimeout},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, expected: models.ErrorTimeout},
		{name: "net non-timeout", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, expected: models.ErrorUnexpected},
		{name: "cancellation", err: context.Canceled, expected: models.ErrorUnexpected},
		{name: "other", err: errors.New("boom"), expected: models.ErrorUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.expected {
				t.Fatalf("classify(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}
