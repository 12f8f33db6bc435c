package recovery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/recovery"
)

func TestClassify_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syncq.ErrorType
	}{
		{"connection refused", errors.New("dial tcp: connection refused"), syncq.ErrorTypeNetwork},
		{"dns failure", errors.New("lookup api.example.com: no such host"), syncq.ErrorTypeNetwork},
		{"unauthorized", errors.New("401 Unauthorized"), syncq.ErrorTypeAuthentication},
		{"token expired", errors.New("token expired, please re-authenticate"), syncq.ErrorTypeAuthentication},
		{"forbidden", errors.New("403 Forbidden"), syncq.ErrorTypeAuthorization},
		{"permission denied", errors.New("permission denied for resource"), syncq.ErrorTypeAuthorization},
		{"rate limited", errors.New("rate limit exceeded, retry later"), syncq.ErrorTypeRateLimit},
		{"too many requests", errors.New("429 Too Many Requests"), syncq.ErrorTypeRateLimit},
		{"validation", errors.New("validation failed: missing required field email"), syncq.ErrorTypeValidation},
		{"invalid value", errors.New("invalid value for amount"), syncq.ErrorTypeValidation},
		{"unprocessable", errors.New("422 unprocessable entity"), syncq.ErrorTypeValidation},
		{"invalid credentials", errors.New("invalid credentials supplied"), syncq.ErrorTypeAuthentication},
		{"timeout", errors.New("request timed out after 30s"), syncq.ErrorTypeTimeout},
		{"conflict", errors.New("409 conflict: resource version mismatch"), syncq.ErrorTypeDataConflict},
		{"duplicate", errors.New("duplicate entry for key idx_subject"), syncq.ErrorTypeDataConflict},
		{"server error", errors.New("500 internal server error"), syncq.ErrorTypePlatform},
		{"service unavailable", errors.New("503 service unavailable"), syncq.ErrorTypePlatform},
		{"api error", errors.New("api error: 500"), syncq.ErrorTypePlatform},
		{"platform rejection", errors.New("platform rejected the record"), syncq.ErrorTypePlatform},
		{"gibberish", errors.New("something inexplicable happened"), syncq.ErrorTypeUnknown},
		{"nil", nil, syncq.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := recovery.Classify(tt.err)
			if got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify_CodesBeforeMessages(t *testing.T) {
	// Message text alone would match the timeout rule, but the
	// structured code pins this as a rate limit.
	err := syncq.WithCode("429", errors.New("upstream timed out while throttling"))
	got, code := recovery.Classify(err)
	if got != syncq.ErrorTypeRateLimit {
		t.Errorf("Classify = %q, want %q", got, syncq.ErrorTypeRateLimit)
	}
	if code != "429" {
		t.Errorf("code = %q, want %q", code, "429")
	}
}

func TestClassify_CodeCaseInsensitive(t *testing.T) {
	err := syncq.WithCode("econnreset", errors.New("peer went away"))
	got, _ := recovery.Classify(err)
	if got != syncq.ErrorTypeNetwork {
		t.Errorf("Classify = %q, want %q", got, syncq.ErrorTypeNetwork)
	}
}

func TestClassify_WrappedCode(t *testing.T) {
	inner := syncq.WithCode("DEADLINE_EXCEEDED", errors.New("rpc failed"))
	wrapped := errors.Join(errors.New("sync contact"), inner)
	got, _ := recovery.Classify(wrapped)
	if got != syncq.ErrorTypeTimeout {
		t.Errorf("Classify = %q, want %q", got, syncq.ErrorTypeTimeout)
	}
}

func TestClassify_ContextDeadline(t *testing.T) {
	got, code := recovery.Classify(context.DeadlineExceeded)
	if got != syncq.ErrorTypeTimeout {
		t.Errorf("Classify = %q, want %q", got, syncq.ErrorTypeTimeout)
	}
	if code != "DEADLINE_EXCEEDED" {
		t.Errorf("code = %q", code)
	}
}

func TestClassify_UnknownCodeFallsThroughToMessage(t *testing.T) {
	err := syncq.WithCode("X-CUSTOM-42", errors.New("connection reset by peer"))
	got, code := recovery.Classify(err)
	if got != syncq.ErrorTypeNetwork {
		t.Errorf("Classify = %q, want %q", got, syncq.ErrorTypeNetwork)
	}
	if code != "X-CUSTOM-42" {
		t.Errorf("code = %q, want preserved original", code)
	}
}
