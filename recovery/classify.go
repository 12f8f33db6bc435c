package recovery

import (
	"context"
	"errors"
	"strings"

	"github.com/xraph/syncq"
)

// rule is one classification candidate. Codes are matched exactly
// (case-insensitive) against the error's structured code; needles are
// matched as case-insensitive substrings of the message.
type rule struct {
	typ     syncq.ErrorType
	codes   []string
	needles []string
}

// rules are evaluated in order and the first match wins. More specific
// types come first so that, for example, a rate limit response with an
// HTTP 429 code is not swallowed by the generic platform rule.
var rules = []rule{
	{
		typ:     syncq.ErrorTypeNetwork,
		codes:   []string{"ECONNREFUSED", "ECONNRESET", "ENOTFOUND", "ENETUNREACH", "EHOSTUNREACH", "EPIPE", "EAI_AGAIN"},
		needles: []string{"connection refused", "connection reset", "socket hang up", "network", "dns", "no such host", "broken pipe"},
	},
	{
		typ:     syncq.ErrorTypeAuthentication,
		codes:   []string{"401", "UNAUTHENTICATED", "INVALID_TOKEN"},
		needles: []string{"unauthorized", "unauthenticated", "invalid credentials", "token expired", "invalid token", "authentication"},
	},
	{
		typ:     syncq.ErrorTypeAuthorization,
		codes:   []string{"403", "PERMISSION_DENIED"},
		needles: []string{"forbidden", "permission denied", "access denied", "not authorized", "insufficient scope"},
	},
	{
		typ:     syncq.ErrorTypeRateLimit,
		codes:   []string{"429", "RESOURCE_EXHAUSTED"},
		needles: []string{"rate limit", "too many requests", "quota exceeded", "throttl"},
	},
	{
		typ:     syncq.ErrorTypeValidation,
		codes:   []string{"400", "422", "INVALID_ARGUMENT"},
		needles: []string{"validation", "invalid", "missing required", "malformed", "bad request", "unprocessable"},
	},
	{
		typ:     syncq.ErrorTypeTimeout,
		codes:   []string{"408", "ETIMEDOUT", "ESOCKETTIMEDOUT", "DEADLINE_EXCEEDED"},
		needles: []string{"timeout", "timed out", "deadline exceeded"},
	},
	{
		typ:     syncq.ErrorTypeDataConflict,
		codes:   []string{"409", "ALREADY_EXISTS", "ABORTED"},
		needles: []string{"conflict", "duplicate", "already exists", "version mismatch", "stale"},
	},
	{
		typ:     syncq.ErrorTypePlatform,
		codes:   []string{"500", "502", "503", "504", "INTERNAL"},
		needles: []string{"internal server error", "bad gateway", "service unavailable", "platform", "api error", "upstream"},
	},
}

// Classify maps err to an error type plus the structured code it
// matched on (empty when classification fell through to the message or
// no rule matched). A nil error classifies as unknown.
func Classify(err error) (syncq.ErrorType, string) {
	if err == nil {
		return syncq.ErrorTypeUnknown, ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return syncq.ErrorTypeTimeout, "DEADLINE_EXCEEDED"
	}

	code := errorCode(err)
	msg := strings.ToLower(err.Error())

	// Codes are authoritative: check every rule's code set before any
	// rule's message needles get a look.
	if code != "" {
		upper := strings.ToUpper(code)
		for _, r := range rules {
			for _, c := range r.codes {
				if upper == c {
					return r.typ, code
				}
			}
		}
	}
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(msg, n) {
				return r.typ, code
			}
		}
	}
	return syncq.ErrorTypeUnknown, code
}

// errorCode walks the wrap chain looking for a structured code.
func errorCode(err error) string {
	var coded syncq.CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
