package recovery

import (
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/backoff"
)

// Policy is the retry budget and backoff schedule for one error type.
// A nil Backoff means the type is never retried automatically.
type Policy struct {
	MaxRetries int
	Backoff    backoff.Strategy
}

func jittered(s backoff.Strategy) backoff.Strategy {
	return backoff.NewJitter(s, 0.1)
}

// policies is keyed by error type. Transient infrastructure failures
// get generous budgets with growing delays; rate limits back off much
// harder to let the upstream window reset.
var policies = map[syncq.ErrorType]Policy{
	syncq.ErrorTypeNetwork: {
		MaxRetries: 5,
		Backoff:    jittered(backoff.NewExponential(time.Second, 2, time.Minute)),
	},
	syncq.ErrorTypeTimeout: {
		MaxRetries: 5,
		Backoff:    backoff.NewLinear(2*time.Second, 30*time.Second),
	},
	syncq.ErrorTypeRateLimit: {
		MaxRetries: 5,
		Backoff:    jittered(backoff.NewExponential(5*time.Second, 2, 5*time.Minute)),
	},
	syncq.ErrorTypePlatform: {
		MaxRetries: 3,
		Backoff:    jittered(backoff.NewExponential(2*time.Second, 1.5, 2*time.Minute)),
	},
	syncq.ErrorTypeDataConflict: {
		MaxRetries: 3,
		Backoff:    jittered(backoff.NewExponential(time.Second, 2, time.Minute)),
	},
	syncq.ErrorTypeUnknown: {
		MaxRetries: 3,
		Backoff:    jittered(backoff.NewExponential(time.Second, 2, time.Minute)),
	},
	syncq.ErrorTypeAuthorization: {
		MaxRetries: 2,
		Backoff:    jittered(backoff.NewExponential(time.Second, 2, time.Minute)),
	},
	syncq.ErrorTypeAuthentication: {MaxRetries: 2},
	syncq.ErrorTypeValidation:     {MaxRetries: 1},
}

// PolicyFor returns the policy for t, falling back to the unknown-type
// policy for unrecognized values.
func PolicyFor(t syncq.ErrorType) Policy {
	if p, ok := policies[t]; ok {
		return p
	}
	return policies[syncq.ErrorTypeUnknown]
}

// defaultResolution decides what to do with an error given how many
// retries it has consumed. Transient types retry until the budget runs
// out and then escalate; authorization and data conflicts degrade to a
// manual fix instead of escalating; validation and authentication go
// straight to a human.
func defaultResolution(serr *syncq.SyncError) syncq.Resolution {
	switch serr.Type {
	case syncq.ErrorTypeValidation, syncq.ErrorTypeAuthentication:
		return syncq.ResolutionManualFix
	case syncq.ErrorTypeAuthorization, syncq.ErrorTypeDataConflict:
		if serr.RetryCount < serr.MaxRetries {
			return syncq.ResolutionRetry
		}
		return syncq.ResolutionManualFix
	default:
		if serr.RetryCount < serr.MaxRetries {
			return syncq.ResolutionRetry
		}
		return syncq.ResolutionEscalate
	}
}
