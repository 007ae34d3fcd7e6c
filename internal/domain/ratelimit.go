package domain

import (
	"context"
	"time"
)

// SubmissionQuota bounds how many verification uploads one uploader may
// submit inside a fixed window. A zero Limit or Window disables the quota.
type SubmissionQuota struct {
	Limit  int
	Window time.Duration
}

func (q SubmissionQuota) Enabled() bool {
	return q.Limit > 0 && q.Window > 0
}

// QuotaDecision is the admission outcome for one upload attempt.
type QuotaDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// SubmissionLimiter admits or rejects upload attempts by uploader identity.
// Implementations scope their own storage keys; callers pass the bare
// uploader id, normally the client address.
type SubmissionLimiter interface {
	Allow(ctx context.Context, uploader string) (QuotaDecision, error)
}
