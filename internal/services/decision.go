package services

import (
	"context"
)

// Decision is the accept/decline verdict for one attempt.
type Decision struct {
	Approved bool
	Reason   string
}

// Decider chooses whether an attempt is accepted. It is the only place a
// gateway call would go; the atomic commit does not depend on how it decides.
type Decider interface {
	Decide(ctx context.Context, in Instrument) (Decision, error)
}

// DeclineReason is reported for sentinel declines.
const DeclineReason = "Declined"

// SentinelDecider declines any attempt whose verification code equals
// DeclineCode and accepts everything else.
type SentinelDecider struct {
	DeclineCode string
}

// NewSentinelDecider returns a decider declining on code.
func NewSentinelDecider(code string) *SentinelDecider {
	return &SentinelDecider{DeclineCode: code}
}

func (d *SentinelDecider) Decide(_ context.Context, in Instrument) (Decision, error) {
	if in.VerificationCode == d.DeclineCode {
		return Decision{Approved: false, Reason: DeclineReason}, nil
	}
	return Decision{Approved: true}, nil
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, in Instrument) (Decision, error)

func (f DeciderFunc) Decide(ctx context.Context, in Instrument) (Decision, error) {
	return f(ctx, in)
}
