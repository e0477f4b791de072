package usecase

import "time"

// OutcomeKind classifies the result of one reconciliation attempt.
type OutcomeKind string

const (
	// OutcomeActivated means the payment was approved and the subscription
	// transitioned to active; side effects fired.
	OutcomeActivated OutcomeKind = "activated"
	// OutcomeAlreadyApplied means the stored payment was already terminal;
	// nothing was written and no side effect fired.
	OutcomeAlreadyApplied OutcomeKind = "already_applied"
	// OutcomeDenied means the provider reported rejected/cancelled; only the
	// payment record changed, the subscription was left untouched.
	OutcomeDenied OutcomeKind = "denied"
	// OutcomePending means the provider status is not terminal yet; the
	// caller may retry on the next trigger.
	OutcomePending OutcomeKind = "pending"
	// OutcomeUnmapped means the charge could not be correlated to a user even
	// through external-reference recovery; manual intervention required.
	OutcomeUnmapped OutcomeKind = "unmapped"
	// OutcomeLocked means another worker holds the per-payment lock; the
	// caller may retry later.
	OutcomeLocked OutcomeKind = "locked"
)

// Outcome is the result of ReconcileUseCase.Reconcile.
type Outcome struct {
	Kind      OutcomeKind
	ExpiresAt *time.Time // set when Kind == OutcomeActivated
}
