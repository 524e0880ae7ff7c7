package approval

import (
	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// Outcome tags a Decision with its kind. The tag, not the Reason text, is the
// contract the caller dispatches on.
type Outcome string

const (
	// OutcomeApproved is a terminal approval of the claim.
	OutcomeApproved Outcome = "APPROVED"
	// OutcomeRejected is a terminal rejection of the claim.
	OutcomeRejected Outcome = "REJECTED"
	// OutcomeAdvanced moves the claim to NextStepNumber; NextApprovers holds
	// who may act there.
	OutcomeAdvanced Outcome = "ADVANCED"
	// OutcomeUnauthorized means the acting user may not act at the current
	// step. The claim must not be mutated.
	OutcomeUnauthorized Outcome = "UNAUTHORIZED"
)

// Decision is the engine's output for one approve/reject action. It is
// ephemeral: the caller applies it to the claim and persists the history
// entry; the engine keeps nothing.
type Decision struct {
	Outcome        Outcome       `json:"outcome"`
	Approved       bool          `json:"approved"`
	Completed      bool          `json:"completed"`
	NextStepNumber int           `json:"next_step_number,omitempty"`
	NextApprovers  []entity.User `json:"next_approvers,omitempty"`
	Reason         string        `json:"reason"`
}

// Unauthorized reports whether the acting user was not entitled to act.
func (d *Decision) Unauthorized() bool {
	return d.Outcome == OutcomeUnauthorized
}

func approved(reason string) *Decision {
	return &Decision{
		Outcome:   OutcomeApproved,
		Approved:  true,
		Completed: true,
		Reason:    reason,
	}
}

func rejected(reason string) *Decision {
	return &Decision{
		Outcome:   OutcomeRejected,
		Completed: true,
		Reason:    reason,
	}
}

func advanced(nextStep int, approvers []entity.User, reason string) *Decision {
	return &Decision{
		Outcome:        OutcomeAdvanced,
		NextStepNumber: nextStep,
		NextApprovers:  approvers,
		Reason:         reason,
	}
}

func unauthorized(reason string) *Decision {
	return &Decision{
		Outcome: OutcomeUnauthorized,
		Reason:  reason,
	}
}
