package approval

import (
	"context"
	"fmt"

	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// evaluateSequential advances the claim one step per approval. Approval at
// the final step is the only path to terminal approval; a single authorized
// approval passes a step, there is no per-step quorum.
func (e *Engine) evaluateSequential(ctx context.Context, in *evalInput) (*Decision, error) {
	return e.advanceOrComplete(ctx, in, func() *Decision {
		return approved("all approval steps completed")
	})
}

// evaluatePercentage approves once the share of recorded approvals, counting
// the in-flight action, reaches the configured threshold over the summed
// per-step approver counts.
func (e *Engine) evaluatePercentage(ctx context.Context, in *evalInput) (*Decision, error) {
	history, err := e.history.GetApprovalHistory(ctx, in.claim.ID)
	if err != nil {
		return nil, fmt.Errorf("load approval history for %s: %w", in.claim.ID, err)
	}

	// The current action counts toward the quorum before it is persisted.
	approvedCount := countApprovals(history) + 1

	// Each step's resolved set is counted independently; a user approving
	// for two role-designated steps inflates the denominator twice. Known
	// quirk, kept: deduplicating changes quorum outcomes for overlapping
	// role sets.
	totalApprovers := 0
	for i := range in.steps {
		approvers, err := ResolveStepApprovers(ctx, e.dir, &in.steps[i], in.claim.OwnerID)
		if err != nil {
			return nil, err
		}
		totalApprovers += len(approvers)
	}

	// No resolvable approvers at all: the quorum can never be reached, so
	// this fails closed, unlike the missing-configuration cases.
	if totalApprovers == 0 {
		return rejected("workflow has no resolvable approvers"), nil
	}

	percentage := float64(approvedCount) / float64(totalApprovers) * 100
	threshold := in.cfg.Threshold()
	if percentage >= float64(threshold) {
		return approved(fmt.Sprintf("approval threshold met: %.1f%% >= %d%%", percentage, threshold)), nil
	}

	return e.advanceOrComplete(ctx, in, func() *Decision {
		if percentage >= float64(threshold) {
			return approved(fmt.Sprintf("approval threshold met: %.1f%% >= %d%%", percentage, threshold))
		}
		return rejected(fmt.Sprintf("approval threshold not met: %.1f%% < %d%%", percentage, threshold))
	})
}

// evaluateSpecificApprover terminally approves on action by the designated
// approver, whatever the step position. Anyone else only moves the chain
// along; running out of steps without the designated approver acting rejects.
func (e *Engine) evaluateSpecificApprover(ctx context.Context, in *evalInput) (*Decision, error) {
	if in.cfg.SpecificApproverID != "" && in.approverID == in.cfg.SpecificApproverID {
		return approved("approved by designated approver"), nil
	}
	return e.advanceOrComplete(ctx, in, func() *Decision {
		return rejected("all steps completed without designated approver action")
	})
}

// evaluateHybrid layers the designated-approver gate of the specific
// strategy in front of a secondary strategy: percentage when usePercentage
// is set, sequential otherwise.
func (e *Engine) evaluateHybrid(ctx context.Context, in *evalInput) (*Decision, error) {
	if in.cfg.SpecificApproverID != "" {
		if in.approverID == in.cfg.SpecificApproverID {
			return approved("approved by designated approver"), nil
		}

		history, err := e.history.GetApprovalHistory(ctx, in.claim.ID)
		if err != nil {
			return nil, fmt.Errorf("load approval history for %s: %w", in.claim.ID, err)
		}
		if !hasApprovalBy(history, in.cfg.SpecificApproverID) {
			// The designated approver has not acted yet; the secondary
			// strategy cannot resolve the claim until they do.
			return e.advanceOrComplete(ctx, in, func() *Decision {
				return rejected("all steps completed without designated approver approval")
			})
		}
	}

	if in.cfg.UsePercentage {
		return e.evaluatePercentage(ctx, in)
	}
	return e.evaluateSequential(ctx, in)
}

// advanceOrComplete moves the claim to the next step, resolving who may act
// there, or calls onExhausted once the step list runs out.
func (e *Engine) advanceOrComplete(ctx context.Context, in *evalInput, onExhausted func() *Decision) (*Decision, error) {
	next := currentStep(in.claim) + 1
	if next > len(in.steps) {
		return onExhausted(), nil
	}

	approvers, err := ResolveStepApprovers(ctx, e.dir, &in.steps[next-1], in.claim.OwnerID)
	if err != nil {
		return nil, err
	}
	return advanced(next, approvers, fmt.Sprintf("advanced to step %d of %d", next, len(in.steps))), nil
}

func countApprovals(history []entity.ApprovalHistory) int {
	n := 0
	for _, h := range history {
		if h.Status == entity.ActionApproved {
			n++
		}
	}
	return n
}

func hasApprovalBy(history []entity.ApprovalHistory, approverID string) bool {
	for _, h := range history {
		if h.Status == entity.ActionApproved && h.ApproverID == approverID {
			return true
		}
	}
	return false
}
