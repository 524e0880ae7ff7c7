// Package approval implements the expense claim decision engine: given a
// claim, its workflow configuration and an approve/reject action, it decides
// whether the claim is terminally approved or rejected, or advances to
// another step, and who may act there.
package approval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// HistoryReader provides past approval actions for a claim, oldest first.
type HistoryReader interface {
	GetApprovalHistory(ctx context.Context, claimID string) ([]entity.ApprovalHistory, error)
}

// WorkflowStore provides workflow definitions. GetWorkflow returns (nil, nil)
// for an unknown id; GetWorkflowSteps returns steps ordered by step number
// ascending.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id string) (*entity.Workflow, error)
	GetWorkflowSteps(ctx context.Context, workflowID string) ([]entity.WorkflowStep, error)
}

// evaluator is one rule-type strategy. All four strategies share this shape;
// adding a rule type means registering another evaluator, not touching the
// dispatch in Evaluate.
type evaluator func(ctx context.Context, in *evalInput) (*Decision, error)

// evalInput carries one evaluation's snapshot through a strategy.
type evalInput struct {
	claim      *entity.Claim
	workflow   *entity.Workflow
	steps      []entity.WorkflowStep
	cfg        RuleConfig
	approverID string
}

// Engine evaluates approval actions. It holds no mutable state and is safe
// for concurrent use across claims; serializing concurrent actions on the
// same claim is the caller's job.
type Engine struct {
	dir        Directory
	workflows  WorkflowStore
	history    HistoryReader
	logger     *zap.Logger
	evaluators map[string]evaluator
}

// NewEngine creates a decision engine over the given collaborators.
func NewEngine(dir Directory, workflows WorkflowStore, history HistoryReader, logger *zap.Logger) *Engine {
	e := &Engine{
		dir:       dir,
		workflows: workflows,
		history:   history,
		logger:    logger,
	}
	e.evaluators = map[string]evaluator{
		entity.RuleSequential:       e.evaluateSequential,
		entity.RulePercentage:       e.evaluatePercentage,
		entity.RuleSpecificApprover: e.evaluateSpecificApprover,
		entity.RuleHybrid:           e.evaluateHybrid,
	}
	return e
}

// Evaluate decides the outcome of one approve/reject action on a claim.
//
// A rejection by any authorized approver at the current step vetoes the claim
// outright, whatever the rule type. An approval on a claim with no workflow,
// a missing workflow record, zero steps or an unrecognized rule type is a
// terminal approval: misconfiguration fails open so a claim is never stuck on
// an administrative data error. An actor outside the current step's resolved
// approver set gets OutcomeUnauthorized and the claim must not be mutated.
func (e *Engine) Evaluate(ctx context.Context, claim *entity.Claim, approverID, action string) (*Decision, error) {
	if claim == nil {
		return nil, fmt.Errorf("claim is required")
	}

	var decision *Decision
	var err error
	switch action {
	case entity.ActionRejected:
		decision, err = e.evaluateRejection(ctx, claim, approverID)
	case entity.ActionApproved:
		decision, err = e.evaluateApproval(ctx, claim, approverID)
	default:
		return nil, fmt.Errorf("unknown action status %q", action)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Evaluated approval action",
		zap.String("claim_id", claim.ID),
		zap.String("approver_id", approverID),
		zap.String("action", action),
		zap.String("outcome", string(decision.Outcome)),
		zap.String("reason", decision.Reason))
	return decision, nil
}

func (e *Engine) evaluateRejection(ctx context.Context, claim *entity.Claim, approverID string) (*Decision, error) {
	ok, err := e.isAuthorized(ctx, claim, approverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return unauthorized(fmt.Sprintf("user %s is not an approver for the current step", approverID)), nil
	}
	return rejected("rejected by approver"), nil
}

func (e *Engine) evaluateApproval(ctx context.Context, claim *entity.Claim, approverID string) (*Decision, error) {
	if claim.WorkflowID == nil || *claim.WorkflowID == "" {
		return approved("no approval workflow assigned; auto-approved"), nil
	}

	workflow, err := e.workflows.GetWorkflow(ctx, *claim.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", *claim.WorkflowID, err)
	}
	if workflow == nil {
		return approved("assigned workflow not found; auto-approved"), nil
	}

	steps, err := e.workflows.GetWorkflowSteps(ctx, workflow.ID)
	if err != nil {
		return nil, fmt.Errorf("load workflow steps for %s: %w", workflow.ID, err)
	}
	if len(steps) == 0 {
		return approved("workflow has no steps; auto-approved"), nil
	}

	ok, err := e.authorizedAtCurrentStep(ctx, claim, steps, approverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return unauthorized(fmt.Sprintf("user %s is not an approver for the current step", approverID)), nil
	}

	eval, found := e.evaluators[workflow.RuleType]
	if !found {
		return approved(fmt.Sprintf("unrecognized rule type %s; auto-approved", workflow.RuleType)), nil
	}

	return eval(ctx, &evalInput{
		claim:      claim,
		workflow:   workflow,
		steps:      steps,
		cfg:        ParseRuleConfig(workflow.RuleConfig),
		approverID: approverID,
	})
}

// isAuthorized re-derives the acting user's entitlement from directory state.
// A claim with no workflow or no current step auto-authorizes: workflow
// processing has not engaged yet.
func (e *Engine) isAuthorized(ctx context.Context, claim *entity.Claim, approverID string) (bool, error) {
	if claim.WorkflowID == nil || *claim.WorkflowID == "" || claim.CurrentStepNumber == nil {
		return true, nil
	}
	steps, err := e.workflows.GetWorkflowSteps(ctx, *claim.WorkflowID)
	if err != nil {
		return false, fmt.Errorf("load workflow steps for %s: %w", *claim.WorkflowID, err)
	}
	return e.authorizedAtCurrentStep(ctx, claim, steps, approverID)
}

func (e *Engine) authorizedAtCurrentStep(ctx context.Context, claim *entity.Claim, steps []entity.WorkflowStep, approverID string) (bool, error) {
	if claim.CurrentStepNumber == nil {
		return true, nil
	}
	step := stepAt(steps, *claim.CurrentStepNumber)
	if step == nil {
		return false, nil
	}
	approvers, err := ResolveStepApprovers(ctx, e.dir, step, claim.OwnerID)
	if err != nil {
		return false, err
	}
	for _, u := range approvers {
		if u.ID == approverID {
			return true, nil
		}
	}
	return false, nil
}

// stepAt returns the step with the given 1-based number, or nil when the
// number falls outside the list.
func stepAt(steps []entity.WorkflowStep, number int) *entity.WorkflowStep {
	if number < 1 || number > len(steps) {
		return nil
	}
	return &steps[number-1]
}

// currentStep returns the claim's pending step number, defaulting to 1 when
// workflow processing has not recorded one yet.
func currentStep(claim *entity.Claim) int {
	if claim.CurrentStepNumber == nil {
		return 1
	}
	return *claim.CurrentStepNumber
}
