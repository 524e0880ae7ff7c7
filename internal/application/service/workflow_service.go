package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger/expense-approval/internal/application/port"
	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// ErrWorkflowNotFound is returned when a workflow id resolves to nothing.
var ErrWorkflowNotFound = errors.New("workflow not found")

// StepInput defines one approval step at creation time. Exactly one of
// ApproverRole and ApproverUserID must be set.
type StepInput struct {
	ApproverRole   *string
	ApproverUserID *string
}

// CreateWorkflowInput carries the fields needed to create a workflow with
// its ordered steps. Steps are numbered 1..n in the given order.
type CreateWorkflowInput struct {
	CompanyID  string
	Name       string
	RuleType   string
	RuleConfig map[string]interface{}
	Steps      []StepInput
}

// WorkflowWithSteps bundles a workflow and its ordered steps for reads.
type WorkflowWithSteps struct {
	Workflow entity.Workflow       `json:"workflow"`
	Steps    []entity.WorkflowStep `json:"steps"`
}

// WorkflowService manages approval workflow definitions.
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, in CreateWorkflowInput) (*WorkflowWithSteps, error)
	GetWorkflow(ctx context.Context, id string) (*WorkflowWithSteps, error)
}

type workflowServiceImpl struct {
	workflowRepo port.WorkflowRepository
	logger       Logger
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(workflowRepo port.WorkflowRepository, logger Logger) WorkflowService {
	return &workflowServiceImpl{
		workflowRepo: workflowRepo,
		logger:       logger,
	}
}

// CreateWorkflow validates and persists a workflow and its steps.
func (s *workflowServiceImpl) CreateWorkflow(ctx context.Context, in CreateWorkflowInput) (*WorkflowWithSteps, error) {
	if !entity.ValidRuleType(in.RuleType) {
		return nil, fmt.Errorf("unknown rule type %q", in.RuleType)
	}
	if err := validateRuleConfig(in.RuleConfig); err != nil {
		return nil, err
	}

	ruleConfig := ""
	if len(in.RuleConfig) > 0 {
		raw, err := json.Marshal(in.RuleConfig)
		if err != nil {
			return nil, fmt.Errorf("encode rule config: %w", err)
		}
		ruleConfig = string(raw)
	}

	now := time.Now()
	workflow := entity.Workflow{
		ID:         uuid.NewString(),
		CompanyID:  in.CompanyID,
		Name:       in.Name,
		RuleType:   in.RuleType,
		RuleConfig: ruleConfig,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	steps := make([]entity.WorkflowStep, 0, len(in.Steps))
	for i, def := range in.Steps {
		if err := validateStep(i+1, def); err != nil {
			return nil, err
		}
		steps = append(steps, entity.WorkflowStep{
			ID:             uuid.NewString(),
			WorkflowID:     workflow.ID,
			StepNumber:     i + 1,
			ApproverRole:   def.ApproverRole,
			ApproverUserID: def.ApproverUserID,
		})
	}

	if err := s.workflowRepo.Create(ctx, &workflow, steps); err != nil {
		s.logger.Error("Failed to create workflow", "error", err, "name", in.Name)
		return nil, err
	}

	s.logger.Info("Workflow created",
		"id", workflow.ID, "rule_type", workflow.RuleType, "steps", len(steps))
	return &WorkflowWithSteps{Workflow: workflow, Steps: steps}, nil
}

// GetWorkflow retrieves a workflow and its ordered steps.
func (s *workflowServiceImpl) GetWorkflow(ctx context.Context, id string) (*WorkflowWithSteps, error) {
	workflow, err := s.workflowRepo.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}
	steps, err := s.workflowRepo.GetWorkflowSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WorkflowWithSteps{Workflow: *workflow, Steps: steps}, nil
}

// validateStep enforces the exactly-one-designation invariant per step.
func validateStep(number int, def StepInput) error {
	hasRole := def.ApproverRole != nil && *def.ApproverRole != ""
	hasUser := def.ApproverUserID != nil && *def.ApproverUserID != ""
	if hasRole == hasUser {
		return fmt.Errorf("step %d: exactly one of approver_role and approver_user_id must be set", number)
	}
	if hasRole && !entity.ValidRole(*def.ApproverRole) {
		return fmt.Errorf("step %d: unknown approver role %q", number, *def.ApproverRole)
	}
	return nil
}

// validateRuleConfig checks the recognized option-bag keys without rejecting
// unknown ones.
func validateRuleConfig(cfg map[string]interface{}) error {
	raw, ok := cfg["requiredPercentage"]
	if !ok {
		return nil
	}
	pct, ok := raw.(float64)
	if !ok || pct != float64(int(pct)) || pct < 1 || pct > 100 {
		return fmt.Errorf("requiredPercentage must be an integer between 1 and 100")
	}
	return nil
}
