package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger/expense-approval/internal/application/port"
	"github.com/clearledger/expense-approval/internal/domain/approval"
	"github.com/clearledger/expense-approval/internal/domain/entity"
	"github.com/clearledger/expense-approval/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Sentinel errors surfaced to the transport layer.
var (
	ErrClaimNotFound        = errors.New("claim not found")
	ErrClaimResolved        = errors.New("claim is already resolved")
	ErrUnauthorizedApprover = errors.New("user is not authorized to act on this claim")
	ErrInvalidAction        = errors.New("action status must be APPROVED or REJECTED")
)

// SubmitClaimInput carries the fields needed to create a claim.
type SubmitClaimInput struct {
	OwnerID     string
	CompanyID   string
	Description string
	AmountCents int64
	Currency    string
	WorkflowID  *string
}

// ActionInput carries one approve/reject action on a claim.
type ActionInput struct {
	ApproverID string
	Status     string
	Comment    string
}

// ClaimService manages expense claims and drives the decision engine.
type ClaimService interface {
	SubmitClaim(ctx context.Context, in SubmitClaimInput) (*entity.Claim, error)
	GetClaim(ctx context.Context, id string) (*entity.Claim, error)
	ListClaims(ctx context.Context, companyID string, limit, offset int) ([]entity.Claim, error)
	GetHistory(ctx context.Context, claimID string) ([]entity.ApprovalHistory, error)
	// Act evaluates one approve/reject action and persists its effects:
	// the history entry and the claim's status/step. An unauthorized actor
	// yields ErrUnauthorizedApprover and mutates nothing.
	Act(ctx context.Context, claimID string, in ActionInput) (*approval.Decision, error)
}

type claimServiceImpl struct {
	claimRepo    port.ClaimRepository
	workflowRepo port.WorkflowRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	engine       *approval.Engine
	logger       Logger

	// Serializes concurrent actions on the same claim so two evaluations
	// cannot be computed from the same pre-action snapshot.
	mu         sync.Mutex
	claimLocks map[string]*sync.Mutex
}

// NewClaimService creates a new ClaimService.
func NewClaimService(
	claimRepo port.ClaimRepository,
	workflowRepo port.WorkflowRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	engine *approval.Engine,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		claimRepo:    claimRepo,
		workflowRepo: workflowRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		engine:       engine,
		logger:       logger,
		claimLocks:   make(map[string]*sync.Mutex),
	}
}

// SubmitClaim creates a new pending claim, optionally bound to a workflow.
func (s *claimServiceImpl) SubmitClaim(ctx context.Context, in SubmitClaimInput) (*entity.Claim, error) {
	if err := utils.ValidateAmountCents(in.AmountCents); err != nil {
		return nil, err
	}
	if err := utils.ValidateCurrency(in.Currency); err != nil {
		return nil, err
	}

	now := time.Now()
	claim := &entity.Claim{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		CompanyID:   in.CompanyID,
		Description: in.Description,
		AmountCents: in.AmountCents,
		Currency:    in.Currency,
		Status:      entity.ClaimStatusPending,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.WorkflowID != nil && *in.WorkflowID != "" {
		workflow, err := s.workflowRepo.GetWorkflow(ctx, *in.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("load workflow: %w", err)
		}
		if workflow == nil {
			return nil, fmt.Errorf("workflow %s not found", *in.WorkflowID)
		}
		claim.WorkflowID = in.WorkflowID

		steps, err := s.workflowRepo.GetWorkflowSteps(ctx, workflow.ID)
		if err != nil {
			return nil, fmt.Errorf("load workflow steps: %w", err)
		}
		if len(steps) > 0 {
			first := 1
			claim.CurrentStepNumber = &first
		}
	}

	if err := s.claimRepo.Create(ctx, claim); err != nil {
		s.logger.Error("Failed to create claim", "error", err, "owner_id", in.OwnerID)
		return nil, err
	}

	s.logger.Info("Claim submitted", "id", claim.ID, "owner_id", claim.OwnerID)
	return claim, nil
}

// GetClaim retrieves a claim by ID.
func (s *claimServiceImpl) GetClaim(ctx context.Context, id string) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ErrClaimNotFound
	}
	return claim, nil
}

// ListClaims retrieves a paginated list of claims for a company.
func (s *claimServiceImpl) ListClaims(ctx context.Context, companyID string, limit, offset int) ([]entity.Claim, error) {
	return s.claimRepo.List(ctx, companyID, limit, offset)
}

// GetHistory retrieves the audit trail for a claim, oldest first.
func (s *claimServiceImpl) GetHistory(ctx context.Context, claimID string) ([]entity.ApprovalHistory, error) {
	return s.historyRepo.GetApprovalHistory(ctx, claimID)
}

// Act evaluates one approve/reject action through the decision engine, then
// persists the history entry and the decision's effects in one transaction.
func (s *claimServiceImpl) Act(ctx context.Context, claimID string, in ActionInput) (*approval.Decision, error) {
	if in.Status != entity.ActionApproved && in.Status != entity.ActionRejected {
		return nil, ErrInvalidAction
	}

	lock := s.lockFor(claimID)
	lock.Lock()
	defer lock.Unlock()

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ErrClaimNotFound
	}
	if claim.Status != entity.ClaimStatusPending {
		return nil, ErrClaimResolved
	}

	decision, err := s.engine.Evaluate(ctx, claim, in.ApproverID, in.Status)
	if err != nil {
		s.logger.Error("Failed to evaluate action", "error", err, "claim_id", claimID)
		return nil, err
	}

	if decision.Unauthorized() {
		s.logger.Info("Unauthorized approval action",
			"claim_id", claimID, "approver_id", in.ApproverID)
		return nil, ErrUnauthorizedApprover
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entry := &entity.ApprovalHistory{
			ID:         uuid.NewString(),
			ClaimID:    claimID,
			ApproverID: in.ApproverID,
			Status:     in.Status,
			Comment:    in.Comment,
			Timestamp:  time.Now(),
		}
		if err := s.historyRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("create history entry: %w", err)
		}

		status, step := applyOutcome(decision, claim)
		if err := s.claimRepo.ApplyDecision(txCtx, claimID, status, step); err != nil {
			return fmt.Errorf("apply decision: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist decision", "error", err, "claim_id", claimID)
		return nil, err
	}

	s.logger.Info("Action evaluated",
		"claim_id", claimID,
		"approver_id", in.ApproverID,
		"outcome", string(decision.Outcome),
		"reason", decision.Reason)
	return decision, nil
}

// applyOutcome maps a decision onto the claim fields the caller owns.
func applyOutcome(decision *approval.Decision, claim *entity.Claim) (status string, step *int) {
	if decision.Completed {
		if decision.Approved {
			return entity.ClaimStatusApproved, nil
		}
		return entity.ClaimStatusRejected, nil
	}
	next := decision.NextStepNumber
	return entity.ClaimStatusPending, &next
}

func (s *claimServiceImpl) lockFor(claimID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.claimLocks[claimID]
	if !ok {
		lock = &sync.Mutex{}
		s.claimLocks[claimID] = lock
	}
	return lock
}
