package port

import (
	"context"

	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// UserRepository defines persistence operations for users and companies. The
// lookup methods double as the decision engine's Directory collaborator:
// not-found is (nil, nil), never an error.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetUser(ctx context.Context, id string) (*entity.User, error)
	GetUsersByCompany(ctx context.Context, companyID string) ([]entity.User, error)
	GetUserManager(ctx context.Context, userID string) (*entity.User, error)
}

// ClaimRepository defines persistence operations for claims.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id string) (*entity.Claim, error)
	List(ctx context.Context, companyID string, limit, offset int) ([]entity.Claim, error)
	// ApplyDecision updates the fields a decision owns: status and the
	// pending step number (nil clears it).
	ApplyDecision(ctx context.Context, id string, status string, currentStepNumber *int) error
}

// WorkflowRepository defines persistence operations for workflows and their
// steps. The read side doubles as the engine's WorkflowStore collaborator;
// GetWorkflowSteps returns steps ordered by step number ascending.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *entity.Workflow, steps []entity.WorkflowStep) error
	GetWorkflow(ctx context.Context, id string) (*entity.Workflow, error)
	GetWorkflowSteps(ctx context.Context, workflowID string) ([]entity.WorkflowStep, error)
}

// HistoryRepository defines persistence operations for the approval audit
// trail. The read side doubles as the engine's HistoryReader collaborator.
type HistoryRepository interface {
	Create(ctx context.Context, entry *entity.ApprovalHistory) error
	GetApprovalHistory(ctx context.Context, claimID string) ([]entity.ApprovalHistory, error)
}

// TransactionManager handles database transactions.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
