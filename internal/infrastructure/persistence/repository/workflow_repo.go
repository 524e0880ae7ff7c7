package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearledger/expense-approval/internal/application/port"
	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// WorkflowRepository implements port.WorkflowRepository over sqlite. Its read
// side is the decision engine's workflow store.
type WorkflowRepository struct {
	db        *sql.DB
	txManager port.TransactionManager
	logger    *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, txManager port.TransactionManager, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:        db,
		txManager: txManager,
		logger:    logger,
	}
}

// Create inserts a workflow and its steps atomically
func (r *WorkflowRepository) Create(ctx context.Context, workflow *entity.Workflow, steps []entity.WorkflowStep) error {
	return r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO workflows (id, company_id, name, rule_type, rule_config)
			VALUES (?, ?, ?, ?, ?)
		`
		_, err := executorFor(txCtx, r.db).ExecContext(txCtx, query,
			workflow.ID,
			workflow.CompanyID,
			workflow.Name,
			workflow.RuleType,
			workflow.RuleConfig,
		)
		if err != nil {
			r.logger.Error("Failed to create workflow", zap.Error(err))
			return fmt.Errorf("failed to create workflow: %w", err)
		}

		stepQuery := `
			INSERT INTO workflow_steps (id, workflow_id, step_number, approver_role, approver_user_id)
			VALUES (?, ?, ?, ?, ?)
		`
		for i := range steps {
			step := &steps[i]
			_, err := executorFor(txCtx, r.db).ExecContext(txCtx, stepQuery,
				step.ID,
				step.WorkflowID,
				step.StepNumber,
				step.ApproverRole,
				step.ApproverUserID,
			)
			if err != nil {
				r.logger.Error("Failed to create workflow step",
					zap.Int("step_number", step.StepNumber), zap.Error(err))
				return fmt.Errorf("failed to create workflow step %d: %w", step.StepNumber, err)
			}
		}
		return nil
	})
}

// GetWorkflow retrieves a workflow by ID, or nil when it does not exist
func (r *WorkflowRepository) GetWorkflow(ctx context.Context, id string) (*entity.Workflow, error) {
	query := `
		SELECT id, company_id, name, rule_type, rule_config, created_at, updated_at
		FROM workflows
		WHERE id = ?
	`

	var workflow entity.Workflow
	err := executorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&workflow.ID,
		&workflow.CompanyID,
		&workflow.Name,
		&workflow.RuleType,
		&workflow.RuleConfig,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get workflow", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return &workflow, nil
}

// GetWorkflowSteps retrieves the steps of a workflow ordered by step number
func (r *WorkflowRepository) GetWorkflowSteps(ctx context.Context, workflowID string) ([]entity.WorkflowStep, error) {
	query := `
		SELECT id, workflow_id, step_number, approver_role, approver_user_id
		FROM workflow_steps
		WHERE workflow_id = ?
		ORDER BY step_number ASC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to get workflow steps", zap.String("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow steps: %w", err)
	}
	defer rows.Close()

	var steps []entity.WorkflowStep
	for rows.Next() {
		var step entity.WorkflowStep
		err := rows.Scan(
			&step.ID,
			&step.WorkflowID,
			&step.StepNumber,
			&step.ApproverRole,
			&step.ApproverUserID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Verify interface compliance
var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
