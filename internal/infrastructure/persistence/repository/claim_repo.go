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

// ClaimRepository implements port.ClaimRepository over sqlite
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new claim record
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `
		INSERT INTO claims (
			id, owner_id, company_id, description, amount_cents, currency,
			status, workflow_id, current_step_number, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		claim.ID,
		claim.OwnerID,
		claim.CompanyID,
		claim.Description,
		claim.AmountCents,
		claim.Currency,
		claim.Status,
		claim.WorkflowID,
		claim.CurrentStepNumber,
		claim.SubmittedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// GetByID retrieves a claim by ID, or nil when it does not exist
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	query := `
		SELECT id, owner_id, company_id, description, amount_cents, currency,
			status, workflow_id, current_step_number, submitted_at, resolved_at,
			created_at, updated_at
		FROM claims
		WHERE id = ?
	`

	claim, err := scanClaim(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get claim", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// List retrieves a paginated list of claims for a company, newest first
func (r *ClaimRepository) List(ctx context.Context, companyID string, limit, offset int) ([]entity.Claim, error) {
	query := `
		SELECT id, owner_id, company_id, description, amount_cents, currency,
			status, workflow_id, current_step_number, submitted_at, resolved_at,
			created_at, updated_at
		FROM claims
		WHERE company_id = ?
		ORDER BY submitted_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, companyID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, *claim)
	}
	return claims, rows.Err()
}

// ApplyDecision updates the fields a decision owns: status and the pending
// step number. A terminal status also stamps resolved_at.
func (r *ClaimRepository) ApplyDecision(ctx context.Context, id string, status string, currentStepNumber *int) error {
	query := `
		UPDATE claims
		SET status = ?,
			current_step_number = ?,
			resolved_at = CASE WHEN ? != 'PENDING' THEN CURRENT_TIMESTAMP ELSE NULL END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, status, currentStepNumber, status, id)
	if err != nil {
		r.logger.Error("Failed to apply decision", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to apply decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("claim %s not found", id)
	}
	return nil
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var claim entity.Claim
	err := row.Scan(
		&claim.ID,
		&claim.OwnerID,
		&claim.CompanyID,
		&claim.Description,
		&claim.AmountCents,
		&claim.Currency,
		&claim.Status,
		&claim.WorkflowID,
		&claim.CurrentStepNumber,
		&claim.SubmittedAt,
		&claim.ResolvedAt,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
