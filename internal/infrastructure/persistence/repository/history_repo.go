package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearledger/expense-approval/internal/application/port"
	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository over sqlite. Its read
// side is the decision engine's history reader.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a new audit record. Entries are immutable; there is no
// update path.
func (r *HistoryRepository) Create(ctx context.Context, entry *entity.ApprovalHistory) error {
	query := `
		INSERT INTO approval_history (id, claim_id, approver_id, status, comment, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.ClaimID,
		entry.ApproverID,
		entry.Status,
		entry.Comment,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history entry", zap.Error(err))
		return fmt.Errorf("failed to create history entry: %w", err)
	}
	return nil
}

// GetApprovalHistory retrieves all audit records for a claim, oldest first
func (r *HistoryRepository) GetApprovalHistory(ctx context.Context, claimID string) ([]entity.ApprovalHistory, error) {
	query := `
		SELECT id, claim_id, approver_id, status, comment, timestamp
		FROM approval_history
		WHERE claim_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get approval history", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval history: %w", err)
	}
	defer rows.Close()

	var entries []entity.ApprovalHistory
	for rows.Next() {
		var entry entity.ApprovalHistory
		err := rows.Scan(
			&entry.ID,
			&entry.ClaimID,
			&entry.ApproverID,
			&entry.Status,
			&entry.Comment,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
