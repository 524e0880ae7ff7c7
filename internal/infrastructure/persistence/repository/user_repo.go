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

// UserRepository implements port.UserRepository over sqlite. Its read side is
// the decision engine's directory: not-found is (nil, nil), never an error.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user record
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, company_id, email, name, role, manager_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.CompanyID,
		user.Email,
		user.Name,
		user.Role,
		user.ManagerID,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id string) (*entity.User, error) {
	query := `
		SELECT id, company_id, email, name, role, manager_id, created_at
		FROM users
		WHERE id = ?
	`

	user, err := scanUser(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUsersByCompany retrieves all users belonging to a company
func (r *UserRepository) GetUsersByCompany(ctx context.Context, companyID string) ([]entity.User, error) {
	query := `
		SELECT id, company_id, email, name, role, manager_id, created_at
		FROM users
		WHERE company_id = ?
		ORDER BY created_at ASC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to get users by company", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get users by company: %w", err)
	}
	defer rows.Close()

	var users []entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// GetUserManager retrieves the direct manager of a user, or nil when the
// user has none
func (r *UserRepository) GetUserManager(ctx context.Context, userID string) (*entity.User, error) {
	query := `
		SELECT m.id, m.company_id, m.email, m.name, m.role, m.manager_id, m.created_at
		FROM users u
		JOIN users m ON m.id = u.manager_id
		WHERE u.id = ?
	`

	manager, err := scanUser(executorFor(ctx, r.db).QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get user manager", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get user manager: %w", err)
	}
	return manager, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.ManagerID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
