package approval

import (
	"context"
	"fmt"

	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// Directory resolves users, company rosters and reporting lines. Lookups that
// find nothing return (nil, nil); errors are reserved for lookup failures.
type Directory interface {
	GetUser(ctx context.Context, id string) (*entity.User, error)
	GetUsersByCompany(ctx context.Context, companyID string) ([]entity.User, error)
	GetUserManager(ctx context.Context, userID string) (*entity.User, error)
}

// ResolveStepApprovers resolves the concrete set of users entitled to act at
// a step, rooted at the claim owner. A user designation wins over a role
// designation. MANAGER resolves to the owner's direct manager; any other role
// resolves to every user in the owner's company holding it. Unresolvable
// designations degrade to an empty set, never to an error.
func ResolveStepApprovers(ctx context.Context, dir Directory, step *entity.WorkflowStep, ownerID string) ([]entity.User, error) {
	if step == nil {
		return nil, nil
	}

	if step.ApproverUserID != nil && *step.ApproverUserID != "" {
		user, err := dir.GetUser(ctx, *step.ApproverUserID)
		if err != nil {
			return nil, fmt.Errorf("resolve step approver user: %w", err)
		}
		if user == nil {
			return nil, nil
		}
		return []entity.User{*user}, nil
	}

	if step.ApproverRole == nil || *step.ApproverRole == "" {
		return nil, nil
	}

	owner, err := dir.GetUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("resolve claim owner: %w", err)
	}
	if owner == nil {
		return nil, nil
	}

	if *step.ApproverRole == entity.RoleManager {
		manager, err := dir.GetUserManager(ctx, owner.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve owner manager: %w", err)
		}
		if manager == nil {
			return nil, nil
		}
		return []entity.User{*manager}, nil
	}

	users, err := dir.GetUsersByCompany(ctx, owner.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("resolve company users: %w", err)
	}
	var matched []entity.User
	for _, u := range users {
		if u.Role == *step.ApproverRole {
			matched = append(matched, u)
		}
	}
	return matched, nil
}
