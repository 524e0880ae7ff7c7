package entity

import "time"

// Claim is an expense submission subject to approval.
type Claim struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	CompanyID         string    `json:"company_id"`
	Description       string    `json:"description"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	WorkflowID        *string   `json:"workflow_id,omitempty"`
	CurrentStepNumber *int      `json:"current_step_number,omitempty"`
	SubmittedAt       time.Time `json:"submitted_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
