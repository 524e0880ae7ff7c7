package entity

import "time"

// User is a member of a company directory.
type User struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ManagerID *string   `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Company groups users and claims under one tenant.
type Company struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Country       string    `json:"country"`
	BaseCurrency  string    `json:"base_currency"`
	CreatedAt     time.Time `json:"created_at"`
}
