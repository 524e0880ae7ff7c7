package entity

import "time"

// ApprovalHistory is one immutable audit record for an action on a claim.
// Entries are written by the caller after the decision engine has produced
// its Decision; the engine only reads them.
type ApprovalHistory struct {
	ID         string    `json:"id"`
	ClaimID    string    `json:"claim_id"`
	ApproverID string    `json:"approver_id"`
	Status     string    `json:"status"`
	Comment    string    `json:"comment,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
