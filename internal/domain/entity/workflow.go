package entity

import "time"

// Workflow is a named, ordered approval configuration. RuleConfig is a JSON
// option bag whose recognized keys depend on RuleType; it is parsed by the
// decision engine, never here.
type Workflow struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id"`
	Name       string    `json:"name"`
	RuleType   string    `json:"rule_type"`
	RuleConfig string    `json:"rule_config"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WorkflowStep is one stage in a workflow's approval chain. Exactly one of
// ApproverRole and ApproverUserID designates who may act at the step.
type WorkflowStep struct {
	ID             string  `json:"id"`
	WorkflowID     string  `json:"workflow_id"`
	StepNumber     int     `json:"step_number"`
	ApproverRole   *string `json:"approver_role,omitempty"`
	ApproverUserID *string `json:"approver_user_id,omitempty"`
}
