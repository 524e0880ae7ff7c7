package entity

// Status constants for Claim
const (
	ClaimStatusPending  = "PENDING"
	ClaimStatusApproved = "APPROVED"
	ClaimStatusRejected = "REJECTED"
)

// Action status constants for ApprovalHistory
const (
	ActionApproved = "APPROVED"
	ActionRejected = "REJECTED"
)

// Role constants for User and WorkflowStep.ApproverRole
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

// Rule type constants for Workflow
const (
	RuleSequential       = "SEQUENTIAL"
	RulePercentage       = "PERCENTAGE"
	RuleSpecificApprover = "SPECIFIC_APPROVER"
	RuleHybrid           = "HYBRID"
)

// ValidRole reports whether role is a known directory role.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// ValidRuleType reports whether ruleType names a known approval strategy.
func ValidRuleType(ruleType string) bool {
	switch ruleType {
	case RuleSequential, RulePercentage, RuleSpecificApprover, RuleHybrid:
		return true
	}
	return false
}
