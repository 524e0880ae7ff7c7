package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// Fakes for the engine's collaborators

type fakeDirectory struct {
	users    map[string]entity.User
	managers map[string]string // userID -> managerID
}

func (f *fakeDirectory) GetUser(ctx context.Context, id string) (*entity.User, error) {
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *fakeDirectory) GetUsersByCompany(ctx context.Context, companyID string) ([]entity.User, error) {
	var users []entity.User
	for _, u := range f.users {
		if u.CompanyID == companyID {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeDirectory) GetUserManager(ctx context.Context, userID string) (*entity.User, error) {
	managerID, ok := f.managers[userID]
	if !ok {
		return nil, nil
	}
	if m, found := f.users[managerID]; found {
		return &m, nil
	}
	return nil, nil
}

type fakeWorkflowStore struct {
	workflows map[string]entity.Workflow
	steps     map[string][]entity.WorkflowStep
}

func (f *fakeWorkflowStore) GetWorkflow(ctx context.Context, id string) (*entity.Workflow, error) {
	if w, ok := f.workflows[id]; ok {
		return &w, nil
	}
	return nil, nil
}

func (f *fakeWorkflowStore) GetWorkflowSteps(ctx context.Context, workflowID string) ([]entity.WorkflowStep, error) {
	return f.steps[workflowID], nil
}

type fakeHistoryReader struct {
	entries map[string][]entity.ApprovalHistory
}

func (f *fakeHistoryReader) GetApprovalHistory(ctx context.Context, claimID string) ([]entity.ApprovalHistory, error) {
	return f.entries[claimID], nil
}

// Test fixture: one company with an employee, their manager and two admins.

const (
	companyID = "acme"
	ownerID   = "emp-1"
	managerID = "mgr-1"
	adminID   = "adm-1"
	cfoID     = "cfo-1"
)

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[string]entity.User{
			ownerID:   {ID: ownerID, CompanyID: companyID, Role: entity.RoleEmployee},
			managerID: {ID: managerID, CompanyID: companyID, Role: entity.RoleManager},
			adminID:   {ID: adminID, CompanyID: companyID, Role: entity.RoleAdmin},
			cfoID:     {ID: cfoID, CompanyID: companyID, Role: entity.RoleAdmin},
		},
		managers: map[string]string{
			ownerID: managerID,
		},
	}
}

func rolePtr(role string) *string { return &role }
func userPtr(id string) *string   { return &id }
func intPtr(n int) *int           { return &n }
func strPtr(s string) *string     { return &s }

func roleSteps(workflowID string, roles ...string) []entity.WorkflowStep {
	steps := make([]entity.WorkflowStep, 0, len(roles))
	for i, role := range roles {
		steps = append(steps, entity.WorkflowStep{
			ID:           workflowID + "-s" + string(rune('1'+i)),
			WorkflowID:   workflowID,
			StepNumber:   i + 1,
			ApproverRole: rolePtr(role),
		})
	}
	return steps
}

func testClaim(workflowID *string, step *int) *entity.Claim {
	return &entity.Claim{
		ID:                "claim-1",
		OwnerID:           ownerID,
		CompanyID:         companyID,
		Status:            entity.ClaimStatusPending,
		WorkflowID:        workflowID,
		CurrentStepNumber: step,
	}
}

func newTestEngine(workflows *fakeWorkflowStore, history *fakeHistoryReader) *Engine {
	if workflows == nil {
		workflows = &fakeWorkflowStore{}
	}
	if history == nil {
		history = &fakeHistoryReader{}
	}
	return NewEngine(testDirectory(), workflows, history, zap.NewNop())
}

func TestEvaluate_NoWorkflowAutoApproves(t *testing.T) {
	engine := newTestEngine(nil, nil)

	decision, err := engine.Evaluate(context.Background(), testClaim(nil, nil), managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
	assert.True(t, decision.Approved)
	assert.True(t, decision.Completed)
	assert.Empty(t, decision.NextApprovers)
}

func TestEvaluate_MissingConfigurationFailsOpen(t *testing.T) {
	tests := []struct {
		name      string
		workflows *fakeWorkflowStore
	}{
		{
			name:      "workflow record not found",
			workflows: &fakeWorkflowStore{},
		},
		{
			name: "workflow has zero steps",
			workflows: &fakeWorkflowStore{
				workflows: map[string]entity.Workflow{
					"wf-1": {ID: "wf-1", RuleType: entity.RuleSequential},
				},
			},
		},
		{
			name: "unrecognized rule type",
			workflows: &fakeWorkflowStore{
				workflows: map[string]entity.Workflow{
					"wf-1": {ID: "wf-1", RuleType: "ROUND_ROBIN"},
				},
				steps: map[string][]entity.WorkflowStep{
					"wf-1": roleSteps("wf-1", entity.RoleManager),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.workflows, nil)
			claim := testClaim(strPtr("wf-1"), intPtr(1))

			decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

			require.NoError(t, err)
			assert.Equal(t, OutcomeApproved, decision.Outcome)
			assert.True(t, decision.Completed)
		})
	}
}

func TestEvaluate_RejectionVetoesRegardlessOfRuleType(t *testing.T) {
	for _, ruleType := range []string{
		entity.RuleSequential,
		entity.RulePercentage,
		entity.RuleSpecificApprover,
		entity.RuleHybrid,
	} {
		t.Run(ruleType, func(t *testing.T) {
			workflows := &fakeWorkflowStore{
				workflows: map[string]entity.Workflow{
					"wf-1": {ID: "wf-1", RuleType: ruleType},
				},
				steps: map[string][]entity.WorkflowStep{
					"wf-1": roleSteps("wf-1", entity.RoleManager, entity.RoleAdmin),
				},
			}
			engine := newTestEngine(workflows, nil)
			claim := testClaim(strPtr("wf-1"), intPtr(1))

			decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionRejected)

			require.NoError(t, err)
			assert.Equal(t, OutcomeRejected, decision.Outcome)
			assert.True(t, decision.Completed)
			assert.False(t, decision.Approved)
		})
	}
}

func TestEvaluate_RejectionWithoutWorkflowIsTerminal(t *testing.T) {
	engine := newTestEngine(nil, nil)

	decision, err := engine.Evaluate(context.Background(), testClaim(nil, nil), ownerID, entity.ActionRejected)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, decision.Outcome)
	assert.True(t, decision.Completed)
}

func TestEvaluate_UnauthorizedActor(t *testing.T) {
	workflows := &fakeWorkflowStore{
		workflows: map[string]entity.Workflow{
			"wf-1": {ID: "wf-1", RuleType: entity.RuleSequential},
		},
		steps: map[string][]entity.WorkflowStep{
			"wf-1": roleSteps("wf-1", entity.RoleManager, entity.RoleAdmin),
		},
	}
	engine := newTestEngine(workflows, nil)
	claim := testClaim(strPtr("wf-1"), intPtr(1))

	// The owner is an employee; step 1 wants the manager.
	for _, action := range []string{entity.ActionApproved, entity.ActionRejected} {
		decision, err := engine.Evaluate(context.Background(), claim, ownerID, action)

		require.NoError(t, err)
		assert.Equal(t, OutcomeUnauthorized, decision.Outcome)
		assert.True(t, decision.Unauthorized())
		assert.False(t, decision.Completed)
		assert.False(t, decision.Approved)
	}
}

func TestEvaluate_StepNumberOutOfRangeIsUnauthorized(t *testing.T) {
	workflows := &fakeWorkflowStore{
		workflows: map[string]entity.Workflow{
			"wf-1": {ID: "wf-1", RuleType: entity.RuleSequential},
		},
		steps: map[string][]entity.WorkflowStep{
			"wf-1": roleSteps("wf-1", entity.RoleManager),
		},
	}
	engine := newTestEngine(workflows, nil)
	claim := testClaim(strPtr("wf-1"), intPtr(5))

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnauthorized, decision.Outcome)
}

func TestSequential_AdvancesThenCompletes(t *testing.T) {
	workflows := &fakeWorkflowStore{
		workflows: map[string]entity.Workflow{
			"wf-seq": {ID: "wf-seq", RuleType: entity.RuleSequential},
		},
		steps: map[string][]entity.WorkflowStep{
			"wf-seq": roleSteps("wf-seq", entity.RoleManager, entity.RoleAdmin),
		},
	}
	engine := newTestEngine(workflows, nil)

	// Step 1 of 2: advance, resolving step 2's approvers.
	claim := testClaim(strPtr("wf-seq"), intPtr(1))
	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, decision.Outcome)
	assert.False(t, decision.Completed)
	assert.Equal(t, 2, decision.NextStepNumber)
	require.Len(t, decision.NextApprovers, 2)
	for _, u := range decision.NextApprovers {
		assert.Equal(t, entity.RoleAdmin, u.Role)
	}

	// Step 2 of 2: terminal approval.
	claim = testClaim(strPtr("wf-seq"), intPtr(2))
	decision, err = engine.Evaluate(context.Background(), claim, adminID, entity.ActionApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
	assert.True(t, decision.Completed)
	assert.True(t, decision.Approved)
	assert.Empty(t, decision.NextApprovers)
}

func TestSequential_DefaultsCurrentStepToOne(t *testing.T) {
	workflows := &fakeWorkflowStore{
		workflows: map[string]entity.Workflow{
			"wf-seq": {ID: "wf-seq", RuleType: entity.RuleSequential},
		},
		steps: map[string][]entity.WorkflowStep{
			"wf-seq": roleSteps("wf-seq", entity.RoleManager, entity.RoleAdmin),
		},
	}
	engine := newTestEngine(workflows, nil)

	// No current step recorded: auto-authorized, treated as step 1.
	claim := testClaim(strPtr("wf-seq"), nil)
	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, decision.Outcome)
	assert.Equal(t, 2, decision.NextStepNumber)
}

func percentageStore(requiredPct string) *fakeWorkflowStore {
	return &fakeWorkflowStore{
		workflows: map[string]entity.Workflow{
			"wf-pct": {ID: "wf-pct", RuleType: entity.RulePercentage, RuleConfig: requiredPct},
		},
		steps: map[string][]entity.WorkflowStep{
			"wf-pct": {
				{ID: "s1", WorkflowID: "wf-pct", StepNumber: 1, ApproverUserID: userPtr(managerID)},
				{ID: "s2", WorkflowID: "wf-pct", StepNumber: 2, ApproverUserID: userPtr(adminID)},
			},
		},
	}
}

func TestPercentage_ThresholdMetApprovesImmediately(t *testing.T) {
	// Two steps resolving to one approver each: a single approval is 1/2 = 50%.
	engine := newTestEngine(percentageStore(`{"requiredPercentage": 50}`), nil)
	claim := testClaim(strPtr("wf-pct"), intPtr(1))

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
	assert.True(t, decision.Completed)
	assert.Contains(t, decision.Reason, "50.0%")
}

func TestPercentage_BelowThresholdAdvances(t *testing.T) {
	engine := newTestEngine(percentageStore(`{"requiredPercentage": 100}`), nil)
	claim := testClaim(strPtr("wf-pct"), intPtr(1))

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, decision.Outcome)
	assert.Equal(t, 2, decision.NextStepNumber)
	require.Len(t, decision.NextApprovers, 1)
	assert.Equal(t, adminID, decision.NextApprovers[0].ID)
}

func TestPercentage_StepsExhaustedBelowThresholdRejects(t *testing.T) {
	history := &fakeHistoryReader{
		entries: map[string][]entity.ApprovalHistory{
			"claim-1": {{ClaimID: "claim-1", ApproverID: managerID, Status: entity.ActionApproved}},
		},
	}
	engine := newTestEngine(percentageStore(`{"requiredPercentage": 100}`), history)
	claim := testClaim(strPtr("wf-pct"), intPtr(2))

	// One recorded approval plus the in-flight one is 2 of 2: quorum met.
	decision, err := engine.Evaluate(context.Background(), claim, adminID, entity.ActionApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)

	// Without the earlier approval the chain exhausts below threshold.
	engine = newTestEngine(percentageStore(`{"requiredPercentage": 100}`), nil)
	decision, err = engine.Evaluate(context.Background(), claim, adminID, entity.ActionApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, decision.Outcome)
	assert.True(t, decision.Completed)
	assert.False(t, decision.Approved)
}

func TestPercentage_ZeroResolvableApproversRejects(t *testing.T) {
	workflows := &fakeWorkflowStore{
		workflows: map[string]entity.Workflow{
			"wf-pct": {ID: "wf-pct", RuleType: entity.RulePercentage},
		},
		steps: map[string][]entity.WorkflowStep{
			// A user that does not exist and a role nobody holds for the
			// owner (no manager chain above the manager).
			"wf-pct": {
				{ID: "s1", WorkflowID: "wf-pct", StepNumber: 1, ApproverUserID: userPtr("ghost")},
			},
		},
	}
	engine := newTestEngine(workflows, nil)
	// Workflow assigned but processing not started: actor auto-authorized.
	claim := testClaim(strPtr("wf-pct"), nil)

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, decision.Outcome)
	assert.True(t, decision.Completed)
	assert.False(t, decision.Approved)
}

func TestPercentage_DefaultThresholdIsFifty(t *testing.T) {
	// No requiredPercentage configured: one approval of two counts passes.
	engine := newTestEngine(percentageStore(""), nil)
	claim := testClaim(strPtr("wf-pct"), intPtr(1))

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
}

func specificApproverStore(specificID string) *fakeWorkflowStore {
	return &fakeWorkflowStore{
		workflows: map[string]entity.Workflow{
			"wf-spec": {
				ID:         "wf-spec",
				RuleType:   entity.RuleSpecificApprover,
				RuleConfig: `{"specificApproverId": "` + specificID + `"}`,
			},
		},
		steps: map[string][]entity.WorkflowStep{
			"wf-spec": roleSteps("wf-spec", entity.RoleManager, entity.RoleAdmin, entity.RoleManager),
		},
	}
}

func TestSpecificApprover_DesignatedActorApprovesImmediately(t *testing.T) {
	engine := newTestEngine(specificApproverStore(adminID), nil)
	// Mid-chain, not the final step.
	claim := testClaim(strPtr("wf-spec"), intPtr(2))

	decision, err := engine.Evaluate(context.Background(), claim, adminID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
	assert.True(t, decision.Completed)
}

func TestSpecificApprover_OtherActorAdvances(t *testing.T) {
	engine := newTestEngine(specificApproverStore(cfoID), nil)
	claim := testClaim(strPtr("wf-spec"), intPtr(1))

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, decision.Outcome)
	assert.Equal(t, 2, decision.NextStepNumber)
}

func TestSpecificApprover_ExhaustionWithoutDesignatedActorRejects(t *testing.T) {
	engine := newTestEngine(specificApproverStore(cfoID), nil)
	claim := testClaim(strPtr("wf-spec"), intPtr(3))

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, decision.Outcome)
	assert.True(t, decision.Completed)
	assert.False(t, decision.Approved)
}

func hybridStore(ruleConfig string) *fakeWorkflowStore {
	return &fakeWorkflowStore{
		workflows: map[string]entity.Workflow{
			"wf-hyb": {ID: "wf-hyb", RuleType: entity.RuleHybrid, RuleConfig: ruleConfig},
		},
		steps: map[string][]entity.WorkflowStep{
			"wf-hyb": roleSteps("wf-hyb", entity.RoleManager, entity.RoleAdmin),
		},
	}
}

func TestHybrid_DesignatedActorApprovesImmediately(t *testing.T) {
	engine := newTestEngine(hybridStore(`{"specificApproverId": "`+cfoID+`"}`), nil)
	claim := testClaim(strPtr("wf-hyb"), intPtr(2))

	decision, err := engine.Evaluate(context.Background(), claim, cfoID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
}

func TestHybrid_UnsatisfiedGateAdvancesLikeSequential(t *testing.T) {
	engine := newTestEngine(hybridStore(`{"specificApproverId": "`+cfoID+`", "usePercentage": true}`), nil)
	claim := testClaim(strPtr("wf-hyb"), intPtr(1))

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, decision.Outcome)
	assert.Equal(t, 2, decision.NextStepNumber)
}

func TestHybrid_UnsatisfiedGateExhaustionRejects(t *testing.T) {
	engine := newTestEngine(hybridStore(`{"specificApproverId": "`+cfoID+`"}`), nil)
	claim := testClaim(strPtr("wf-hyb"), intPtr(2))

	decision, err := engine.Evaluate(context.Background(), claim, adminID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, decision.Outcome)
	assert.True(t, decision.Completed)
}

func TestHybrid_SatisfiedGateFallsThroughToPercentage(t *testing.T) {
	history := &fakeHistoryReader{
		entries: map[string][]entity.ApprovalHistory{
			"claim-1": {{ClaimID: "claim-1", ApproverID: cfoID, Status: entity.ActionApproved}},
		},
	}
	engine := newTestEngine(hybridStore(`{"specificApproverId": "`+cfoID+`", "usePercentage": true, "requiredPercentage": 60}`), history)
	claim := testClaim(strPtr("wf-hyb"), intPtr(1))

	// One recorded approval plus this action is 2 of 3 resolved approver
	// slots (manager step: 1, admin step: 2), 66.7% >= 60%.
	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
}

func TestHybrid_SatisfiedGateFallsThroughToSequential(t *testing.T) {
	history := &fakeHistoryReader{
		entries: map[string][]entity.ApprovalHistory{
			"claim-1": {{ClaimID: "claim-1", ApproverID: cfoID, Status: entity.ActionApproved}},
		},
	}
	engine := newTestEngine(hybridStore(`{"specificApproverId": "`+cfoID+`"}`), history)
	claim := testClaim(strPtr("wf-hyb"), intPtr(1))

	decision, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, decision.Outcome)
	assert.Equal(t, 2, decision.NextStepNumber)
}

func TestHybrid_NoGateConfiguredBehavesSequentially(t *testing.T) {
	engine := newTestEngine(hybridStore(""), nil)
	claim := testClaim(strPtr("wf-hyb"), intPtr(2))

	decision, err := engine.Evaluate(context.Background(), claim, adminID, entity.ActionApproved)

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, decision.Outcome)
}

func TestEvaluate_IsPure(t *testing.T) {
	engine := newTestEngine(percentageStore(`{"requiredPercentage": 50}`), nil)
	claim := testClaim(strPtr("wf-pct"), intPtr(1))

	first, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)
	require.NoError(t, err)
	second, err := engine.Evaluate(context.Background(), claim, managerID, entity.ActionApproved)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, entity.ClaimStatusPending, claim.Status)
	assert.Equal(t, 1, *claim.CurrentStepNumber)
}

func TestEvaluate_UnknownActionStatus(t *testing.T) {
	engine := newTestEngine(nil, nil)

	_, err := engine.Evaluate(context.Background(), testClaim(nil, nil), managerID, "MAYBE")

	assert.Error(t, err)
}

func TestEvaluate_NilClaim(t *testing.T) {
	engine := newTestEngine(nil, nil)

	_, err := engine.Evaluate(context.Background(), nil, managerID, entity.ActionApproved)

	assert.Error(t, err)
}
