package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/expense-approval/internal/application/service"
	"github.com/clearledger/expense-approval/internal/domain/approval"
	"github.com/clearledger/expense-approval/internal/domain/entity"
)

// Stub services; each call returns the configured value or error.

type stubClaimService struct {
	claim    *entity.Claim
	claims   []entity.Claim
	history  []entity.ApprovalHistory
	decision *approval.Decision
	err      error
}

func (s *stubClaimService) SubmitClaim(ctx context.Context, in service.SubmitClaimInput) (*entity.Claim, error) {
	return s.claim, s.err
}

func (s *stubClaimService) GetClaim(ctx context.Context, id string) (*entity.Claim, error) {
	return s.claim, s.err
}

func (s *stubClaimService) ListClaims(ctx context.Context, companyID string, limit, offset int) ([]entity.Claim, error) {
	return s.claims, s.err
}

func (s *stubClaimService) GetHistory(ctx context.Context, claimID string) ([]entity.ApprovalHistory, error) {
	return s.history, s.err
}

func (s *stubClaimService) Act(ctx context.Context, claimID string, in service.ActionInput) (*approval.Decision, error) {
	return s.decision, s.err
}

type stubWorkflowService struct {
	workflow *service.WorkflowWithSteps
	err      error
}

func (s *stubWorkflowService) CreateWorkflow(ctx context.Context, in service.CreateWorkflowInput) (*service.WorkflowWithSteps, error) {
	return s.workflow, s.err
}

func (s *stubWorkflowService) GetWorkflow(ctx context.Context, id string) (*service.WorkflowWithSteps, error) {
	return s.workflow, s.err
}

type stubUserService struct {
	user *entity.User
	err  error
}

func (s *stubUserService) CreateUser(ctx context.Context, in service.CreateUserInput) (*entity.User, error) {
	return s.user, s.err
}

func (s *stubUserService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return s.user, s.err
}

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(claims *stubClaimService) *Server {
	if claims == nil {
		claims = &stubClaimService{}
	}
	return NewServer(DefaultServerConfig(), claims, &stubWorkflowService{}, &stubUserService{}, testLogger{})
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	w := doRequest(t, newTestServer(nil), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestActOnClaim_StatusMapping(t *testing.T) {
	body := `{"approver_id": "mgr-1", "status": "APPROVED"}`

	tests := []struct {
		name     string
		service  *stubClaimService
		wantCode int
	}{
		{
			name:     "claim not found",
			service:  &stubClaimService{err: service.ErrClaimNotFound},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unauthorized approver",
			service:  &stubClaimService{err: service.ErrUnauthorizedApprover},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "already resolved",
			service:  &stubClaimService{err: service.ErrClaimResolved},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid action",
			service:  &stubClaimService{err: service.ErrInvalidAction},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "internal failure",
			service:  &stubClaimService{err: assert.AnError},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, newTestServer(tt.service), http.MethodPost, "/api/v1/claims/claim-1/actions", body)

			assert.Equal(t, tt.wantCode, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestActOnClaim_ReturnsDecision(t *testing.T) {
	claims := &stubClaimService{
		decision: &approval.Decision{
			Outcome:   approval.OutcomeApproved,
			Approved:  true,
			Completed: true,
			Reason:    "all approval steps completed",
		},
	}

	body := `{"approver_id": "adm-1", "status": "APPROVED", "comment": "looks good"}`
	w := doRequest(t, newTestServer(claims), http.MethodPost, "/api/v1/claims/claim-1/actions", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestActOnClaim_MissingFields(t *testing.T) {
	w := doRequest(t, newTestServer(nil), http.MethodPost, "/api/v1/claims/claim-1/actions", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitClaim_RejectsNonPositiveAmount(t *testing.T) {
	body := `{"owner_id": "emp-1", "company_id": "acme", "amount_cents": 0, "currency": "USD"}`
	w := doRequest(t, newTestServer(nil), http.MethodPost, "/api/v1/claims", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetClaim_NotFound(t *testing.T) {
	claims := &stubClaimService{err: service.ErrClaimNotFound}
	w := doRequest(t, newTestServer(claims), http.MethodGet, "/api/v1/claims/ghost", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListClaims_RequiresCompanyID(t *testing.T) {
	w := doRequest(t, newTestServer(nil), http.MethodGet, "/api/v1/claims", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
