package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/expense-approval/internal/application/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	claimService    service.ClaimService
	workflowService service.WorkflowService
	userService     service.UserService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	claimService service.ClaimService,
	workflowService service.WorkflowService,
	userService service.UserService,
	logger Logger,
) *Handlers {
	return &Handlers{
		claimService:    claimService,
		workflowService: workflowService,
		userService:     userService,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateUserRequest represents the payload for registering a user
type CreateUserRequest struct {
	CompanyID string  `json:"company_id" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Name      string  `json:"name" binding:"required"`
	Role      string  `json:"role" binding:"required"`
	ManagerID *string `json:"manager_id"`
}

// CreateWorkflowStepRequest represents one step in a workflow creation payload
type CreateWorkflowStepRequest struct {
	ApproverRole   *string `json:"approver_role"`
	ApproverUserID *string `json:"approver_user_id"`
}

// CreateWorkflowRequest represents the payload for creating a workflow
type CreateWorkflowRequest struct {
	CompanyID  string                      `json:"company_id" binding:"required"`
	Name       string                      `json:"name" binding:"required"`
	RuleType   string                      `json:"rule_type" binding:"required"`
	RuleConfig map[string]interface{}      `json:"rule_config"`
	Steps      []CreateWorkflowStepRequest `json:"steps"`
}

// SubmitClaimRequest represents the payload for submitting a claim
type SubmitClaimRequest struct {
	OwnerID     string  `json:"owner_id" binding:"required"`
	CompanyID   string  `json:"company_id" binding:"required"`
	Description string  `json:"description"`
	AmountCents int64   `json:"amount_cents" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required"`
	WorkflowID  *string `json:"workflow_id"`
}

// ActionRequest represents an approve/reject action on a claim
type ActionRequest struct {
	ApproverID string `json:"approver_id" binding:"required"`
	Status     string `json:"status" binding:"required"`
	Comment    string `json:"comment"`
}

// ListClaimsRequest represents query parameters for listing claims
type ListClaimsRequest struct {
	CompanyID string `form:"company_id" binding:"required"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateUser handles POST /api/v1/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), service.CreateUserInput{
		CompanyID: req.CompanyID,
		Email:     req.Email,
		Name:      req.Name,
		Role:      req.Role,
		ManagerID: req.ManagerID,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// GetUser handles GET /api/v1/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "user not found"})
			return
		}
		h.logger.Error("Failed to get user", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// CreateWorkflow handles POST /api/v1/workflows
func (h *Handlers) CreateWorkflow(c *gin.Context) {
	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	steps := make([]service.StepInput, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, service.StepInput{
			ApproverRole:   s.ApproverRole,
			ApproverUserID: s.ApproverUserID,
		})
	}

	workflow, err := h.workflowService.CreateWorkflow(c.Request.Context(), service.CreateWorkflowInput{
		CompanyID:  req.CompanyID,
		Name:       req.Name,
		RuleType:   req.RuleType,
		RuleConfig: req.RuleConfig,
		Steps:      steps,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: workflow})
}

// GetWorkflow handles GET /api/v1/workflows/:id
func (h *Handlers) GetWorkflow(c *gin.Context) {
	workflow, err := h.workflowService.GetWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrWorkflowNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "workflow not found"})
			return
		}
		h.logger.Error("Failed to get workflow", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: workflow})
}

// SubmitClaim handles POST /api/v1/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	claim, err := h.claimService.SubmitClaim(c.Request.Context(), service.SubmitClaimInput{
		OwnerID:     req.OwnerID,
		CompanyID:   req.CompanyID,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		WorkflowID:  req.WorkflowID,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: claim})
}

// ListClaims handles GET /api/v1/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	var req ListClaimsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	claims, err := h.claimService.ListClaims(c.Request.Context(), req.CompanyID, req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("Failed to list claims", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claims})
}

// GetClaim handles GET /api/v1/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	claim, err := h.claimService.GetClaim(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrClaimNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "claim not found"})
			return
		}
		h.logger.Error("Failed to get claim", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// GetClaimHistory handles GET /api/v1/claims/:id/history
func (h *Handlers) GetClaimHistory(c *gin.Context) {
	entries, err := h.claimService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get claim history", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// ActOnClaim handles POST /api/v1/claims/:id/actions
func (h *Handlers) ActOnClaim(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	decision, err := h.claimService.Act(c.Request.Context(), c.Param("id"), service.ActionInput{
		ApproverID: req.ApproverID,
		Status:     req.Status,
		Comment:    req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClaimNotFound):
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "claim not found"})
		case errors.Is(err, service.ErrUnauthorizedApprover):
			c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})
		case errors.Is(err, service.ErrClaimResolved), errors.Is(err, service.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		default:
			h.logger.Error("Failed to evaluate action", "error", err)
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: decision})
}
