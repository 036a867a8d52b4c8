package handler

import (
	reconapp "github.com/contaflow/backend/internal/application/reconciliation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MatchRuleHandler handles learned payer-rule HTTP requests
type MatchRuleHandler struct {
	BaseHandler
	resolution *reconapp.AccountResolutionService
}

// NewMatchRuleHandler creates a new MatchRuleHandler
func NewMatchRuleHandler(resolution *reconapp.AccountResolutionService) *MatchRuleHandler {
	return &MatchRuleHandler{resolution: resolution}
}

// LearnRuleRequest is the request body for teaching a payer rule
type LearnRuleRequest struct {
	PayerName   string `json:"payer_name" binding:"required,min=1,max=200"`
	AccountCode string `json:"account_code" binding:"required"`
	ClientID    string `json:"client_id" binding:"omitempty,uuid"`
}

// Learn records a payer-name-to-account rule
func (h *MatchRuleHandler) Learn(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req LearnRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	var clientID *uuid.UUID
	if req.ClientID != "" {
		id, err := uuid.Parse(req.ClientID)
		if err != nil {
			h.BadRequest(c, "Invalid client ID format")
			return
		}
		clientID = &id
	}

	rule, err := h.resolution.LearnRule(c.Request.Context(), tenantID, req.PayerName, req.AccountCode, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rule)
}

// List returns every learned rule of the tenant
func (h *MatchRuleHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	rules, err := h.resolution.ListRules(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rules)
}

// Delete removes a learned rule
func (h *MatchRuleHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	ruleID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	if err := h.resolution.ForgetRule(c.Request.Context(), tenantID, ruleID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes wires the match rule endpoints
func (h *MatchRuleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rules := rg.Group("/match-rules")
	{
		rules.POST("", h.Learn)
		rules.GET("", h.List)
		rules.DELETE("/:id", h.Delete)
	}
}
