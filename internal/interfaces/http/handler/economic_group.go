package handler

import (
	billingapp "github.com/contaflow/backend/internal/application/billing"
	reconapp "github.com/contaflow/backend/internal/application/reconciliation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EconomicGroupHandler handles economic group HTTP requests
type EconomicGroupHandler struct {
	BaseHandler
	groups *billingapp.GroupService
	audit  *reconapp.GroupAuditService
}

// NewEconomicGroupHandler creates a new EconomicGroupHandler
func NewEconomicGroupHandler(groups *billingapp.GroupService, audit *reconapp.GroupAuditService) *EconomicGroupHandler {
	return &EconomicGroupHandler{groups: groups, audit: audit}
}

// CreateGroupRequest is the request body for forming an economic group
type CreateGroupRequest struct {
	Name              string `json:"name" binding:"required,min=1,max=200"`
	MainPayerClientID string `json:"main_payer_client_id" binding:"required,uuid"`
	PaymentDay        int    `json:"payment_day" binding:"required,min=1,max=31"`
}

// GroupMemberRequest is the request body for membership changes
type GroupMemberRequest struct {
	ClientID string `json:"client_id" binding:"required,uuid"`
}

// Create forms a new economic group
func (h *EconomicGroupHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	payerID, err := uuid.Parse(req.MainPayerClientID)
	if err != nil {
		h.BadRequest(c, "Invalid main payer client ID format")
		return
	}

	group, err := h.groups.Create(c.Request.Context(), tenantID, billingapp.CreateGroupInput{
		Name:              req.Name,
		MainPayerClientID: payerID,
		PaymentDay:        req.PaymentDay,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, group)
}

// Get returns one group by ID
func (h *EconomicGroupHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	groupID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	group, err := h.groups.Get(c.Request.Context(), tenantID, groupID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, group)
}

// List returns every group of the tenant
func (h *EconomicGroupHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	groups, err := h.groups.ListAll(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, groups)
}

// AddMember enrolls a client in the group
func (h *EconomicGroupHandler) AddMember(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	groupID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	var req GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	group, err := h.groups.AddMember(c.Request.Context(), tenantID, groupID, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, group)
}

// RemoveMember drops a client from the group
func (h *EconomicGroupHandler) RemoveMember(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	groupID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}
	clientID, err := parseUUIDParam(c, "clientId")
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	group, err := h.groups.RemoveMember(c.Request.Context(), tenantID, groupID, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, group)
}

// Dissolve deletes the group and detaches its members
func (h *EconomicGroupHandler) Dissolve(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	groupID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid group ID format")
		return
	}

	if err := h.groups.Dissolve(c.Request.Context(), tenantID, groupID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Audit sweeps every group of the tenant for invariant violations,
// repairing fee-total drift and reporting the rest
func (h *EconomicGroupHandler) Audit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	report, err := h.audit.Audit(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// RegisterRoutes wires the economic group endpoints
func (h *EconomicGroupHandler) RegisterRoutes(rg *gin.RouterGroup) {
	groups := rg.Group("/economic-groups")
	{
		groups.POST("", h.Create)
		groups.GET("", h.List)
		groups.POST("/audit", h.Audit)
		groups.GET("/:id", h.Get)
		groups.POST("/:id/members", h.AddMember)
		groups.DELETE("/:id/members/:clientId", h.RemoveMember)
		groups.DELETE("/:id", h.Dissolve)
	}
}
