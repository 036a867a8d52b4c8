package handler

import (
	billingapp "github.com/contaflow/backend/internal/application/billing"
	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientHandler handles client registry HTTP requests
type ClientHandler struct {
	BaseHandler
	clients *billingapp.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clients *billingapp.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// CreateClientRequest is the request body for registering a client
type CreateClientRequest struct {
	Name       string   `json:"name" binding:"required,min=1,max=200"`
	Document   string   `json:"document" binding:"required,taxid"`
	MonthlyFee float64  `json:"monthly_fee" binding:"min=0"`
	PaymentDay int      `json:"payment_day" binding:"required,min=1,max=31"`
	QSANames   []string `json:"qsa_names,omitempty"`
}

// UpdateClientRequest is the request body for partially updating a client
type UpdateClientRequest struct {
	Name       *string   `json:"name,omitempty"`
	MonthlyFee *float64  `json:"monthly_fee,omitempty"`
	PaymentDay *int      `json:"payment_day,omitempty"`
	QSANames   *[]string `json:"qsa_names,omitempty"`
	Active     *bool     `json:"active,omitempty"`
}

// ListClientsRequest holds the client list query parameters
type ListClientsRequest struct {
	dto.ListRequest
	Name         string `form:"name"`
	Document     string `form:"document"`
	DocumentType string `form:"document_type" binding:"omitempty,oneof=CNPJ CPF"`
	GroupID      string `form:"group_id" binding:"omitempty,uuid"`
	ActiveOnly   bool   `form:"active_only"`
}

// Create registers a new client
func (h *ClientHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	client, err := h.clients.Create(c.Request.Context(), tenantID, billingapp.CreateClientInput{
		Name:       req.Name,
		Document:   req.Document,
		MonthlyFee: decimal.NewFromFloat(req.MonthlyFee),
		PaymentDay: req.PaymentDay,
		QSANames:   req.QSANames,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, client)
}

// Get returns one client by ID
func (h *ClientHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	clientID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	client, err := h.clients.Get(c.Request.Context(), tenantID, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// List returns a page of clients
func (h *ClientHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req ListClientsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	req.Normalize()

	filter := billing.ClientFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			SortBy:   req.SortBy,
			SortDesc: req.SortDesc,
		},
		Name:         req.Name,
		Document:     req.Document,
		DocumentType: billing.DocumentType(req.DocumentType),
		ActiveOnly:   req.ActiveOnly,
	}
	if req.GroupID != "" {
		groupID, err := uuid.Parse(req.GroupID)
		if err != nil {
			h.BadRequest(c, "Invalid group ID format")
			return
		}
		filter.EconomicGroupID = &groupID
	}

	page, err := h.clients.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Update applies partial changes to a client
func (h *ClientHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	clientID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	input := billingapp.UpdateClientInput{
		Name:       req.Name,
		PaymentDay: req.PaymentDay,
		QSANames:   req.QSANames,
		Active:     req.Active,
	}
	if req.MonthlyFee != nil {
		fee := decimal.NewFromFloat(*req.MonthlyFee)
		input.MonthlyFee = &fee
	}

	client, err := h.clients.Update(c.Request.Context(), tenantID, clientID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Delete removes a client
func (h *ClientHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	clientID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	if err := h.clients.Delete(c.Request.Context(), tenantID, clientID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes wires the client endpoints
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	clients := rg.Group("/clients")
	{
		clients.POST("", h.Create)
		clients.GET("", h.List)
		clients.GET("/:id", h.Get)
		clients.PATCH("/:id", h.Update)
		clients.DELETE("/:id", h.Delete)
	}
}
