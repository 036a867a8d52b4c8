package handler

import (
	"time"

	billingapp "github.com/contaflow/backend/internal/application/billing"
	"github.com/contaflow/backend/internal/domain/billing"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/domain/shared/valueobject"
	"github.com/contaflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice HTTP requests
type InvoiceHandler struct {
	BaseHandler
	invoices *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// CreateInvoiceRequest is the request body for issuing an invoice.
// Competence uses the MM/YYYY billing-period notation.
type CreateInvoiceRequest struct {
	InvoiceNumber string  `json:"invoice_number" binding:"required,min=1,max=50"`
	ClientID      string  `json:"client_id" binding:"required,uuid"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	DueDate       string  `json:"due_date" binding:"required"`
	Competence    string  `json:"competence" binding:"required,competence"`
}

// SettleInvoiceRequest is the request body for a manual settlement
type SettleInvoiceRequest struct {
	PaidDate string `json:"paid_date" binding:"required"`
}

// ListInvoicesRequest holds the invoice list query parameters
type ListInvoicesRequest struct {
	dto.ListRequest
	ClientID    string   `form:"client_id" binding:"omitempty,uuid"`
	Statuses    []string `form:"status" binding:"omitempty,dive,oneof=PENDING PARTIAL PAID"`
	Competence  string   `form:"competence"`
	DueDateFrom string   `form:"due_date_from"`
	DueDateTo   string   `form:"due_date_to"`
	Overdue     bool     `form:"overdue"`
}

// Create issues a new invoice
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		h.BadRequest(c, "Invalid due date, expected YYYY-MM-DD")
		return
	}
	competence, err := valueobject.ParseCompetence(req.Competence)
	if err != nil {
		h.BadRequest(c, "Invalid competence, expected MM/YYYY")
		return
	}

	invoice, err := h.invoices.Create(c.Request.Context(), tenantID, billingapp.CreateInvoiceInput{
		InvoiceNumber: req.InvoiceNumber,
		ClientID:      clientID,
		Amount:        decimal.NewFromFloat(req.Amount),
		DueDate:       dueDate,
		Competence:    competence,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// Get returns one invoice by ID
func (h *InvoiceHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	invoiceID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoices.Get(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// List returns a page of invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	req.Normalize()

	filter := billing.InvoiceFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			SortBy:   req.SortBy,
			SortDesc: req.SortDesc,
		},
	}
	for _, status := range req.Statuses {
		filter.Statuses = append(filter.Statuses, billing.InvoiceStatus(status))
	}
	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			h.BadRequest(c, "Invalid client ID format")
			return
		}
		filter.ClientID = &clientID
	}
	if req.Competence != "" {
		competence, err := valueobject.ParseCompetence(req.Competence)
		if err != nil {
			h.BadRequest(c, "Invalid competence, expected MM/YYYY")
			return
		}
		filter.Competence = &competence
	}
	if req.DueDateFrom != "" {
		from, err := time.Parse("2006-01-02", req.DueDateFrom)
		if err != nil {
			h.BadRequest(c, "Invalid due_date_from, expected YYYY-MM-DD")
			return
		}
		filter.DueDateFrom = &from
	}
	if req.DueDateTo != "" {
		to, err := time.Parse("2006-01-02", req.DueDateTo)
		if err != nil {
			h.BadRequest(c, "Invalid due_date_to, expected YYYY-MM-DD")
			return
		}
		filter.DueDateTo = &to
	}
	if req.Overdue {
		now := time.Now()
		filter.OverdueAt = &now
	}

	page, err := h.invoices.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Settle marks an invoice paid by an operator action outside
// reconciliation
func (h *InvoiceHandler) Settle(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	invoiceID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req SettleInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	paidDate, err := time.Parse("2006-01-02", req.PaidDate)
	if err != nil {
		h.BadRequest(c, "Invalid paid date, expected YYYY-MM-DD")
		return
	}

	invoice, err := h.invoices.SettleManually(c.Request.Context(), tenantID, invoiceID, paidDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Delete removes an unpaid invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	invoiceID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoices.Delete(c.Request.Context(), tenantID, invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes wires the invoice endpoints
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/:id", h.Get)
		invoices.POST("/:id/settle", h.Settle)
		invoices.DELETE("/:id", h.Delete)
	}
}
