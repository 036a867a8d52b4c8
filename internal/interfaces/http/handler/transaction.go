package handler

import (
	"time"

	reconapp "github.com/contaflow/backend/internal/application/reconciliation"
	domain "github.com/contaflow/backend/internal/domain/reconciliation"
	"github.com/contaflow/backend/internal/domain/shared"
	"github.com/contaflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TransactionHandler handles bank transaction HTTP requests
type TransactionHandler struct {
	BaseHandler
	transactions *reconapp.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactions *reconapp.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// IngestTransactionRequest is the request body for recording one
// statement line. Amount is signed: positive for credits, negative for
// debits.
type IngestTransactionRequest struct {
	TransactionDate string  `json:"transaction_date" binding:"required"`
	Amount          float64 `json:"amount" binding:"required"`
	Description     string  `json:"description" binding:"required,min=1"`
	BankReference   string  `json:"bank_reference" binding:"max=100"`
}

// ListTransactionsRequest holds the transaction list query parameters
type ListTransactionsRequest struct {
	dto.ListRequest
	Statuses    []string `form:"status" binding:"omitempty,dive,oneof=UNMATCHED SUGGESTED MATCHED_AUTO MATCHED_MANUAL"`
	CreditsOnly bool     `form:"credits_only"`
	DateFrom    string   `form:"date_from"`
	DateTo      string   `form:"date_to"`
}

// Ingest records a statement line and extracts its payer identifiers
func (h *TransactionHandler) Ingest(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req IngestTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	transactionDate, err := time.Parse("2006-01-02", req.TransactionDate)
	if err != nil {
		h.BadRequest(c, "Invalid transaction date, expected YYYY-MM-DD")
		return
	}

	tx, err := h.transactions.Ingest(c.Request.Context(), tenantID, reconapp.IngestTransactionInput{
		TransactionDate: transactionDate,
		Amount:          decimal.NewFromFloat(req.Amount),
		Description:     req.Description,
		BankReference:   req.BankReference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tx)
}

// Get returns one transaction by ID
func (h *TransactionHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}
	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	tx, err := h.transactions.Get(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// List returns a page of transactions
func (h *TransactionHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	req.Normalize()

	filter := domain.TransactionFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			SortBy:   req.SortBy,
			SortDesc: req.SortDesc,
		},
		CreditsOnly: req.CreditsOnly,
	}
	for _, status := range req.Statuses {
		filter.Statuses = append(filter.Statuses, domain.MatchStatus(status))
	}
	if req.DateFrom != "" {
		from, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			h.BadRequest(c, "Invalid date_from, expected YYYY-MM-DD")
			return
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			h.BadRequest(c, "Invalid date_to, expected YYYY-MM-DD")
			return
		}
		filter.DateTo = &to
	}

	page, err := h.transactions.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListSuggested returns the transactions waiting for operator review
func (h *TransactionHandler) ListSuggested(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	req.Normalize()

	page, err := h.transactions.ListSuggested(c.Request.Context(), tenantID, shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		SortBy:   req.SortBy,
		SortDesc: req.SortDesc,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// RegisterRoutes wires the transaction endpoints
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.Ingest)
		transactions.GET("", h.List)
		transactions.GET("/suggested", h.ListSuggested)
		transactions.GET("/:id", h.Get)
	}
}
