package handler

import (
	reconapp "github.com/contaflow/backend/internal/application/reconciliation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler handles matching flow HTTP requests
type ReconciliationHandler struct {
	BaseHandler
	reconcile *reconapp.ReconcileService
	batch     *reconapp.BatchReconcileService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconcile *reconapp.ReconcileService, batch *reconapp.BatchReconcileService) *ReconciliationHandler {
	return &ReconciliationHandler{reconcile: reconcile, batch: batch}
}

// ConfirmMatchRequest is the request body for confirming a match
type ConfirmMatchRequest struct {
	InvoiceIDs []string `json:"invoice_ids" binding:"required,min=1,dive,uuid"`
}

// ReverseMatchRequest is the request body for reversing a match
type ReverseMatchRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// Process runs the matching flow for one transaction
func (h *ReconciliationHandler) Process(c *gin.Context) {
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

	result, err := h.reconcile.ProcessTransaction(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Confirm applies a reviewed suggestion, or an operator-picked invoice
// set, as a manual match
func (h *ReconciliationHandler) Confirm(c *gin.Context) {
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

	var req ConfirmMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	invoiceIDs := make([]uuid.UUID, 0, len(req.InvoiceIDs))
	for _, raw := range req.InvoiceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID format")
			return
		}
		invoiceIDs = append(invoiceIDs, id)
	}

	result, err := h.reconcile.ConfirmMatch(c.Request.Context(), tenantID, transactionID, invoiceIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject discards pending suggestions and returns the transaction to
// the unmatched pool
func (h *ReconciliationHandler) Reject(c *gin.Context) {
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

	if err := h.reconcile.RejectSuggestions(c.Request.Context(), tenantID, transactionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Reverse undoes a settled match, reopening its invoices
func (h *ReconciliationHandler) Reverse(c *gin.Context) {
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

	var req ReverseMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	if err := h.reconcile.ReverseMatch(c.Request.Context(), tenantID, transactionID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Settlement reconstructs which invoices a consolidated credit covers
func (h *ReconciliationHandler) Settlement(c *gin.Context) {
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

	result, err := h.reconcile.ReconstructSettlement(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RunBatch processes every unmatched credit in the trailing window
func (h *ReconciliationHandler) RunBatch(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Tenant identification required")
		return
	}

	report, err := h.batch.Run(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// RegisterRoutes wires the reconciliation endpoints
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	recon := rg.Group("/reconciliation")
	{
		recon.POST("/batch", h.RunBatch)
		recon.POST("/transactions/:id/process", h.Process)
		recon.POST("/transactions/:id/confirm", h.Confirm)
		recon.POST("/transactions/:id/reject", h.Reject)
		recon.POST("/transactions/:id/reverse", h.Reverse)
		recon.GET("/transactions/:id/settlement", h.Settlement)
	}
}
