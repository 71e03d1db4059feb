package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingapp "github.com/storefront/backend/internal/application/billing"
	"github.com/storefront/backend/internal/domain/billing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// ===================== Request/Response DTOs =====================

// CreateInvoiceLineItemRequest represents one invoice line in a create request
type CreateInvoiceLineItemRequest struct {
	SKU       string  `json:"sku" binding:"required,max=64"`
	Name      string  `json:"name" binding:"required,max=255"`
	Quantity  int64   `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
}

// CreateInvoiceRequest represents an invoice creation request
type CreateInvoiceRequest struct {
	CustomerID string                         `json:"customer_id" binding:"required,uuid"`
	Currency   string                         `json:"currency" binding:"omitempty,len=3"`
	LineItems  []CreateInvoiceLineItemRequest `json:"line_items" binding:"required,min=1,dive"`
}

// InvoiceLineItemResponse represents an invoice line in API responses
type InvoiceLineItemResponse struct {
	ID        string  `json:"id"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            string                    `json:"id"`
	InvoiceNumber string                    `json:"invoice_number"`
	CustomerID    string                    `json:"customer_id"`
	Currency      string                    `json:"currency"`
	LineItems     []InvoiceLineItemResponse `json:"line_items"`
	Total         float64                   `json:"total"`
	AppliedAmount float64                   `json:"applied_amount"`
	Balance       float64                   `json:"balance"`
	Status        string                    `json:"status"`
	Transactions  []TransactionResponse     `json:"transactions,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
	Version       int                       `json:"version"`
}

// InvoiceBalanceResponse carries figures recomputed from the ledger
type InvoiceBalanceResponse struct {
	InvoiceID     string  `json:"invoice_id"`
	Total         float64 `json:"total"`
	AppliedAmount float64 `json:"applied_amount"`
	Balance       float64 `json:"balance"`
	Status        string  `json:"status"`
	Transactions  int     `json:"transactions"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID          string    `json:"id"`
	InvoiceID   string    `json:"invoice_id"`
	PaymentID   string    `json:"payment_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Direction   string    `json:"direction"`
	Kind        string    `json:"kind"`
	Description string    `json:"description,omitempty"`
	ReversesID  *string   `json:"reverses_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTransactionResponse(tx *billing.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          tx.ID.String(),
		InvoiceID:   tx.InvoiceID.String(),
		PaymentID:   tx.PaymentID.String(),
		Amount:      tx.Amount.InexactFloat64(),
		Currency:    string(tx.Currency),
		Direction:   tx.Direction.String(),
		Kind:        tx.Kind.String(),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
	if tx.ReversesID != nil {
		reverses := tx.ReversesID.String()
		resp.ReversesID = &reverses
	}
	return resp
}

func toInvoiceResponse(invoice *billing.Invoice, includeTransactions bool) InvoiceResponse {
	items := make([]InvoiceLineItemResponse, 0, len(invoice.LineItems))
	for _, li := range invoice.LineItems {
		items = append(items, InvoiceLineItemResponse{
			ID:        li.ID.String(),
			SKU:       li.SKU,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice.InexactFloat64(),
			Total:     li.Total().InexactFloat64(),
		})
	}

	resp := InvoiceResponse{
		ID:            invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerID:    invoice.CustomerID.String(),
		Currency:      string(invoice.Currency),
		LineItems:     items,
		Total:         invoice.Total().Amount().InexactFloat64(),
		AppliedAmount: invoice.AppliedAmount().Amount().InexactFloat64(),
		Balance:       invoice.Balance().Amount().InexactFloat64(),
		Status:        invoice.Status().String(),
		CreatedAt:     invoice.CreatedAt,
		UpdatedAt:     invoice.UpdatedAt,
		Version:       invoice.GetVersion(),
	}

	if includeTransactions {
		resp.Transactions = make([]TransactionResponse, 0, len(invoice.Transactions))
		for i := range invoice.Transactions {
			resp.Transactions = append(resp.Transactions, toTransactionResponse(&invoice.Transactions[i]))
		}
	}

	return resp
}

// ===================== Handlers =====================

// CreateInvoice handles POST /billing/invoices
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	items := make([]billingapp.CreateInvoiceLineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, billingapp.CreateInvoiceLineItem{
			SKU:       li.SKU,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: decimal.NewFromFloat(li.UnitPrice),
		})
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), billingapp.CreateInvoiceRequest{
		CustomerID: customerID,
		Currency:   valueobject.Currency(req.Currency),
		LineItems:  items,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice, false))
}

// GetInvoice handles GET /billing/invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice, true))
}

// ListInvoices handles GET /billing/invoices
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	var customerID *uuid.UUID
	if raw := c.Query("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID format")
			return
		}
		customerID = &id
	}

	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
		Search:   listReq.Search,
	}

	page, err := h.invoiceService.ListInvoices(c.Request.Context(), filter, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]InvoiceResponse, 0, len(page.Items))
	for _, item := range page.Items {
		resp := toInvoiceResponse(item.Invoice, false)
		// List rows do not carry transactions; derived figures come from
		// the balance snapshot instead.
		resp.Total = item.Balance.Total.InexactFloat64()
		resp.AppliedAmount = item.Balance.AppliedAmount.InexactFloat64()
		resp.Balance = item.Balance.Balance.InexactFloat64()
		resp.Status = item.Balance.Status
		responses = append(responses, resp)
	}

	h.SuccessWithMeta(c, responses, page.Total, page.Page, page.PageSize)
}

// GetInvoiceBalance handles GET /billing/invoices/:id/balance
func (h *InvoiceHandler) GetInvoiceBalance(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	balance, err := h.invoiceService.GetInvoiceBalance(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, InvoiceBalanceResponse{
		InvoiceID:     balance.InvoiceID.String(),
		Total:         balance.Total.Amount().InexactFloat64(),
		AppliedAmount: balance.AppliedAmount.Amount().InexactFloat64(),
		Balance:       balance.Balance.Amount().InexactFloat64(),
		Status:        balance.Status.String(),
		Transactions:  balance.Transactions,
	})
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/billing/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.GET("/:id/balance", h.GetInvoiceBalance)
	}
}
