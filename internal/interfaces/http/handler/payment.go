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

// PaymentHandler handles payment and payment application API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService     *billingapp.PaymentService
	applicationService *billingapp.PaymentApplicationService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(
	paymentService *billingapp.PaymentService,
	applicationService *billingapp.PaymentApplicationService,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService:     paymentService,
		applicationService: applicationService,
	}
}

// ===================== Request/Response DTOs =====================

// CreatePaymentRequest represents a payment creation request
type CreatePaymentRequest struct {
	CustomerID       string            `json:"customer_id" binding:"required,uuid"`
	AuthorizedAmount float64           `json:"authorized_amount" binding:"required,gt=0"`
	Currency         string            `json:"currency" binding:"omitempty,len=3"`
	Method           string            `json:"method" binding:"required,oneof=CARD BANK_TRANSFER WALLET CASH"`
	Instrument       map[string]string `json:"instrument,omitempty"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                string                `json:"id"`
	PaymentNumber     string                `json:"payment_number"`
	CustomerID        string                `json:"customer_id"`
	AuthorizedAmount  float64               `json:"authorized_amount"`
	AppliedAmount     float64               `json:"applied_amount"`
	RemainingCapacity float64               `json:"remaining_capacity"`
	Currency          string                `json:"currency"`
	Method            string                `json:"method"`
	Instrument        map[string]string     `json:"instrument,omitempty"`
	Transactions      []TransactionResponse `json:"transactions,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Version           int                   `json:"version"`
}

// ApplyPaymentRequest represents a request to apply a payment to an invoice
type ApplyPaymentRequest struct {
	InvoiceID            string  `json:"invoice_id" binding:"required,uuid"`
	Amount               float64 `json:"amount" binding:"required,gt=0"`
	Description          string  `json:"description,omitempty" binding:"max=500"`
	SuppressNotification bool    `json:"suppress_notification,omitempty"`
}

// RefundPaymentRequest represents a request to refund applied funds
type RefundPaymentRequest struct {
	InvoiceID            string  `json:"invoice_id" binding:"required,uuid"`
	Amount               float64 `json:"amount" binding:"required,gt=0"`
	Description          string  `json:"description,omitempty" binding:"max=500"`
	SuppressNotification bool    `json:"suppress_notification,omitempty"`
}

// VoidTransactionRequest represents a request to reverse a prior ledger entry
type VoidTransactionRequest struct {
	InvoiceID            string `json:"invoice_id" binding:"required,uuid"`
	TransactionID        string `json:"transaction_id" binding:"required,uuid"`
	Description          string `json:"description,omitempty" binding:"max=500"`
	SuppressNotification bool   `json:"suppress_notification,omitempty"`
}

// ApplicationResultResponse represents the outcome of a ledger operation
type ApplicationResultResponse struct {
	Transaction       TransactionResponse `json:"transaction"`
	InvoiceID         string              `json:"invoice_id"`
	PaymentID         string              `json:"payment_id"`
	InvoiceBalance    float64             `json:"invoice_balance"`
	InvoiceStatus     string              `json:"invoice_status"`
	AppliedAmount     float64             `json:"applied_amount"`
	RemainingCapacity float64             `json:"remaining_capacity"`
}

func toPaymentResponse(payment *billing.Payment, includeTransactions bool) PaymentResponse {
	resp := PaymentResponse{
		ID:                payment.ID.String(),
		PaymentNumber:     payment.PaymentNumber,
		CustomerID:        payment.CustomerID.String(),
		AuthorizedAmount:  payment.AuthorizedAmount.InexactFloat64(),
		AppliedAmount:     payment.AppliedAmount().Amount().InexactFloat64(),
		RemainingCapacity: payment.RemainingCapacity().Amount().InexactFloat64(),
		Currency:          string(payment.Currency),
		Method:            payment.Method.String(),
		Instrument:        payment.Instrument,
		CreatedAt:         payment.CreatedAt,
		UpdatedAt:         payment.UpdatedAt,
		Version:           payment.GetVersion(),
	}

	if includeTransactions {
		resp.Transactions = make([]TransactionResponse, 0, len(payment.Transactions))
		for i := range payment.Transactions {
			resp.Transactions = append(resp.Transactions, toTransactionResponse(&payment.Transactions[i]))
		}
	}

	return resp
}

func toApplicationResultResponse(result *billingapp.ApplicationResult) ApplicationResultResponse {
	return ApplicationResultResponse{
		Transaction:       toTransactionResponse(result.Transaction),
		InvoiceID:         result.InvoiceID.String(),
		PaymentID:         result.PaymentID.String(),
		InvoiceBalance:    result.InvoiceBalance.Amount().InexactFloat64(),
		InvoiceStatus:     result.InvoiceStatus.String(),
		AppliedAmount:     result.AppliedAmount.Amount().InexactFloat64(),
		RemainingCapacity: result.RemainingCap.Amount().InexactFloat64(),
	}
}

// ===================== Handlers =====================

// CreatePayment handles POST /billing/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), billingapp.CreatePaymentRequest{
		CustomerID:       customerID,
		AuthorizedAmount: decimal.NewFromFloat(req.AuthorizedAmount),
		Currency:         valueobject.Currency(req.Currency),
		Method:           billing.PaymentMethod(req.Method),
		Instrument:       req.Instrument,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(payment, false))
}

// GetPayment handles GET /billing/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment, true))
}

// ListPayments handles GET /billing/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
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

	page, err := h.paymentService.ListPayments(c.Request.Context(), filter, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]PaymentResponse, 0, len(page.Items))
	for _, payment := range page.Items {
		responses = append(responses, toPaymentResponse(payment, false))
	}

	h.SuccessWithMeta(c, responses, page.Total, page.Page, page.PageSize)
}

// ApplyPayment handles POST /billing/payments/:id/apply
func (h *PaymentHandler) ApplyPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	result, err := h.applicationService.Apply(c.Request.Context(), billingapp.ApplyRequest{
		PaymentID: paymentID,
		InvoiceID: invoiceID,
		Amount:    decimal.NewFromFloat(req.Amount),
		Options: billingapp.OperationOptions{
			Description:          req.Description,
			SuppressNotification: req.SuppressNotification,
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toApplicationResultResponse(result))
}

// RefundPayment handles POST /billing/payments/:id/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	result, err := h.applicationService.Refund(c.Request.Context(), billingapp.RefundRequest{
		PaymentID: paymentID,
		InvoiceID: invoiceID,
		Amount:    decimal.NewFromFloat(req.Amount),
		Options: billingapp.OperationOptions{
			Description:          req.Description,
			SuppressNotification: req.SuppressNotification,
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toApplicationResultResponse(result))
}

// VoidTransaction handles POST /billing/payments/:id/void
func (h *PaymentHandler) VoidTransaction(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req VoidTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	result, err := h.applicationService.Void(c.Request.Context(), billingapp.VoidRequest{
		PaymentID:     paymentID,
		InvoiceID:     invoiceID,
		TransactionID: transactionID,
		Options: billingapp.OperationOptions{
			Description:          req.Description,
			SuppressNotification: req.SuppressNotification,
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toApplicationResultResponse(result))
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/billing/payments")
	{
		payments.POST("", h.CreatePayment)
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/apply", h.ApplyPayment)
		payments.POST("/:id/refund", h.RefundPayment)
		payments.POST("/:id/void", h.VoidTransaction)
	}
}
