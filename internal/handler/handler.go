package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/nathanyu/account-ledger/internal/engine"
	"github.com/shopspring/decimal"
)

// LedgerService is the core the HTTP API drives
type LedgerService interface {
	CreateAccount(ctx context.Context, id string, balance decimal.Decimal) (domain.Account, error)
	GetAccount(ctx context.Context, id string) (domain.Account, error)
	ListAccounts(ctx context.Context) []domain.Account
	TotalBalance(ctx context.Context) decimal.Decimal
	ClearAccounts(ctx context.Context)
	Transfer(ctx context.Context, cmd domain.TransferCommand) (engine.TransferResult, error)
}

// Handler contains all HTTP handlers
type Handler struct {
	service      LedgerService
	resetEnabled bool
}

// NewHandler creates a new handler. DELETE /v1/accounts is only served when resetEnabled is set.
func NewHandler(service LedgerService, resetEnabled bool) *Handler {
	return &Handler{
		service:      service,
		resetEnabled: resetEnabled,
	}
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	TransactionID string `json:"transaction_id,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrSameAccount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: err.Error(),
		Code:  domain.CodeInvalidRequest,
	})
}

// CreateAccountRequest is the request body for account creation.
// Balance accepts a JSON string or number.
type CreateAccountRequest struct {
	AccountID string           `json:"account_id" binding:"required"`
	Balance   *decimal.Decimal `json:"balance" binding:"required"`
}

// CreateAccount handles POST /v1/accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.service.CreateAccount(c.Request.Context(), req.AccountID, *req.Balance)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{
			Error: err.Error(),
			Code:  domain.ErrorCode(err),
		})
		return
	}

	c.JSON(http.StatusCreated, account)
}

// GetAccount handles GET /v1/accounts/:account_id
func (h *Handler) GetAccount(c *gin.Context) {
	account, err := h.service.GetAccount(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{
			Error: err.Error(),
			Code:  domain.ErrorCode(err),
		})
		return
	}

	c.JSON(http.StatusOK, account)
}

// AccountsResponse is the response for the account listing
type AccountsResponse struct {
	Accounts     []domain.Account `json:"accounts"`
	TotalBalance decimal.Decimal  `json:"total_balance"`
	AccountCount int              `json:"account_count"`
}

// ListAccounts handles GET /v1/accounts
func (h *Handler) ListAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	accounts := h.service.ListAccounts(ctx)

	c.JSON(http.StatusOK, AccountsResponse{
		Accounts:     accounts,
		TotalBalance: h.service.TotalBalance(ctx),
		AccountCount: len(accounts),
	})
}

// ClearAccounts handles DELETE /v1/accounts
func (h *Handler) ClearAccounts(c *gin.Context) {
	if !h.resetEnabled {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "account reset is disabled",
			Code:  "not_found",
		})
		return
	}

	h.service.ClearAccounts(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// TransferRequest is the request body for transfer endpoint
type TransferRequest struct {
	FromAccount   string           `json:"from_account" binding:"required"`
	ToAccount     string           `json:"to_account" binding:"required"`
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	TransactionID string           `json:"transaction_id"` // Optional, will be generated if not provided
}

// TransferResponse is the response body for transfer endpoint
type TransferResponse struct {
	TransactionID string         `json:"transaction_id"`
	Success       bool           `json:"success"`
	Message       string         `json:"message,omitempty"`
	From          domain.Account `json:"from"`
	To            domain.Account `json:"to"`
}

// Transfer handles POST /v1/transfers
func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.service.Transfer(c.Request.Context(), domain.TransferCommand{
		TransactionID: req.TransactionID,
		FromAccount:   req.FromAccount,
		ToAccount:     req.ToAccount,
		Amount:        *req.Amount,
	})
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{
			Error:         err.Error(),
			Code:          domain.ErrorCode(err),
			TransactionID: result.TransactionID,
		})
		return
	}

	c.JSON(http.StatusOK, TransferResponse{
		TransactionID: result.TransactionID,
		Success:       true,
		Message:       "transfer completed",
		From:          result.From,
		To:            result.To,
	})
}

// HealthResponse is the response for health check endpoint
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/accounts", h.CreateAccount)
		v1.GET("/accounts", h.ListAccounts)
		v1.GET("/accounts/:account_id", h.GetAccount)
		v1.DELETE("/accounts", h.ClearAccounts)
		v1.POST("/transfers", h.Transfer)
	}
}
