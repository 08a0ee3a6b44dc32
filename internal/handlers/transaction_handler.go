package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "caudal/internal/errors"
	"caudal/internal/models"
	"caudal/internal/pagination"
	"caudal/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	ruleService        services.RuleServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	transactionService services.TransactionServicer,
	ruleService services.RuleServicer,
	auditService services.AuditServicer,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		ruleService:        ruleService,
		auditService:       auditService,
	}
}

// CreateTransactionRequest represents the request payload for recording a transaction
type CreateTransactionRequest struct {
	AccountID           string                 `json:"account_id" binding:"required,uuid"`
	CategoryID          *string                `json:"category_id" binding:"omitempty,uuid"`
	Type                models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount              int64                  `json:"amount" binding:"required,gt=0"`
	Description         string                 `json:"description" binding:"max=500"`
	Date                string                 `json:"date"`
	ReferenceNumber     string                 `json:"reference_number" binding:"max=100"`
	Notes               string                 `json:"notes" binding:"max=1000"`
	IsReconciled        bool                   `json:"is_reconciled"`
	TransferToAccountID *string                `json:"transfer_to_account_id" binding:"omitempty,uuid"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
type UpdateTransactionRequest struct {
	AccountID           *string                 `json:"account_id" binding:"omitempty,uuid"`
	CategoryID          *string                 `json:"category_id" binding:"omitempty,uuid"`
	Type                *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Amount              *int64                  `json:"amount" binding:"omitempty,gt=0"`
	Description         *string                 `json:"description" binding:"omitempty,max=500"`
	Date                *string                 `json:"date"`
	ReferenceNumber     *string                 `json:"reference_number" binding:"omitempty,max=100"`
	Notes               *string                 `json:"notes" binding:"omitempty,max=1000"`
	IsReconciled        *bool                   `json:"is_reconciled"`
	TransferToAccountID *string                 `json:"transfer_to_account_id" binding:"omitempty,uuid"`
}

// parseDate accepts RFC3339 or a bare date.
func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", value)
	}
	return parsed, err
}

// CreateTransaction handles recording a new transaction
// @Summary     Record a transaction
// @Description Record a new transaction and update affected account balances
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.TransactionInput{
		AccountID:           req.AccountID,
		CategoryID:          req.CategoryID,
		Type:                req.Type,
		Amount:              req.Amount,
		Description:         req.Description,
		ReferenceNumber:     req.ReferenceNumber,
		Notes:               req.Notes,
		IsReconciled:        req.IsReconciled,
		TransferToAccountID: req.TransferToAccountID,
	}
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date format"))
			return
		}
		input.Date = parsed
	}

	transaction, err := h.transactionService.RecordTransaction(input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": req.Amount, "account_id": req.AccountID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions handles the retrieval of transactions
// @Summary     List transactions
// @Description Get a paginated, filtered list of transactions, newest first
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page          query int    false "Page number (default 1)"
// @Param       page_size     query int    false "Items per page (default 20, max 100)"
// @Param       account_id    query string false "Filter by account"
// @Param       category_id   query string false "Filter by category"
// @Param       type          query string false "Filter by transaction type"
// @Param       from_date     query string false "Filter by start date (YYYY-MM-DD)"
// @Param       to_date       query string false "Filter by end date (YYYY-MM-DD)"
// @Param       min_amount    query int    false "Minimum amount in minor units"
// @Param       max_amount    query int    false "Maximum amount in minor units"
// @Param       is_reconciled query bool   false "Filter by reconciliation state"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetTransactions(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("account_id"); v != "" {
		filter.AccountID = &v
	}
	if v := c.Query("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := c.Query("type"); v != "" {
		t := models.TransactionType(v)
		filter.Type = &t
	}
	if v := c.Query("from_date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date")
		}
		filter.FromDate = &parsed
	}
	if v := c.Query("to_date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date")
		}
		filter.ToDate = &parsed
	}
	if v := c.Query("min_amount"); v != "" {
		amount, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid min_amount")
		}
		filter.MinAmount = &amount
	}
	if v := c.Query("max_amount"); v != "" {
		amount, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid max_amount")
		}
		filter.MaxAmount = &amount
	}
	if v := c.Query("is_reconciled"); v != "" {
		b := v == "true"
		filter.IsReconciled = &b
	}

	return filter, nil
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating a transaction.
// @Summary     Update transaction
// @Description Update an existing transaction, recomputing balances when needed
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Updated transaction details"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fields := services.TransactionUpdateFields{
		AccountID:           req.AccountID,
		CategoryID:          req.CategoryID,
		Type:                req.Type,
		Amount:              req.Amount,
		Description:         req.Description,
		ReferenceNumber:     req.ReferenceNumber,
		Notes:               req.Notes,
		IsReconciled:        req.IsReconciled,
		TransferToAccountID: req.TransferToAccountID,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, err := parseDate(*req.Date)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date format"))
			return
		}
		fields.Date = &parsed
	}

	transaction, err := h.transactionService.UpdateTransaction(transactionID, fields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction.
// @Summary     Delete transaction
// @Description Soft-delete a transaction and restore affected account balances
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// ApplyRules handles running the categorization rules against one transaction.
// @Summary     Apply rules to a transaction
// @Description Run the active categorization rules against the transaction and apply the first match
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.TransactionRule "Applied rule, or null when nothing matched"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id}/apply-rules [post]
func (h *TransactionHandler) ApplyRules(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.ruleService.ApplyRules(transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if rule != nil {
		h.auditService.Log(userID, "APPLY_RULES", "transaction", transactionID, c.ClientIP(),
			map[string]interface{}{"rule_id": rule.ID, "category_id": rule.CategoryID})
	}

	c.JSON(http.StatusOK, gin.H{"applied_rule": rule})
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}
