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

// RecurringHandler handles recurring-transaction requests.
type RecurringHandler struct {
	recurringService services.RecurringServicer
	auditService     services.AuditServicer
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer, auditService services.AuditServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, auditService: auditService}
}

// CreateRecurringRequest represents the request payload for creating a recurring series.
// Amount is signed: non-negative amounts produce income, negative amounts expenses.
type CreateRecurringRequest struct {
	AccountID   string           `json:"account_id" binding:"required,uuid"`
	CategoryID  string           `json:"category_id" binding:"required,uuid"`
	Amount      int64            `json:"amount" binding:"required"`
	Description string           `json:"description" binding:"required,min=1,max=500"`
	Frequency   models.Frequency `json:"frequency" binding:"required,frequency"`
	NextDueDate string           `json:"next_due_date" binding:"required"`
	EndDate     *string          `json:"end_date"`
	AutoProcess bool             `json:"auto_process"`
}

// UpdateRecurringRequest represents the request payload for updating a recurring series.
type UpdateRecurringRequest struct {
	Amount      *int64            `json:"amount"`
	Description *string           `json:"description" binding:"omitempty,min=1,max=500"`
	Frequency   *models.Frequency `json:"frequency" binding:"omitempty,frequency"`
	NextDueDate *string           `json:"next_due_date"`
	EndDate     *string           `json:"end_date"`
	IsActive    *bool             `json:"is_active"`
	AutoProcess *bool             `json:"auto_process"`
}

// CreateRecurring handles the creation of a new recurring series
// @Summary     Create a recurring transaction
// @Description Create a new recurring transaction series
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecurringRequest true "Recurring series details"
// @Success     201 {object} models.RecurringTransaction "Series created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [post]
func (h *RecurringHandler) CreateRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	nextDue, err := parseDate(req.NextDueDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid next_due_date format"))
		return
	}

	var endDate *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, err := parseDate(*req.EndDate)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid end_date format"))
			return
		}
		endDate = &parsed
	}

	recurring, err := h.recurringService.CreateRecurring(
		req.AccountID,
		req.CategoryID,
		req.Amount,
		req.Description,
		req.Frequency,
		nextDue,
		endDate,
		req.AutoProcess,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_RECURRING", "recurring_transaction", recurring.ID, c.ClientIP(),
		map[string]interface{}{"description": req.Description, "frequency": req.Frequency})

	c.JSON(http.StatusCreated, gin.H{"recurring_transaction": recurring})
}

// GetRecurring handles the retrieval of recurring series
// @Summary     List recurring transactions
// @Description Get a paginated list of recurring series, soonest due first
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int  false "Page number (default 1)"
// @Param       page_size query int  false "Items per page (default 20, max 100)"
// @Param       is_active query bool false "Filter by active state"
// @Param       due_only  query bool false "Only active series that are currently due"
// @Success     200 {object} pagination.PageResponse[models.RecurringTransaction] "Paginated series"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [get]
func (h *RecurringHandler) GetRecurring(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var isActive *bool
	if v := c.Query("is_active"); v != "" {
		b := v == "true"
		isActive = &b
	}
	dueOnly := c.Query("due_only") == "true"

	result, err := h.recurringService.GetRecurring(page, isActive, dueOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurringByID handles the retrieval of a specific recurring series
// @Summary     Get recurring transaction by ID
// @Description Get a specific recurring series by ID
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring series ID"
// @Success     200 {object} models.RecurringTransaction "Series details"
// @Failure     400 {object} ErrorResponse "Invalid series ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Series not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [get]
func (h *RecurringHandler) GetRecurringByID(c *gin.Context) {
	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurring, err := h.recurringService.GetRecurringByID(recurringID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_transaction": recurring})
}

// UpdateRecurring handles updating a recurring series.
// @Summary     Update recurring transaction
// @Description Update an existing recurring series
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring series ID"
// @Param       request body UpdateRecurringRequest true "Updated series details"
// @Success     200 {object} models.RecurringTransaction "Updated series"
// @Failure     400 {object} ErrorResponse "Invalid input or series ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Series not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [put]
func (h *RecurringHandler) UpdateRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var nextDue, endDate *time.Time
	if req.NextDueDate != nil && *req.NextDueDate != "" {
		parsed, err := parseDate(*req.NextDueDate)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid next_due_date format"))
			return
		}
		nextDue = &parsed
	}
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, err := parseDate(*req.EndDate)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid end_date format"))
			return
		}
		endDate = &parsed
	}

	recurring, err := h.recurringService.UpdateRecurring(
		recurringID,
		req.Amount,
		req.Description,
		req.Frequency,
		nextDue,
		endDate,
		req.IsActive,
		req.AutoProcess,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_RECURRING", "recurring_transaction", recurringID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurring_transaction": recurring})
}

// DeleteRecurring handles deleting a recurring series.
// @Summary     Delete recurring transaction
// @Description Soft-delete a recurring series. Already materialized transactions are untouched.
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring series ID"
// @Success     200 {object} MessageResponse "Series deleted"
// @Failure     400 {object} ErrorResponse "Invalid series ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Series not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [delete]
func (h *RecurringHandler) DeleteRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.DeleteRecurring(recurringID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_RECURRING", "recurring_transaction", recurringID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Recurring transaction deleted successfully"})
}

// ProcessRecurring handles materializing the next occurrence of a series.
// @Summary     Process recurring transaction
// @Description Materialize the next occurrence of the series as a concrete transaction and advance the schedule
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Recurring series ID"
// @Success     201 {object} models.Transaction "Materialized transaction"
// @Failure     400 {object} ErrorResponse "Invalid series ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Series not found"
// @Failure     422 {object} ErrorResponse "Series cannot be processed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id}/process [post]
func (h *RecurringHandler) ProcessRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.recurringService.Process(recurringID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "PROCESS_RECURRING", "recurring_transaction", recurringID, c.ClientIP(),
		map[string]interface{}{"transaction_id": transaction.ID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// PreviewRecurring handles simulating upcoming occurrences of a series.
// @Summary     Preview recurring transaction
// @Description Simulate the next occurrences of the series without writing anything
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string true  "Recurring series ID"
// @Param       count query int    false "Number of occurrences to simulate (default 5, max 60)"
// @Success     200 {array} models.PlannedTransaction "Planned occurrences"
// @Failure     400 {object} ErrorResponse "Invalid series ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Series not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id}/preview [get]
func (h *RecurringHandler) PreviewRecurring(c *gin.Context) {
	recurringID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	count := 0
	if v := c.Query("count"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid count"))
			return
		}
		count = parsed
	}

	planned, err := h.recurringService.Preview(recurringID, count)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned": planned})
}
