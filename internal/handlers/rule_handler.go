package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "caudal/internal/errors"
	"caudal/internal/models"
	"caudal/internal/pagination"
	"caudal/internal/services"
)

// RuleHandler handles transaction-rule requests.
type RuleHandler struct {
	ruleService  services.RuleServicer
	auditService services.AuditServicer
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleService services.RuleServicer, auditService services.AuditServicer) *RuleHandler {
	return &RuleHandler{ruleService: ruleService, auditService: auditService}
}

// ConditionRequest represents one rule condition in a request payload.
type ConditionRequest struct {
	Field    models.RuleField    `json:"field" binding:"required,rule_field"`
	Operator models.RuleOperator `json:"operator" binding:"required,rule_operator"`
	Value    string              `json:"value" binding:"required"`
}

// CreateRuleRequest represents the request payload for creating a rule
type CreateRuleRequest struct {
	Name       string             `json:"name" binding:"required,min=1,max=100"`
	Conditions []ConditionRequest `json:"conditions" binding:"required,min=1,dive"`
	CategoryID string             `json:"category_id" binding:"required,uuid"`
	Priority   int                `json:"priority" binding:"gte=0"`
}

// UpdateRuleRequest represents the request payload for updating a rule.
type UpdateRuleRequest struct {
	Name       *string            `json:"name" binding:"omitempty,min=1,max=100"`
	Conditions []ConditionRequest `json:"conditions" binding:"omitempty,min=1,dive"`
	CategoryID *string            `json:"category_id" binding:"omitempty,uuid"`
	Priority   *int               `json:"priority" binding:"omitempty,gte=0"`
	IsActive   *bool              `json:"is_active"`
}

func toConditions(reqs []ConditionRequest) []models.Condition {
	if reqs == nil {
		return nil
	}
	conditions := make([]models.Condition, len(reqs))
	for i, r := range reqs {
		conditions[i] = models.Condition{Field: r.Field, Operator: r.Operator, Value: r.Value}
	}
	return conditions
}

// CreateRule handles the creation of a new rule
// @Summary     Create a rule
// @Description Create a new categorization rule
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRuleRequest true "Rule details"
// @Success     201 {object} models.TransactionRule "Rule created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate rule name"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, err := h.ruleService.CreateRule(req.Name, toConditions(req.Conditions), req.CategoryID, req.Priority)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_RULE", "transaction_rule", rule.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "priority": req.Priority})

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// GetRules handles the retrieval of rules
// @Summary     List rules
// @Description Get a paginated list of rules in application order
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int  false "Page number (default 1)"
// @Param       page_size query int  false "Items per page (default 20, max 100)"
// @Param       is_active query bool false "Filter by active state"
// @Success     200 {object} pagination.PageResponse[models.TransactionRule] "Paginated rules"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rules [get]
func (h *RuleHandler) GetRules(c *gin.Context) {
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

	result, err := h.ruleService.GetRules(page, isActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRuleByID handles the retrieval of a specific rule
// @Summary     Get rule by ID
// @Description Get a specific rule by ID
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {object} models.TransactionRule "Rule details"
// @Failure     400 {object} ErrorResponse "Invalid rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rules/{id} [get]
func (h *RuleHandler) GetRuleByID(c *gin.Context) {
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.ruleService.GetRuleByID(ruleID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// UpdateRule handles updating a rule.
// @Summary     Update rule
// @Description Update an existing rule
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Param       request body UpdateRuleRequest true "Updated rule details"
// @Success     200 {object} models.TransactionRule "Updated rule"
// @Failure     400 {object} ErrorResponse "Invalid input or rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     409 {object} ErrorResponse "Duplicate rule name"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, err := h.ruleService.UpdateRule(ruleID, req.Name, toConditions(req.Conditions), req.CategoryID, req.Priority, req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_RULE", "transaction_rule", ruleID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteRule handles deleting a rule.
// @Summary     Delete rule
// @Description Soft-delete a rule
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {object} MessageResponse "Rule deleted"
// @Failure     400 {object} ErrorResponse "Invalid rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.ruleService.DeleteRule(ruleID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_RULE", "transaction_rule", ruleID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted successfully"})
}

// ApplyAll handles applying rules to every transaction.
// @Summary     Apply rules to all transactions
// @Description Run the active rules against every transaction and apply the first match to each
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]int "Number of recategorized transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rules/apply-all [post]
func (h *RuleHandler) ApplyAll(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	applied, err := h.ruleService.ApplyRulesToAll()
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "APPLY_RULES_ALL", "transaction_rule", "", c.ClientIP(),
		map[string]interface{}{"applied": applied})

	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// TestRule handles dry-running a rule against recent transactions.
// @Summary     Test a rule
// @Description Dry-run the rule against the most recent transactions without modifying anything
// @Tags        rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string true  "Rule ID"
// @Param       limit query int    false "Number of recent transactions to test against (default 100)"
// @Success     200 {object} services.RuleTestResult "Matching and non-matching transactions"
// @Failure     400 {object} ErrorResponse "Invalid rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rules/{id}/test [post]
func (h *RuleHandler) TestRule(c *gin.Context) {
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid limit"))
			return
		}
		limit = parsed
	}

	result, err := h.ruleService.TestRule(ruleID, limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
