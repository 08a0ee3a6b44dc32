package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "caudal/internal/errors"
	"caudal/internal/logger"
	"caudal/internal/models"
	"caudal/internal/pagination"
)

// ruleService handles transaction-rule business logic, including the
// first-match-wins application engine.
type ruleService struct {
	db              *gorm.DB
	categoryService CategoryServicer
}

// NewRuleService creates a new RuleServicer.
func NewRuleService(db *gorm.DB, categoryService CategoryServicer) RuleServicer {
	return &ruleService{
		db:              db,
		categoryService: categoryService,
	}
}

// CreateRule creates a new categorization rule.
func (s *ruleService) CreateRule(
	name string,
	conditions []models.Condition,
	categoryID string,
	priority int,
) (*models.TransactionRule, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "rule name is required")
	}
	if len(conditions) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one condition is required")
	}
	if priority < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "priority cannot be negative")
	}

	var count int64
	if err := s.db.Model(&models.TransactionRule{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateRule
	}

	if _, err := s.categoryService.GetCategoryByID(categoryID); err != nil {
		return nil, err
	}

	rule := &models.TransactionRule{
		Name:       name,
		Conditions: conditions,
		CategoryID: categoryID,
		Priority:   priority,
		IsActive:   true,
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return rule, nil
}

// GetRules retrieves a paginated list of rules in application order.
func (s *ruleService) GetRules(page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.TransactionRule], error) {
	page.Defaults()

	base := s.db.Model(&models.TransactionRule{})
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rules []models.TransactionRule
	if err := base.Scopes(pagination.Paginate(page)).
		Order("priority DESC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rules, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRuleByID retrieves a rule by ID.
func (s *ruleService) GetRuleByID(ruleID string) (*models.TransactionRule, error) {
	var rule models.TransactionRule
	if err := s.db.Where("id = ?", ruleID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// UpdateRule updates an existing rule.
func (s *ruleService) UpdateRule(
	ruleID string,
	name *string,
	conditions []models.Condition,
	categoryID *string,
	priority *int,
	isActive *bool,
) (*models.TransactionRule, error) {
	rule, err := s.GetRuleByID(ruleID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != nil && *name != "" && *name != rule.Name {
		var count int64
		if err := s.db.Model(&models.TransactionRule{}).
			Where("name = ? AND id <> ?", *name, ruleID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil, apperrors.ErrDuplicateRule
		}
		updates["name"] = *name
	}
	if conditions != nil {
		if len(conditions) == 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one condition is required")
		}
		rule.Conditions = conditions
	}
	if categoryID != nil {
		if _, err := s.categoryService.GetCategoryByID(*categoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *categoryID
	}
	if priority != nil {
		if *priority < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "priority cannot be negative")
		}
		updates["priority"] = *priority
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	// Conditions are serialized JSON, so they go through Save rather than a
	// column map.
	if conditions != nil {
		if err := s.db.Save(rule).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	if len(updates) > 0 {
		if err := s.db.Model(rule).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	if err := s.db.Where("id = ?", ruleID).First(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return rule, nil
}

// DeleteRule soft-deletes a rule.
func (s *ruleService) DeleteRule(ruleID string) error {
	rule, err := s.GetRuleByID(ruleID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ApplyRules evaluates all active rules against the transaction in priority
// order (ties broken by creation time) and applies the first match: the
// transaction is recategorized and the rule's match counter incremented
// atomically. Returns nil when no rule matches.
func (s *ruleService) ApplyRules(transactionID string) (*models.TransactionRule, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rules, err := s.activeRules()
	if err != nil {
		return nil, err
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.Matches(&transaction) {
			continue
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&transaction).
				Update("category_id", rule.CategoryID).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if err := tx.Model(rule).
				Update("match_count", gorm.Expr("match_count + ?", 1)).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		logger.Get().Infow("rule applied",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"transaction_id", transaction.ID,
			"category_id", rule.CategoryID,
		)
		return rule, nil
	}

	return nil, nil
}

// ApplyRulesToAll runs the application engine over every non-deleted
// transaction and returns how many were recategorized.
func (s *ruleService) ApplyRulesToAll() (int, error) {
	rules, err := s.activeRules()
	if err != nil {
		return 0, err
	}
	if len(rules) == 0 {
		return 0, nil
	}

	var transactions []models.Transaction
	if err := s.db.Order("date DESC").Find(&transactions).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	applied := 0
	for i := range transactions {
		transaction := &transactions[i]
		for j := range rules {
			rule := &rules[j]
			if !rule.Matches(transaction) {
				continue
			}

			err := s.db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Model(transaction).
					Update("category_id", rule.CategoryID).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				if err := tx.Model(rule).
					Update("match_count", gorm.Expr("match_count + ?", 1)).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				return nil
			})
			if err != nil {
				return applied, err
			}
			applied++
			break
		}
	}

	logger.Get().Infow("bulk rule application finished",
		"transactions", len(transactions),
		"applied", applied,
	)
	return applied, nil
}

// TestRule dry-runs one rule against the most recent transactions without
// writing anything.
func (s *ruleService) TestRule(ruleID string, limit int) (*RuleTestResult, error) {
	rule, err := s.GetRuleByID(ruleID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 100
	}

	var transactions []models.Transaction
	if err := s.db.Order("date DESC").Limit(limit).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &RuleTestResult{
		Matches:    []models.Transaction{},
		NonMatches: []models.Transaction{},
	}
	for i := range transactions {
		if rule.MatchesConditions(&transactions[i]) {
			result.Matches = append(result.Matches, transactions[i])
		} else {
			result.NonMatches = append(result.NonMatches, transactions[i])
		}
	}
	if len(transactions) > 0 {
		result.MatchRate = float64(len(result.Matches)) / float64(len(transactions)) * 100
	}

	return result, nil
}

// activeRules loads the active rules in application order.
func (s *ruleService) activeRules() ([]models.TransactionRule, error) {
	var rules []models.TransactionRule
	if err := s.db.Where("is_active = ?", true).
		Order("priority DESC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rules, nil
}
