package services

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "caudal/internal/errors"
	"caudal/internal/logger"
	"caudal/internal/models"
)

const importDateLayout = "2006-01-02"

// importService ingests CSV files for each entity. Rows are upserted by the
// entity's natural key so re-importing the same file is idempotent. Bad rows
// are collected in the summary instead of aborting the run.
type importService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewImportService creates a new ImportServicer.
func NewImportService(db *gorm.DB, accountService AccountServicer) ImportServicer {
	return &importService{
		db:             db,
		accountService: accountService,
	}
}

// csvRows reads the whole file and returns the rows as header-keyed maps.
// Header names are lowercased and trimmed.
func csvRows(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidImportFile, "missing header row")
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidImportFile, err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowErr(line int, msg string) string {
	return fmt.Sprintf("row %d: %s", line, msg)
}

// ImportAccounts upserts accounts keyed by name.
func (s *importService) ImportAccounts(r io.Reader) (*ImportSummary, error) {
	rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i, row := range rows {
		line := i + 2

		name := row["name"]
		if name == "" {
			summary.Failed = append(summary.Failed, rowErr(line, "name is required"))
			continue
		}
		accountType := models.AccountType(row["type"])
		switch accountType {
		case models.AccountTypeChecking, models.AccountTypeSavings,
			models.AccountTypeCreditCard, models.AccountTypeCash, models.AccountTypeInvestment:
		default:
			summary.Failed = append(summary.Failed, rowErr(line, "unknown account type"))
			continue
		}

		currency := row["currency"]
		if currency == "" {
			currency = "COP"
		}

		var existing models.Account
		err := s.db.Where("name = ?", name).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"type":     accountType,
				"currency": currency,
			}
			if v := row["description"]; v != "" {
				updates["description"] = v
			}
			if v := row["account_number"]; v != "" {
				updates["account_number"] = v
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			account := &models.Account{
				Name:          name,
				Type:          accountType,
				Currency:      currency,
				Description:   row["description"],
				AccountNumber: row["account_number"],
				IsActive:      true,
			}
			if err := s.db.Create(account).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Created++
		default:
			summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
		}
	}

	s.logSummary("accounts", summary)
	return summary, nil
}

// ImportCategories upserts categories keyed by name and type. A parent
// column refers to an existing category of the same type by name.
func (s *importService) ImportCategories(r io.Reader) (*ImportSummary, error) {
	rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i, row := range rows {
		line := i + 2

		name := row["name"]
		if name == "" {
			summary.Failed = append(summary.Failed, rowErr(line, "name is required"))
			continue
		}
		categoryType := models.CategoryType(row["type"])
		if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
			summary.Failed = append(summary.Failed, rowErr(line, "unknown category type"))
			continue
		}

		var parentID *string
		if parentName := row["parent"]; parentName != "" {
			var parent models.Category
			if err := s.db.Where("name = ? AND type = ?", parentName, categoryType).
				First(&parent).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, "parent category not found"))
				continue
			}
			parentID = &parent.ID
		}

		var existing models.Category
		err := s.db.Where("name = ? AND type = ?", name, categoryType).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{"parent_id": parentID}
			if v := row["description"]; v != "" {
				updates["description"] = v
			}
			if v := row["icon"]; v != "" {
				updates["icon"] = v
			}
			if v := row["color"]; v != "" {
				updates["color"] = v
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			category := &models.Category{
				Name:        name,
				Type:        categoryType,
				Description: row["description"],
				Icon:        row["icon"],
				Color:       row["color"],
				ParentID:    parentID,
				IsActive:    true,
			}
			if err := s.db.Create(category).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Created++
		default:
			summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
		}
	}

	s.logSummary("categories", summary)
	return summary, nil
}

// ImportTransactions upserts transactions keyed by account, amount,
// description, date, and reference number. Affected accounts are recomputed
// once at the end of the run.
func (s *importService) ImportTransactions(r io.Reader) (*ImportSummary, error) {
	rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	affected := make(map[string]struct{})

	for i, row := range rows {
		line := i + 2

		var account models.Account
		if err := s.db.Where("name = ?", row["account"]).First(&account).Error; err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "account not found"))
			continue
		}

		txType := models.TransactionType(row["type"])
		switch txType {
		case models.TransactionTypeIncome, models.TransactionTypeExpense, models.TransactionTypeTransfer:
		default:
			summary.Failed = append(summary.Failed, rowErr(line, "unknown transaction type"))
			continue
		}

		amount, err := strconv.ParseInt(row["amount"], 10, 64)
		if err != nil || amount <= 0 {
			summary.Failed = append(summary.Failed, rowErr(line, "invalid amount"))
			continue
		}

		date, err := time.Parse(importDateLayout, row["date"])
		if err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "invalid date"))
			continue
		}

		var categoryID *string
		if categoryName := row["category"]; categoryName != "" {
			var category models.Category
			if err := s.db.Where("name = ?", categoryName).First(&category).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, "category not found"))
				continue
			}
			categoryID = &category.ID
		}

		var transferTo *string
		if txType == models.TransactionTypeTransfer {
			var dest models.Account
			if err := s.db.Where("name = ?", row["transfer_to"]).First(&dest).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, "transfer destination not found"))
				continue
			}
			if dest.ID == account.ID {
				summary.Failed = append(summary.Failed, rowErr(line, "transfer destination equals source"))
				continue
			}
			transferTo = &dest.ID
			affected[dest.ID] = struct{}{}
		}

		description := row["description"]
		reference := row["reference_number"]

		var existing models.Transaction
		err = s.db.Where(
			"account_id = ? AND amount = ? AND description = ? AND date = ? AND reference_number = ?",
			account.ID, amount, description, date, reference,
		).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"type":                   txType,
				"category_id":            categoryID,
				"transfer_to_account_id": transferTo,
			}
			if v := row["notes"]; v != "" {
				updates["notes"] = v
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			transaction := &models.Transaction{
				AccountID:           account.ID,
				CategoryID:          categoryID,
				Type:                txType,
				Amount:              amount,
				Description:         description,
				Date:                date,
				ReferenceNumber:     reference,
				Notes:               row["notes"],
				TransferToAccountID: transferTo,
			}
			if err := s.db.Create(transaction).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Created++
		default:
			summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
			continue
		}

		affected[account.ID] = struct{}{}
	}

	for accountID := range affected {
		if err := s.accountService.RecalculateBalance(s.db, accountID); err != nil {
			return summary, err
		}
	}

	s.logSummary("transactions", summary)
	return summary, nil
}

// ImportRecurring upserts recurring series keyed by account, description,
// and frequency.
func (s *importService) ImportRecurring(r io.Reader) (*ImportSummary, error) {
	rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i, row := range rows {
		line := i + 2

		var account models.Account
		if err := s.db.Where("name = ?", row["account"]).First(&account).Error; err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "account not found"))
			continue
		}

		var category models.Category
		if err := s.db.Where("name = ?", row["category"]).First(&category).Error; err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "category not found"))
			continue
		}

		description := row["description"]
		if description == "" {
			summary.Failed = append(summary.Failed, rowErr(line, "description is required"))
			continue
		}

		frequency := models.Frequency(row["frequency"])
		switch frequency {
		case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly,
			models.FrequencyQuarterly, models.FrequencyYearly:
		default:
			summary.Failed = append(summary.Failed, rowErr(line, "unknown frequency"))
			continue
		}

		amount, err := strconv.ParseInt(row["amount"], 10, 64)
		if err != nil || amount == 0 {
			summary.Failed = append(summary.Failed, rowErr(line, "invalid amount"))
			continue
		}

		nextDue, err := time.Parse(importDateLayout, row["next_due_date"])
		if err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "invalid next due date"))
			continue
		}

		var endDate *time.Time
		if v := row["end_date"]; v != "" {
			parsed, err := time.Parse(importDateLayout, v)
			if err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, "invalid end date"))
				continue
			}
			endDate = &parsed
		}

		autoProcess := strings.EqualFold(row["auto_process"], "true")

		var existing models.RecurringTransaction
		err = s.db.Where(
			"account_id = ? AND description = ? AND frequency = ?",
			account.ID, description, frequency,
		).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"category_id":   category.ID,
				"amount":        amount,
				"next_due_date": nextDue,
				"end_date":      endDate,
				"auto_process":  autoProcess,
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			recurring := &models.RecurringTransaction{
				AccountID:   account.ID,
				CategoryID:  category.ID,
				Amount:      amount,
				Description: description,
				Frequency:   frequency,
				NextDueDate: nextDue,
				EndDate:     endDate,
				AutoProcess: autoProcess,
				IsActive:    true,
			}
			if err := s.db.Create(recurring).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Created++
		default:
			summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
		}
	}

	s.logSummary("recurring", summary)
	return summary, nil
}

// ImportBudgets upserts budgets keyed by category, period, and start date.
func (s *importService) ImportBudgets(r io.Reader) (*ImportSummary, error) {
	rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i, row := range rows {
		line := i + 2

		var category models.Category
		if err := s.db.Where("name = ?", row["category"]).First(&category).Error; err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "category not found"))
			continue
		}

		period := models.BudgetPeriod(row["period"])
		switch period {
		case models.BudgetPeriodMonthly, models.BudgetPeriodQuarterly, models.BudgetPeriodYearly:
		default:
			summary.Failed = append(summary.Failed, rowErr(line, "unknown period"))
			continue
		}

		amount, err := strconv.ParseInt(row["amount"], 10, 64)
		if err != nil || amount <= 0 {
			summary.Failed = append(summary.Failed, rowErr(line, "invalid amount"))
			continue
		}

		startDate, err := time.Parse(importDateLayout, row["start_date"])
		if err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "invalid start date"))
			continue
		}
		endDate, err := time.Parse(importDateLayout, row["end_date"])
		if err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "invalid end date"))
			continue
		}
		if !startDate.Before(endDate) {
			summary.Failed = append(summary.Failed, rowErr(line, "start date must be before end date"))
			continue
		}

		threshold := 80.0
		if v := row["alert_threshold"]; v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed < 0 || parsed > 100 {
				summary.Failed = append(summary.Failed, rowErr(line, "invalid alert threshold"))
				continue
			}
			threshold = parsed
		}

		var existing models.Budget
		err = s.db.Where(
			"category_id = ? AND period = ? AND start_date = ?",
			category.ID, period, startDate,
		).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"amount":          amount,
				"end_date":        endDate,
				"alert_threshold": threshold,
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			budget := &models.Budget{
				CategoryID:     category.ID,
				Amount:         amount,
				Period:         period,
				StartDate:      startDate,
				EndDate:        endDate,
				AlertThreshold: threshold,
				IsActive:       true,
			}
			if err := s.db.Create(budget).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Created++
		default:
			summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
		}
	}

	s.logSummary("budgets", summary)
	return summary, nil
}

// ImportRules upserts rules keyed by name. Conditions come as a JSON array
// in the conditions column.
func (s *importService) ImportRules(r io.Reader) (*ImportSummary, error) {
	rows, err := csvRows(r)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for i, row := range rows {
		line := i + 2

		name := row["name"]
		if name == "" {
			summary.Failed = append(summary.Failed, rowErr(line, "name is required"))
			continue
		}

		var category models.Category
		if err := s.db.Where("name = ?", row["category"]).First(&category).Error; err != nil {
			summary.Failed = append(summary.Failed, rowErr(line, "category not found"))
			continue
		}

		var conditions []models.Condition
		if err := json.Unmarshal([]byte(row["conditions"]), &conditions); err != nil || len(conditions) == 0 {
			summary.Failed = append(summary.Failed, rowErr(line, "invalid conditions"))
			continue
		}

		priority := 0
		if v := row["priority"]; v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				summary.Failed = append(summary.Failed, rowErr(line, "invalid priority"))
				continue
			}
			priority = parsed
		}

		var existing models.TransactionRule
		err := s.db.Where("name = ?", name).First(&existing).Error
		switch {
		case err == nil:
			existing.Conditions = conditions
			existing.CategoryID = category.ID
			existing.Priority = priority
			if err := s.db.Save(&existing).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			rule := &models.TransactionRule{
				Name:       name,
				Conditions: conditions,
				CategoryID: category.ID,
				Priority:   priority,
				IsActive:   true,
			}
			if err := s.db.Create(rule).Error; err != nil {
				summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
				continue
			}
			summary.Created++
		default:
			summary.Failed = append(summary.Failed, rowErr(line, err.Error()))
		}
	}

	s.logSummary("rules", summary)
	return summary, nil
}

func (s *importService) logSummary(entity string, summary *ImportSummary) {
	logger.Get().Infow("import finished",
		"entity", entity,
		"created", summary.Created,
		"updated", summary.Updated,
		"failed", len(summary.Failed),
	)
}
