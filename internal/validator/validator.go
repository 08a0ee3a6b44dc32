// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// validCurrencies contains ISO 4217 currency codes.
var validCurrencies = map[string]bool{
	"AED": true, "ARS": true, "AUD": true, "BOB": true, "BRL": true,
	"CAD": true, "CHF": true, "CLP": true, "CNY": true, "COP": true,
	"CRC": true, "CZK": true, "DKK": true, "DOP": true, "EUR": true,
	"GBP": true, "GTQ": true, "HKD": true, "HNL": true, "HUF": true,
	"IDR": true, "ILS": true, "INR": true, "JPY": true, "KRW": true,
	"MXN": true, "MYR": true, "NIO": true, "NOK": true, "NZD": true,
	"PAB": true, "PEN": true, "PHP": true, "PLN": true, "PYG": true,
	"RON": true, "SEK": true, "SGD": true, "THB": true, "TRY": true,
	"TWD": true, "USD": true, "UYU": true, "VES": true, "ZAR": true,
}

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("category_type", validateCategoryType)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
		_ = v.RegisterValidation("frequency", validateFrequency)
		_ = v.RegisterValidation("rule_field", validateRuleField)
		_ = v.RegisterValidation("rule_operator", validateRuleOperator)
	}
}

func validateISO4217(fl validator.FieldLevel) bool {
	return validCurrencies[fl.Field().String()]
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "checking", "savings", "credit_card", "cash", "investment":
		return true
	}
	return false
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense", "transfer":
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "monthly", "quarterly", "yearly":
		return true
	}
	return false
}

func validateFrequency(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "daily", "weekly", "monthly", "quarterly", "yearly":
		return true
	}
	return false
}

func validateRuleField(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "description", "amount", "reference_number", "notes":
		return true
	}
	return false
}

func validateRuleOperator(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "contains", "equals", "starts_with", "ends_with", "greater_than", "less_than", "regex":
		return true
	}
	return false
}
