package models

import (
	"regexp"
	"strconv"
	"strings"
)

// RuleField identifies the transaction field a condition reads.
type RuleField string

const (
	RuleFieldDescription     RuleField = "description"
	RuleFieldAmount          RuleField = "amount"
	RuleFieldReferenceNumber RuleField = "reference_number"
	RuleFieldNotes           RuleField = "notes"
)

// RuleOperator identifies how a condition compares values.
type RuleOperator string

const (
	RuleOperatorContains    RuleOperator = "contains"
	RuleOperatorEquals      RuleOperator = "equals"
	RuleOperatorStartsWith  RuleOperator = "starts_with"
	RuleOperatorEndsWith    RuleOperator = "ends_with"
	RuleOperatorGreaterThan RuleOperator = "greater_than"
	RuleOperatorLessThan    RuleOperator = "less_than"
	RuleOperatorRegex       RuleOperator = "regex"
)

// Condition is one field/operator/value triple of a rule. All conditions
// of a rule must match for the rule to match (AND semantics).
type Condition struct {
	Field    RuleField    `json:"field"`
	Operator RuleOperator `json:"operator"`
	Value    string       `json:"value"`
}

// Matches evaluates the condition against a transaction.
//
// String comparisons are case-insensitive. Numeric operators parse both
// sides as floats; unparseable input coerces to 0, kept for compatibility
// with historical rule data. A regex that does not compile, an unknown
// operator, or an empty field/operator never match and never error.
func (c Condition) Matches(t *Transaction) bool {
	if c.Field == "" || c.Operator == "" {
		return false
	}

	fieldValue := t.FieldValue(c.Field)

	switch c.Operator {
	case RuleOperatorContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case RuleOperatorEquals:
		return strings.EqualFold(fieldValue, c.Value)
	case RuleOperatorStartsWith:
		return strings.HasPrefix(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case RuleOperatorEndsWith:
		return strings.HasSuffix(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case RuleOperatorGreaterThan:
		return parseFloatOrZero(fieldValue) > parseFloatOrZero(c.Value)
	case RuleOperatorLessThan:
		return parseFloatOrZero(fieldValue) < parseFloatOrZero(c.Value)
	case RuleOperatorRegex:
		re, err := regexp.Compile("(?i)" + c.Value)
		if err != nil {
			return false
		}
		return re.MatchString(fieldValue)
	}
	return false
}

// FieldValue extracts the named rule field from the transaction as a
// string. Amounts are stringified in minor units. Unknown fields yield an
// empty string, which then flows through the operator logic normally.
func (t *Transaction) FieldValue(field RuleField) string {
	switch field {
	case RuleFieldDescription:
		return t.Description
	case RuleFieldAmount:
		return strconv.FormatInt(t.Amount, 10)
	case RuleFieldReferenceNumber:
		return t.ReferenceNumber
	case RuleFieldNotes:
		return t.Notes
	}
	return ""
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// TransactionRule recategorizes transactions whose fields match all of its
// conditions. Rules are applied first-match-wins, ordered by priority
// descending then creation time ascending.
type TransactionRule struct {
	Base
	Name       string      `gorm:"uniqueIndex;not null" json:"name"`
	Conditions []Condition `gorm:"serializer:json;not null" json:"conditions"`
	CategoryID string      `gorm:"type:uuid;not null;index" json:"category_id"`
	IsActive   bool        `gorm:"default:true" json:"is_active"`
	Priority   int         `gorm:"not null;default:0" json:"priority"`
	MatchCount int         `gorm:"not null;default:0" json:"match_count"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// Matches reports whether all of the rule's conditions hold for the
// transaction. Inactive rules and rules without conditions never match.
// Evaluation short-circuits on the first failing condition.
func (r *TransactionRule) Matches(t *Transaction) bool {
	if !r.IsActive || len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		if !c.Matches(t) {
			return false
		}
	}
	return true
}

// MatchesConditions evaluates the rule's conditions regardless of the
// active flag, for dry runs against historical data.
func (r *TransactionRule) MatchesConditions(t *Transaction) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		if !c.Matches(t) {
			return false
		}
	}
	return true
}

// IsEffective reports whether the rule is active and has matched at least
// one transaction.
func (r *TransactionRule) IsEffective() bool {
	return r.IsActive && r.MatchCount > 0
}
