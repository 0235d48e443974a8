package domain

import (
	"time"

	"github.com/ledgerforge/ledgerd/internal/id"
)

// MonitorField is the account field an alert condition watches.
type MonitorField string

const (
	MonitorFieldBalance MonitorField = "balance"
	MonitorFieldCreated MonitorField = "created"
	MonitorFieldUpdated MonitorField = "updated"
)

// MonitorOperator is the comparison applied to a MonitorField's value.
type MonitorOperator string

const (
	OpEqual        MonitorOperator = "="
	OpLessThan     MonitorOperator = "<"
	OpGreaterThan  MonitorOperator = ">"
	OpLessOrEqual  MonitorOperator = "<="
	OpGreaterOrEq  MonitorOperator = ">="
	OpNotEqual     MonitorOperator = "!="
)

// AlertCondition is one clause of a BalanceMonitor.
type AlertCondition struct {
	Field    MonitorField
	Operator MonitorOperator
	Value    int64 // interpreted per Field: minor units for balance, unix millis for created/updated
}

// Evaluate reports whether the condition currently holds for account a.
func (c AlertCondition) Evaluate(a Account) bool {
	var actual int64
	switch c.Field {
	case MonitorFieldBalance:
		actual = a.PostedAmount
	case MonitorFieldCreated:
		actual = a.Created.UnixMilli()
	case MonitorFieldUpdated:
		actual = a.Updated.UnixMilli()
	default:
		return false
	}

	switch c.Operator {
	case OpEqual:
		return actual == c.Value
	case OpLessThan:
		return actual < c.Value
	case OpGreaterThan:
		return actual > c.Value
	case OpLessOrEqual:
		return actual <= c.Value
	case OpGreaterOrEq:
		return actual >= c.Value
	case OpNotEqual:
		return actual != c.Value
	default:
		return false
	}
}

// BalanceMonitor watches an Account for alert conditions.
type BalanceMonitor struct {
	ID              string
	AccountID       string
	AlertConditions []AlertCondition
	Description     string
	Metadata        map[string]any
	LockVersion     int64
	Created         time.Time
	Updated         time.Time
}

// NewBalanceMonitorParams carries caller-supplied monitor fields.
type NewBalanceMonitorParams struct {
	AccountID       string
	AlertConditions []AlertCondition
	Description     string
	Metadata        map[string]any
}

// NewBalanceMonitor validates and constructs a BalanceMonitor.
func NewBalanceMonitor(p NewBalanceMonitorParams) (*BalanceMonitor, error) {
	if p.AccountID == "" {
		return nil, errValidation("accountId is required")
	}
	if len(p.AlertConditions) == 0 {
		return nil, errValidation("at least one alert condition is required")
	}

	now := time.Now().UTC()
	return &BalanceMonitor{
		ID:              id.New(id.KindLedgerBalanceMon),
		AccountID:       p.AccountID,
		AlertConditions: p.AlertConditions,
		Description:     p.Description,
		Metadata:        p.Metadata,
		LockVersion:     0,
		Created:         now,
		Updated:         now,
	}, nil
}

// Evaluate returns the subset of conditions that currently hold for a.
func (m *BalanceMonitor) Evaluate(a Account) []AlertCondition {
	var triggered []AlertCondition
	for _, c := range m.AlertConditions {
		if c.Evaluate(a) {
			triggered = append(triggered, c)
		}
	}
	return triggered
}
