package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/domain"
)

func TestNewBalanceMonitor_RequiresAccountAndConditions(t *testing.T) {
	_, err := domain.NewBalanceMonitor(domain.NewBalanceMonitorParams{})
	require.Error(t, err)

	_, err = domain.NewBalanceMonitor(domain.NewBalanceMonitorParams{AccountID: "lat_A"})
	require.Error(t, err)
}

func TestAlertCondition_Evaluate(t *testing.T) {
	a := domain.Account{PostedAmount: 5000}

	cases := []struct {
		name      string
		condition domain.AlertCondition
		expect    bool
	}{
		{"balance below threshold triggers", domain.AlertCondition{Field: domain.MonitorFieldBalance, Operator: domain.OpLessThan, Value: 10000}, true},
		{"balance above threshold does not trigger", domain.AlertCondition{Field: domain.MonitorFieldBalance, Operator: domain.OpGreaterThan, Value: 10000}, false},
		{"equality match", domain.AlertCondition{Field: domain.MonitorFieldBalance, Operator: domain.OpEqual, Value: 5000}, true},
		{"not-equal mismatch", domain.AlertCondition{Field: domain.MonitorFieldBalance, Operator: domain.OpNotEqual, Value: 5000}, false},
		{"unknown field never triggers", domain.AlertCondition{Field: "bogus", Operator: domain.OpEqual, Value: 0}, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.expect, c.condition.Evaluate(a), c.name)
	}
}

func TestBalanceMonitor_Evaluate_ReturnsOnlyTriggeredConditions(t *testing.T) {
	m, err := domain.NewBalanceMonitor(domain.NewBalanceMonitorParams{
		AccountID: "lat_A",
		AlertConditions: []domain.AlertCondition{
			{Field: domain.MonitorFieldBalance, Operator: domain.OpLessThan, Value: 1000},
			{Field: domain.MonitorFieldBalance, Operator: domain.OpGreaterThan, Value: 1000},
		},
	})
	require.NoError(t, err)

	triggered := m.Evaluate(domain.Account{PostedAmount: 500})
	require.Len(t, triggered, 1)
	assert.Equal(t, domain.OpLessThan, triggered[0].Operator)
}

func TestAlertCondition_Evaluate_TimeFields(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := domain.Account{Created: created}
	c := domain.AlertCondition{Field: domain.MonitorFieldCreated, Operator: domain.OpEqual, Value: created.UnixMilli()}
	assert.True(t, c.Evaluate(a))
}
