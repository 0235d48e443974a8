package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/domain"
)

func TestNewAccountStatement_RequiresEndAfterStart(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := domain.NewAccountStatement(domain.NewAccountStatementParams{
		LedgerID:      "lgr_x",
		AccountID:     "lat_A",
		StartDatetime: start,
		EndDatetime:   start,
	})
	require.Error(t, err)

	_, err = domain.NewAccountStatement(domain.NewAccountStatementParams{
		LedgerID:      "lgr_x",
		AccountID:     "lat_A",
		StartDatetime: start,
		EndDatetime:   start.Add(-time.Hour),
	})
	require.Error(t, err)
}

func TestNewAccountStatement_RequiresLedgerAndAccount(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := domain.NewAccountStatement(domain.NewAccountStatementParams{
		StartDatetime: start,
		EndDatetime:   start.Add(time.Hour),
	})
	require.Error(t, err)
}

func TestNewAccountStatement_CapturesBalanceSnapshots(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	startBalances := domain.AccountBalances{PostedAmount: 1000}
	endBalances := domain.AccountBalances{PostedAmount: 2500}

	stmt, err := domain.NewAccountStatement(domain.NewAccountStatementParams{
		LedgerID:             "lgr_x",
		AccountID:            "lat_A",
		StartDatetime:        start,
		EndDatetime:          end,
		LedgerAccountVersion: 7,
		StartingBalances:     startBalances,
		EndingBalances:       endBalances,
		Currency:             "USD",
		CurrencyExponent:     2,
	})
	require.NoError(t, err)

	assert.Equal(t, startBalances, stmt.StartingBalances)
	assert.Equal(t, endBalances, stmt.EndingBalances)
	assert.EqualValues(t, 7, stmt.LedgerAccountVersion)
	assert.NotEmpty(t, stmt.ID)
}

func TestSnapshotBalances(t *testing.T) {
	a := domain.Account{
		PendingAmount:    1,
		PostedAmount:     2,
		AvailableAmount:  3,
		PendingCredits:   4,
		PendingDebits:    5,
		PostedCredits:    6,
		PostedDebits:     7,
		AvailableCredits: 8,
		AvailableDebits:  9,
	}
	snap := domain.SnapshotBalances(a)
	assert.Equal(t, domain.AccountBalances{
		PendingAmount:    1,
		PostedAmount:     2,
		AvailableAmount:  3,
		PendingCredits:   4,
		PendingDebits:    5,
		PostedCredits:    6,
		PostedDebits:     7,
		AvailableCredits: 8,
		AvailableDebits:  9,
	}, snap)
}
