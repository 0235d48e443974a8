package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/domain"
)

func balancedEntries() []domain.Entry {
	return []domain.Entry{
		{AccountID: "lat_A", Direction: domain.Debit, Amount: 10000, Currency: "USD", CurrencyExponent: 2},
		{AccountID: "lat_B", Direction: domain.Credit, Amount: 10000, Currency: "USD", CurrencyExponent: 2},
	}
}

func TestNewTransaction_Scenario1_SimpleBalancedTransaction(t *testing.T) {
	tx, err := domain.NewTransaction(domain.NewTransactionParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Entries:        balancedEntries(),
		Status:         domain.TransactionPosted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPosted, tx.Status)
	assert.Len(t, tx.Entries, 2)
	for _, e := range tx.Entries {
		assert.Equal(t, domain.TransactionPosted, e.Status)
		assert.Equal(t, tx.ID, e.TransactionID)
	}
}

func TestNewTransaction_Scenario3_UnbalancedRejected(t *testing.T) {
	entries := []domain.Entry{
		{AccountID: "lat_A", Direction: domain.Debit, Amount: 10000, Currency: "USD", CurrencyExponent: 2},
		{AccountID: "lat_B", Direction: domain.Credit, Amount: 9999, Currency: "USD", CurrencyExponent: 2},
	}
	_, err := domain.NewTransaction(domain.NewTransactionParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Entries:        entries,
	})
	require.Error(t, err)
}

func TestNewTransaction_I2_DuplicateAccountRejected(t *testing.T) {
	entries := []domain.Entry{
		{AccountID: "lat_A", Direction: domain.Debit, Amount: 5000, Currency: "USD", CurrencyExponent: 2},
		{AccountID: "lat_A", Direction: domain.Credit, Amount: 5000, Currency: "USD", CurrencyExponent: 2},
	}
	_, err := domain.NewTransaction(domain.NewTransactionParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Entries:        entries,
	})
	require.Error(t, err)
}

func TestNewTransaction_RequiresAtLeastTwoEntries(t *testing.T) {
	entries := []domain.Entry{
		{AccountID: "lat_A", Direction: domain.Debit, Amount: 5000, Currency: "USD", CurrencyExponent: 2},
	}
	_, err := domain.NewTransaction(domain.NewTransactionParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Entries:        entries,
	})
	require.Error(t, err)
}

func TestNewTransaction_BoundaryAmounts(t *testing.T) {
	t.Run("zero amount rejected", func(t *testing.T) {
		entries := []domain.Entry{
			{AccountID: "lat_A", Direction: domain.Debit, Amount: 0, Currency: "USD", CurrencyExponent: 2},
			{AccountID: "lat_B", Direction: domain.Credit, Amount: 0, Currency: "USD", CurrencyExponent: 2},
		}
		_, err := domain.NewTransaction(domain.NewTransactionParams{
			OrganizationID: "org_x", LedgerID: "lgr_x", Entries: entries,
		})
		require.Error(t, err)
	})

	t.Run("max int64 amount accepted", func(t *testing.T) {
		const max = int64(9223372036854775807)
		entries := []domain.Entry{
			{AccountID: "lat_A", Direction: domain.Debit, Amount: max, Currency: "USD", CurrencyExponent: 2},
			{AccountID: "lat_B", Direction: domain.Credit, Amount: max, Currency: "USD", CurrencyExponent: 2},
		}
		_, err := domain.NewTransaction(domain.NewTransactionParams{
			OrganizationID: "org_x", LedgerID: "lgr_x", Entries: entries,
		})
		require.NoError(t, err)
	})
}

func TestTransactionStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from  domain.TransactionStatus
		to    domain.TransactionStatus
		legal bool
	}{
		{domain.TransactionPending, domain.TransactionPosted, true},
		{domain.TransactionPending, domain.TransactionArchived, true},
		{domain.TransactionPosted, domain.TransactionArchived, true},
		{domain.TransactionPosted, domain.TransactionPending, false},
		{domain.TransactionArchived, domain.TransactionPosted, false},
		{domain.TransactionArchived, domain.TransactionPending, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.legal, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTransaction_SameContent(t *testing.T) {
	tx1, err := domain.NewTransaction(domain.NewTransactionParams{
		OrganizationID: "org_x", LedgerID: "lgr_x", Entries: balancedEntries(),
	})
	require.NoError(t, err)

	tx2, err := domain.NewTransaction(domain.NewTransactionParams{
		OrganizationID: "org_x", LedgerID: "lgr_x", Entries: balancedEntries(),
	})
	require.NoError(t, err)

	assert.True(t, tx1.SameContent(tx2))

	tx3, err := domain.NewTransaction(domain.NewTransactionParams{
		OrganizationID: "org_x", LedgerID: "lgr_x",
		Entries: []domain.Entry{
			{AccountID: "lat_A", Direction: domain.Debit, Amount: 1, Currency: "USD", CurrencyExponent: 2},
			{AccountID: "lat_B", Direction: domain.Credit, Amount: 1, Currency: "USD", CurrencyExponent: 2},
		},
	})
	require.NoError(t, err)
	assert.False(t, tx1.SameContent(tx3))
}
