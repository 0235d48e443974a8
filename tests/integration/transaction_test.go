//go:build integration

package integration_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/logger"
	"github.com/ledgerforge/ledgerd/internal/postgres"
	"github.com/ledgerforge/ledgerd/internal/service"
	"github.com/ledgerforge/ledgerd/testutil/testdb"
)

var testDB *testdb.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = testdb.NewTestDB(ctx)
	if err != nil {
		panic("failed to create test database: " + err.Error())
	}

	code := m.Run()

	testDB.Close(ctx)
	if code != 0 {
		os.Exit(code)
	}
}

const testOrgID = "org_01HTESTORGANIZATIONAAAA"

type harness struct {
	ledgers      *service.LedgerService
	accounts     *service.AccountService
	transactions *service.TransactionService
}

func setup(t *testing.T) (harness, context.Context) {
	ctx := context.Background()
	require.NoError(t, testDB.Reset(ctx))

	ledgerRepo := postgres.NewLedgerRepository(testDB.Pool)
	accountRepo := postgres.NewAccountRepository(testDB.Pool)
	transactionRepo := postgres.NewTransactionRepository(testDB.Pool)

	log := logger.NewDefault("test")
	retryPolicy := service.RetryPolicy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond}

	return harness{
		ledgers:      service.NewLedgerService(ledgerRepo),
		accounts:     service.NewAccountService(accountRepo, ledgerRepo),
		transactions: service.NewTransactionService(transactionRepo, ledgerRepo, retryPolicy, log),
	}, ctx
}

func mustLedger(t *testing.T, h harness, ctx context.Context) *domain.Ledger {
	l, err := h.ledgers.Create(ctx, domain.NewLedgerParams{
		OrganizationID:   testOrgID,
		Name:             "Operating",
		Currency:         "USD",
		CurrencyExponent: 2,
	})
	require.NoError(t, err)
	return l
}

func mustAccount(t *testing.T, h harness, ctx context.Context, ledgerID, name string, normal domain.NormalBalance) *domain.Account {
	a, err := h.accounts.Create(ctx, domain.NewAccountParams{
		OrganizationID: testOrgID,
		LedgerID:       ledgerID,
		Name:           name,
		NormalBalance:  normal,
	})
	require.NoError(t, err)
	return a
}

func entry(accountID string, direction domain.Direction, amount int64) domain.Entry {
	return domain.Entry{
		AccountID:        accountID,
		Direction:        direction,
		Amount:           amount,
		Currency:         "USD",
		CurrencyExponent: 2,
	}
}

// Simple balanced transaction: a debit to cash, a credit to revenue,
// both move from pending into posted balances correctly.
func TestCreateTransaction_SimpleBalanced(t *testing.T) {
	h, ctx := setup(t)
	ledger := mustLedger(t, h, ctx)
	cash := mustAccount(t, h, ctx, ledger.ID, "Cash", domain.NormalBalanceDebit)
	revenue := mustAccount(t, h, ctx, ledger.ID, "Revenue", domain.NormalBalanceCredit)

	tx, err := h.transactions.Create(ctx, service.CreateParams{
		OrganizationID: testOrgID,
		LedgerID:       ledger.ID,
		Description:    "cash sale",
		Status:         domain.TransactionPending,
		Entries: []domain.Entry{
			entry(cash.ID, domain.Debit, 10000),
			entry(revenue.ID, domain.Credit, 10000),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPending, tx.Status)

	got, err := h.accounts.Get(ctx, testOrgID, ledger.ID, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.PendingDebits)
	assert.Equal(t, int64(10000), got.PendingAmount)

	posted, err := h.transactions.Post(ctx, testOrgID, ledger.ID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionPosted, posted.Status)

	got, err = h.accounts.Get(ctx, testOrgID, ledger.ID, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.PendingAmount)
	assert.Equal(t, int64(10000), got.PostedDebits)
	assert.Equal(t, int64(10000), got.PostedAmount)
}

// Unbalanced entries must be rejected before anything is written.
func TestCreateTransaction_UnbalancedRejected(t *testing.T) {
	h, ctx := setup(t)
	ledger := mustLedger(t, h, ctx)
	cash := mustAccount(t, h, ctx, ledger.ID, "Cash", domain.NormalBalanceDebit)
	revenue := mustAccount(t, h, ctx, ledger.ID, "Revenue", domain.NormalBalanceCredit)

	_, err := h.transactions.Create(ctx, service.CreateParams{
		OrganizationID: testOrgID,
		LedgerID:       ledger.ID,
		Status:         domain.TransactionPending,
		Entries: []domain.Entry{
			entry(cash.ID, domain.Debit, 10000),
			entry(revenue.ID, domain.Credit, 9999),
		},
	})
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

// A repeat Create with the same idempotency key and identical content
// returns the original transaction rather than creating a duplicate.
func TestCreateTransaction_IdempotencyKeyReplay(t *testing.T) {
	h, ctx := setup(t)
	ledger := mustLedger(t, h, ctx)
	cash := mustAccount(t, h, ctx, ledger.ID, "Cash", domain.NormalBalanceDebit)
	revenue := mustAccount(t, h, ctx, ledger.ID, "Revenue", domain.NormalBalanceCredit)

	params := service.CreateParams{
		OrganizationID: testOrgID,
		LedgerID:       ledger.ID,
		IdempotencyKey: "order-42",
		Status:         domain.TransactionPending,
		Entries: []domain.Entry{
			entry(cash.ID, domain.Debit, 500),
			entry(revenue.ID, domain.Credit, 500),
		},
	}

	first, err := h.transactions.Create(ctx, params)
	require.NoError(t, err)

	second, err := h.transactions.Create(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	accounts, err := h.accounts.List(ctx, testOrgID, ledger.ID, 10, 0)
	require.NoError(t, err)
	for _, a := range accounts {
		assert.Equal(t, int64(500), a.PendingAmount, "account %s must only reflect one applied transaction", a.Name)
	}

	// A replay with the same key but different content is a conflict.
	params.Entries[0].Amount = 600
	params.Entries[1].Amount = 600
	_, err = h.transactions.Create(ctx, params)
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, appErr.Kind)
}

// Concurrent transactions against the same account race on
// lock_version; the retry wrapper must absorb the optimistic-lock
// conflicts and land all n transactions.
func TestCreateTransaction_ConcurrentOptimisticLockRetried(t *testing.T) {
	h, ctx := setup(t)
	ledger := mustLedger(t, h, ctx)
	cash := mustAccount(t, h, ctx, ledger.ID, "Cash", domain.NormalBalanceDebit)
	revenue := mustAccount(t, h, ctx, ledger.ID, "Revenue", domain.NormalBalanceCredit)

	const n = 10
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := h.transactions.Create(ctx, service.CreateParams{
				OrganizationID: testOrgID,
				LedgerID:       ledger.ID,
				Status:         domain.TransactionPending,
				Entries: []domain.Entry{
					entry(cash.ID, domain.Debit, 100),
					entry(revenue.ID, domain.Credit, 100),
				},
			})
			errCh <- err
		}()
	}

	for i := 0; i < n; i++ {
		require.NoError(t, <-errCh)
	}

	got, err := h.accounts.Get(ctx, testOrgID, ledger.ID, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100*n), got.PendingAmount)
}
