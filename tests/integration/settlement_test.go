//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/logger"
	"github.com/ledgerforge/ledgerd/internal/postgres"
	"github.com/ledgerforge/ledgerd/internal/service"
)

type settlementHarness struct {
	harness
	settlements *service.SettlementService
}

func setupSettlement(t *testing.T) (settlementHarness, context.Context) {
	h, ctx := setup(t)

	settlementRepo := postgres.NewSettlementRepository(testDB.Pool)
	accountRepo := postgres.NewAccountRepository(testDB.Pool)
	ledgerRepo := postgres.NewLedgerRepository(testDB.Pool)
	transactionRepo := postgres.NewTransactionRepository(testDB.Pool)

	log := logger.NewDefault("test")
	retryPolicy := service.RetryPolicy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond}
	transactionSvc := service.NewTransactionService(transactionRepo, ledgerRepo, retryPolicy, log)

	return settlementHarness{
		harness:     h,
		settlements: service.NewSettlementService(settlementRepo, accountRepo, ledgerRepo, transactionSvc),
	}, ctx
}

// Settlement happy path: post entries to a receivable account, draft a
// settlement, attach the posted entries, process (generates the pending
// balancing transaction through drafting->processing->pending), then
// post the generated transaction and land the settlement at posted.
func TestSettlement_HappyPath(t *testing.T) {
	h, ctx := setupSettlement(t)
	ledger := mustLedger(t, h.harness, ctx)
	receivable := mustAccount(t, h.harness, ctx, ledger.ID, "Receivable", domain.NormalBalanceDebit)
	revenue := mustAccount(t, h.harness, ctx, ledger.ID, "Revenue", domain.NormalBalanceCredit)
	bank := mustAccount(t, h.harness, ctx, ledger.ID, "Bank", domain.NormalBalanceDebit)

	tx, err := h.transactions.Create(ctx, service.CreateParams{
		OrganizationID: testOrgID,
		LedgerID:       ledger.ID,
		Status:         domain.TransactionPending,
		Entries: []domain.Entry{
			entry(receivable.ID, domain.Debit, 5000),
			entry(revenue.ID, domain.Credit, 5000),
		},
	})
	require.NoError(t, err)
	posted, err := h.transactions.Post(ctx, testOrgID, ledger.ID, tx.ID)
	require.NoError(t, err)

	var receivableEntryID string
	for _, e := range posted.Entries {
		if e.AccountID == receivable.ID {
			receivableEntryID = e.ID
		}
	}
	require.NotEmpty(t, receivableEntryID)

	settlement, err := h.settlements.Create(ctx, testOrgID, ledger.ID, receivable.ID, bank.ID, "collect receivable", "ext-ref-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementDrafting, settlement.Status)

	require.NoError(t, h.settlements.AddEntries(ctx, testOrgID, settlement.ID, []string{receivableEntryID}))

	processed, err := h.settlements.Process(ctx, testOrgID, ledger.ID, settlement.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementPending, processed.Status)
	assert.Equal(t, int64(5000), processed.Amount)
	require.NotEmpty(t, processed.TransactionID)

	final, err := h.settlements.PostGeneratedTransaction(ctx, testOrgID, ledger.ID, settlement.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementPosted, final.Status)

	bankAfter, err := h.accounts.Get(ctx, testOrgID, ledger.ID, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), bankAfter.PostedDebits)

	receivableAfter, err := h.accounts.Get(ctx, testOrgID, ledger.ID, receivable.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), receivableAfter.PostedAmount, "settlement credit should net the receivable back to zero")
}
