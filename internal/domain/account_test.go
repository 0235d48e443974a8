package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/domain"
)

func TestNewAccount_RequiresNormalBalance(t *testing.T) {
	_, err := domain.NewAccount(domain.NewAccountParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Name:           "cash",
	})
	assert.Error(t, err)
}

func TestAccount_ApplyEntry_DebitNormalBalance(t *testing.T) {
	a, err := domain.NewAccount(domain.NewAccountParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Name:           "cash",
		NormalBalance:  domain.NormalBalanceDebit,
	})
	require.NoError(t, err)

	// A debit-normal account's balance increases on a posted debit.
	next := a.ApplyEntry(domain.Debit, 10000, true)
	assert.EqualValues(t, 10000, next.PostedAmount)
	assert.EqualValues(t, 10000, next.PostedDebits)
	assert.EqualValues(t, 10000, next.AvailableAmount)

	// ...and decreases on a posted credit.
	next2 := next.ApplyEntry(domain.Credit, 4000, true)
	assert.EqualValues(t, 6000, next2.PostedAmount)
	assert.EqualValues(t, 4000, next2.PostedCredits)
	assert.EqualValues(t, 6000, next2.AvailableAmount)
}

func TestAccount_ApplyEntry_CreditNormalBalance(t *testing.T) {
	a, err := domain.NewAccount(domain.NewAccountParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Name:           "payable",
		NormalBalance:  domain.NormalBalanceCredit,
	})
	require.NoError(t, err)

	next := a.ApplyEntry(domain.Credit, 500, true)
	assert.EqualValues(t, 500, next.PostedAmount)
	assert.EqualValues(t, 500, next.PostedCredits)

	next2 := next.ApplyEntry(domain.Debit, 200, true)
	assert.EqualValues(t, 300, next2.PostedAmount)
}

func TestAccount_ApplyEntry_PendingOnlyAffectsPendingFields(t *testing.T) {
	a, err := domain.NewAccount(domain.NewAccountParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Name:           "cash",
		NormalBalance:  domain.NormalBalanceDebit,
	})
	require.NoError(t, err)

	next := a.ApplyEntry(domain.Debit, 100, false)
	assert.EqualValues(t, 100, next.PendingAmount)
	assert.EqualValues(t, 0, next.PostedAmount)
	// An incoming pending entry does not move available funds yet.
	assert.EqualValues(t, 0, next.AvailableAmount)
}

func TestAccount_ApplyEntry_PendingOutgoingReducesAvailable(t *testing.T) {
	a, err := domain.NewAccount(domain.NewAccountParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Name:           "cash",
		NormalBalance:  domain.NormalBalanceDebit,
	})
	require.NoError(t, err)
	a.PostedAmount = 1000
	a.AvailableAmount = 1000

	next := a.ApplyEntry(domain.Credit, 300, false)
	assert.EqualValues(t, -300, next.PendingAmount)
	assert.EqualValues(t, 700, next.AvailableAmount, "pending outgoing must reduce available funds")
}

func TestAccount_CheckBalanceIdentities(t *testing.T) {
	a, err := domain.NewAccount(domain.NewAccountParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Name:           "cash",
		NormalBalance:  domain.NormalBalanceDebit,
	})
	require.NoError(t, err)

	next := a.ApplyEntry(domain.Debit, 10000, true).ApplyEntry(domain.Credit, 3000, true)
	assert.True(t, next.CheckBalanceIdentities())
}

func TestAccount_PostPending_MovesAmountsIntoPostedAndAvailable(t *testing.T) {
	a, err := domain.NewAccount(domain.NewAccountParams{
		OrganizationID: "org_x",
		LedgerID:       "lgr_x",
		Name:           "cash",
		NormalBalance:  domain.NormalBalanceDebit,
	})
	require.NoError(t, err)

	pending := a.ApplyEntry(domain.Debit, 500, false)
	assert.EqualValues(t, 500, pending.PendingAmount)
	assert.EqualValues(t, 0, pending.PostedAmount)

	posted := pending.PostPending(domain.Debit, 500)
	assert.EqualValues(t, 0, posted.PendingAmount)
	assert.EqualValues(t, 500, posted.PostedAmount)
	assert.EqualValues(t, 500, posted.AvailableAmount)
}
