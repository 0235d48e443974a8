package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/domain"
)

func TestNewSettlement_RequiresDistinctAccounts(t *testing.T) {
	_, err := domain.NewSettlement(domain.NewSettlementParams{
		OrganizationID:   "org_x",
		SettledAccountID: "lat_A",
		ContraAccountID:  "lat_A",
		NormalBalance:    domain.NormalBalanceDebit,
	})
	require.Error(t, err)
}

func TestNewSettlement_StartsDrafting(t *testing.T) {
	s, err := domain.NewSettlement(domain.NewSettlementParams{
		OrganizationID:   "org_x",
		SettledAccountID: "lat_A",
		ContraAccountID:  "lat_B",
		NormalBalance:    domain.NormalBalanceDebit,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementDrafting, s.Status)
	assert.Empty(t, s.AttachedEntries)
}

func TestSettlementStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from  domain.SettlementStatus
		to    domain.SettlementStatus
		legal bool
	}{
		{domain.SettlementDrafting, domain.SettlementProcessing, true},
		{domain.SettlementDrafting, domain.SettlementArchiving, true},
		{domain.SettlementDrafting, domain.SettlementPosted, false},
		{domain.SettlementProcessing, domain.SettlementPending, true},
		{domain.SettlementProcessing, domain.SettlementDrafting, false},
		{domain.SettlementPending, domain.SettlementPosted, true},
		{domain.SettlementPosted, domain.SettlementArchiving, true},
		{domain.SettlementPosted, domain.SettlementPending, false},
		{domain.SettlementArchiving, domain.SettlementArchived, true},
		{domain.SettlementArchived, domain.SettlementDrafting, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.legal, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestSettlementStatus_IsMutable(t *testing.T) {
	assert.True(t, domain.SettlementDrafting.IsMutable())
	assert.False(t, domain.SettlementProcessing.IsMutable())
	assert.False(t, domain.SettlementPosted.IsMutable())
	assert.False(t, domain.SettlementArchived.IsMutable())
}

func TestSettlement_CanAttach(t *testing.T) {
	s, err := domain.NewSettlement(domain.NewSettlementParams{
		OrganizationID:   "org_x",
		SettledAccountID: "lat_A",
		ContraAccountID:  "lat_B",
		NormalBalance:    domain.NormalBalanceDebit,
	})
	require.NoError(t, err)

	t.Run("posted entry on settled account is eligible", func(t *testing.T) {
		e := domain.Entry{AccountID: "lat_A", Status: domain.TransactionPosted}
		assert.True(t, s.CanAttach(e))
	})

	t.Run("pending entry is not eligible", func(t *testing.T) {
		e := domain.Entry{AccountID: "lat_A", Status: domain.TransactionPending}
		assert.False(t, s.CanAttach(e))
	})

	t.Run("entry on a different account is not eligible", func(t *testing.T) {
		e := domain.Entry{AccountID: "lat_B", Status: domain.TransactionPosted}
		assert.False(t, s.CanAttach(e))
	})
}
