package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/domain"
)

func TestNewLedger_RequiresCoreFields(t *testing.T) {
	cases := []domain.NewLedgerParams{
		{Name: "ops", Currency: "USD", CurrencyExponent: 2},
		{OrganizationID: "org_x", Currency: "USD", CurrencyExponent: 2},
		{OrganizationID: "org_x", Name: "ops", CurrencyExponent: 2},
	}
	for _, c := range cases {
		_, err := domain.NewLedger(c)
		require.Error(t, err)
	}
}

func TestNewLedger_CurrencyExponentBounds(t *testing.T) {
	base := domain.NewLedgerParams{OrganizationID: "org_x", Name: "ops", Currency: "USD"}

	bad := base
	bad.CurrencyExponent = -1
	_, err := domain.NewLedger(bad)
	require.Error(t, err)

	bad.CurrencyExponent = 19
	_, err = domain.NewLedger(bad)
	require.Error(t, err)

	good := base
	good.CurrencyExponent = 18
	l, err := domain.NewLedger(good)
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
}
