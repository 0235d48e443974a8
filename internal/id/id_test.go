package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Shape(t *testing.T) {
	got := New(KindLedgerTransaction)
	assert.True(t, HasKind(got, KindLedgerTransaction))

	kind, body, err := Parse(got)
	require.NoError(t, err)
	assert.Equal(t, KindLedgerTransaction, kind)
	assert.Len(t, body, bodyLen)
}

func TestNewAt_LexicographicOrder(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := NewAt(KindLedgerAccount, base)
	later := NewAt(KindLedgerAccount, base.Add(time.Hour))

	assert.Less(t, earlier, later, "identifiers must sort by creation time")
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{"", "noseparator", "ltr_", "ltr_tooshort", "_01HF3ZQJ9X8K6V2RYTG9WQXABC"}
	for _, c := range cases {
		_, _, err := Parse(c)
		assert.Errorf(t, err, "expected error for input %q", c)
	}
}

func TestHasKind_RejectsWrongPrefix(t *testing.T) {
	acct := New(KindLedgerAccount)
	assert.False(t, HasKind(acct, KindLedgerTransaction))
}
