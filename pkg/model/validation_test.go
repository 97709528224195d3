//go:build unit || !integration

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("Ada", "ada@example.com", RoleOperator)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, RoleOperator, u.Role)
	assert.False(t, u.CreatedAt.IsZero())

	_, err = NewUser("", "ada@example.com", RoleViewer)
	assert.Error(t, err)
	_, err = NewUser("Ada", "not-an-email", RoleViewer)
	assert.Error(t, err)
	_, err = NewUser("Ada", "ada@example.com", Role("superuser"))
	assert.Error(t, err)
}

func TestNewAccount(t *testing.T) {
	a, err := NewAccount("owner-1", "operating", "gbp")
	require.NoError(t, err)
	assert.Equal(t, "GBP", a.Currency)
	assert.Equal(t, int64(0), a.BalanceMinor)

	_, err = NewAccount("", "operating", "GBP")
	assert.Error(t, err)
	_, err = NewAccount("owner-1", "operating", "pounds")
	assert.Error(t, err)
}

func TestNewTransaction(t *testing.T) {
	tx, err := NewTransaction("acc-1", "", KindDeposit, 1500, "invoice 42")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), tx.AmountMinor)

	_, err = NewTransaction("acc-1", "", KindDeposit, 0, "")
	assert.Error(t, err, "zero amounts are rejected")
	_, err = NewTransaction("acc-1", "", KindDeposit, -5, "")
	assert.Error(t, err, "negative amounts are rejected")
	_, err = NewTransaction("acc-1", "", KindTransfer, 100, "")
	assert.Error(t, err, "transfers need a counterparty")
	_, err = NewTransaction("acc-1", "acc-1", KindTransfer, 100, "")
	assert.Error(t, err, "transfers cannot pay the source account")
	_, err = NewTransaction("acc-1", "acc-2", KindDeposit, 100, "")
	assert.Error(t, err, "deposits must not name a counterparty")
	_, err = NewTransaction("acc-1", "", TransactionKind("refund"), 100, "")
	assert.Error(t, err)
}
