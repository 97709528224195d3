//go:build unit || !integration

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesoro-project/tesoro/pkg/model"
)

func TestTransactionsSQL(t *testing.T) {
	stmt, args, err := transactionsSQL(model.TransactionQuery{
		AccountID: "acc-1",
		Kind:      model.KindDeposit,
		Limit:     10,
		Offset:    20,
	}, false)
	require.NoError(t, err)
	assert.Equal(t,
		`select id, account_id, counter_account_id, kind, amount_minor, reference, created_at from transactions`+
			` where (account_id = $1 or counter_account_id = $1) and kind = $2 order by created_at asc limit $3 offset $4`,
		stmt)
	assert.Equal(t, []any{"acc-1", "deposit", 10, 20}, args)
}

func TestTransactionsSQLCountMode(t *testing.T) {
	stmt, args, err := transactionsSQL(model.TransactionQuery{AccountID: "acc-1"}, true)
	require.NoError(t, err)
	assert.Equal(t, `select count(*) from transactions where (account_id = $1 or counter_account_id = $1)`, stmt)
	assert.Equal(t, []any{"acc-1"}, args)
}

func TestTransactionsSQLRejectsUnknownSort(t *testing.T) {
	_, _, err := transactionsSQL(model.TransactionQuery{SortBy: "reference"}, false)
	assert.Error(t, err)
}

func TestTransactionsSQLSortReverse(t *testing.T) {
	stmt, _, err := transactionsSQL(model.TransactionQuery{SortBy: "amount", SortReverse: true}, false)
	require.NoError(t, err)
	assert.Contains(t, stmt, "order by amount_minor desc")
}
