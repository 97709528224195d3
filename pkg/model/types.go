package model

import (
	"time"
)

// Role classifies what a user may do through the admin API. Roles are
// flat labels; there is no hierarchy between them.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a treasury account. Balances are held in integer minor
// units (cents, pence, ...) to keep arithmetic exact.
type Account struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	BalanceMinor int64     `json:"balance_minor"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindTransfer   TransactionKind = "transfer"
)

func IsValidTransactionKind(k TransactionKind) bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTransfer:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry against an account. Transfers
// carry the counterparty account in CounterAccountID; deposits and
// withdrawals leave it empty.
type Transaction struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	CounterAccountID string          `json:"counter_account_id,omitempty"`
	Kind             TransactionKind `json:"kind"`
	AmountMinor      int64           `json:"amount_minor"`
	Reference        string          `json:"reference,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TransactionQuery selects a page of transactions.
type TransactionQuery struct {
	AccountID   string          `json:"account_id"`
	Kind        TransactionKind `json:"kind,omitempty"`
	Limit       int             `json:"limit"`
	Offset      int             `json:"offset"`
	SortBy      string          `json:"sort_by"`
	SortReverse bool            `json:"sort_reverse"`
}
