package treasurydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tesoro-project/tesoro/pkg/model"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUserHasAccounts     = errors.New("user still owns accounts")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrCurrencyMismatch    = errors.New("accounts hold different currencies")
)

// Store persists users, accounts and their transaction ledger. The
// in-memory implementation backs tests and DSN-less development runs;
// the postgres implementation is the production store. AddTransaction
// applies the ledger entry and its balance effects atomically: either
// the transaction row and every touched balance land together, or
// nothing does.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error

	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]*model.Account, error)

	AddTransaction(ctx context.Context, tx *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, query model.TransactionQuery) ([]*model.Transaction, error)
	CountTransactions(ctx context.Context, query model.TransactionQuery) (int, error)

	Close() error
}
