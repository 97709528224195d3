package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NewUser builds a validated user with a fresh id.
func NewUser(name, email string, role Role) (*User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("user name must not be empty")
	}
	if !strings.Contains(email, "@") {
		return nil, errors.Errorf("invalid email address %q", email)
	}
	if !IsValidRole(role) {
		return nil, errors.Errorf("invalid role %q", role)
	}
	return &User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewAccount builds a validated account with a fresh id and a zero
// balance.
func NewAccount(ownerID, name, currency string) (*Account, error) {
	if ownerID == "" {
		return nil, errors.New("account owner must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("account name must not be empty")
	}
	if len(currency) != 3 { //nolint:gomnd // ISO 4217 alpha codes
		return nil, errors.Errorf("invalid currency code %q", currency)
	}
	now := time.Now().UTC()
	return &Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Currency:  strings.ToUpper(currency),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewTransaction builds a validated ledger entry with a fresh id.
func NewTransaction(
	accountID, counterAccountID string,
	kind TransactionKind,
	amountMinor int64,
	reference string,
) (*Transaction, error) {
	if accountID == "" {
		return nil, errors.New("transaction account must not be empty")
	}
	if !IsValidTransactionKind(kind) {
		return nil, errors.Errorf("invalid transaction kind %q", kind)
	}
	if amountMinor <= 0 {
		return nil, errors.Errorf("transaction amount must be positive, got %d", amountMinor)
	}
	if kind == KindTransfer && counterAccountID == "" {
		return nil, errors.New("transfer requires a counterparty account")
	}
	if kind == KindTransfer && counterAccountID == accountID {
		return nil, errors.New("transfer counterparty must differ from the source account")
	}
	if kind != KindTransfer && counterAccountID != "" {
		return nil, errors.Errorf("%s must not name a counterparty account", kind)
	}
	return &Transaction{
		ID:               uuid.NewString(),
		AccountID:        accountID,
		CounterAccountID: counterAccountID,
		Kind:             kind,
		AmountMinor:      amountMinor,
		Reference:        reference,
		CreatedAt:        time.Now().UTC(),
	}, nil
}
