package publicapi

import (
	"github.com/tesoro-project/tesoro/pkg/cache"
	"github.com/tesoro-project/tesoro/pkg/model"
	"github.com/tesoro-project/tesoro/pkg/version"
)

type CreateUserRequest struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type UpdateUserRequest struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type DeleteUserRequest struct {
	ID string `json:"id"`
}

type CreateAccountRequest struct {
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type CreateTransactionRequest struct {
	AccountID        string                `json:"account_id"`
	CounterAccountID string                `json:"counter_account_id,omitempty"`
	Kind             model.TransactionKind `json:"kind"`
	AmountMinor      int64                 `json:"amount_minor"`
	Reference        string                `json:"reference,omitempty"`
}

type ListUsersResponse struct {
	Users []*model.User `json:"users"`
}

type ListAccountsResponse struct {
	Accounts []*model.Account `json:"accounts"`
}

type ListTransactionsResponse struct {
	Transactions []*model.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
}

type InvalidateCacheRequest struct {
	// Pattern is matched as a substring against every cache key. The
	// empty pattern matches everything.
	Pattern string `json:"pattern"`
}

type InvalidateCacheResponse struct {
	Removed int `json:"removed"`
}

type CacheStatsResponse struct {
	Stats cache.Stats `json:"stats"`
}

type HealthzResponse struct {
	Status string `json:"status"`
}

type VersionResponse struct {
	VersionInfo *version.BuildVersionInfo `json:"build_version_info"`
}
