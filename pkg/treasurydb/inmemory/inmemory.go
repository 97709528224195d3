package inmemory

import (
	"context"
	"sort"
	"time"

	sync "github.com/bacalhau-project/golang-mutex-tracer"
	"github.com/pkg/errors"

	"github.com/tesoro-project/tesoro/pkg/model"
	"github.com/tesoro-project/tesoro/pkg/treasurydb"
)

// InMemoryStore keeps the whole treasury in mutex-guarded maps. We keep
// pointers internally but hand out copies so callers can't mutate the
// store behind the lock's back.
type InMemoryStore struct {
	users        map[string]*model.User
	accounts     map[string]*model.Account
	transactions map[string]*model.Transaction
	txOrder      []string
	mtx          sync.RWMutex
}

var _ treasurydb.Store = (*InMemoryStore)(nil)

func NewInMemoryStore() (*InMemoryStore, error) {
	s := &InMemoryStore{
		users:        map[string]*model.User{},
		accounts:     map[string]*model.Account{},
		transactions: map[string]*model.Transaction{},
	}
	s.mtx.EnableTracerWithOpts(sync.Opts{
		Threshold: 10 * time.Millisecond,
		Id:        "InMemoryStore.mtx",
	})
	return s, nil
}

func (s *InMemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return errors.Wrapf(treasurydb.ErrEmailTaken, "email %s", user.Email)
		}
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *InMemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, errors.Wrapf(treasurydb.ErrUserNotFound, "id %s", id)
	}
	u := *user
	return &u, nil
}

func (s *InMemoryStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	result := make([]*model.User, 0, len(s.users))
	for _, user := range s.users {
		u := *user
		result = append(result, &u)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryStore) UpdateUser(ctx context.Context, user *model.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return errors.Wrapf(treasurydb.ErrUserNotFound, "id %s", user.ID)
	}
	for _, other := range s.users {
		if other.ID != user.ID && other.Email == user.Email {
			return errors.Wrapf(treasurydb.ErrEmailTaken, "email %s", user.Email)
		}
	}
	updated := *user
	updated.CreatedAt = existing.CreatedAt
	s.users[user.ID] = &updated
	return nil
}

func (s *InMemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.users[id]; !ok {
		return errors.Wrapf(treasurydb.ErrUserNotFound, "id %s", id)
	}
	for _, account := range s.accounts {
		if account.OwnerID == id {
			return errors.Wrapf(treasurydb.ErrUserHasAccounts, "id %s", id)
		}
	}
	delete(s.users, id)
	return nil
}

func (s *InMemoryStore) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.users[account.OwnerID]; !ok {
		return errors.Wrapf(treasurydb.ErrUserNotFound, "owner %s", account.OwnerID)
	}
	a := *account
	s.accounts[account.ID] = &a
	return nil
}

func (s *InMemoryStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, errors.Wrapf(treasurydb.ErrAccountNotFound, "id %s", id)
	}
	a := *account
	return &a, nil
}

func (s *InMemoryStore) ListAccounts(ctx context.Context, ownerID string) ([]*model.Account, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	result := []*model.Account{}
	for _, account := range s.accounts {
		if ownerID != "" && account.OwnerID != ownerID {
			continue
		}
		a := *account
		result = append(result, &a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryStore) AddTransaction(ctx context.Context, tx *model.Transaction) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	account, ok := s.accounts[tx.AccountID]
	if !ok {
		return errors.Wrapf(treasurydb.ErrAccountNotFound, "id %s", tx.AccountID)
	}

	now := time.Now().UTC()
	switch tx.Kind {
	case model.KindDeposit:
		account.BalanceMinor += tx.AmountMinor
	case model.KindWithdrawal:
		if account.BalanceMinor < tx.AmountMinor {
			return errors.Wrapf(treasurydb.ErrInsufficientFunds,
				"account %s holds %d, needs %d", account.ID, account.BalanceMinor, tx.AmountMinor)
		}
		account.BalanceMinor -= tx.AmountMinor
	case model.KindTransfer:
		if tx.CounterAccountID == tx.AccountID {
			return errors.Errorf("transfer within account %s", tx.AccountID)
		}
		counter, ok := s.accounts[tx.CounterAccountID]
		if !ok {
			return errors.Wrapf(treasurydb.ErrAccountNotFound, "counterparty %s", tx.CounterAccountID)
		}
		if counter.Currency != account.Currency {
			return errors.Wrapf(treasurydb.ErrCurrencyMismatch,
				"%s vs %s", account.Currency, counter.Currency)
		}
		if account.BalanceMinor < tx.AmountMinor {
			return errors.Wrapf(treasurydb.ErrInsufficientFunds,
				"account %s holds %d, needs %d", account.ID, account.BalanceMinor, tx.AmountMinor)
		}
		account.BalanceMinor -= tx.AmountMinor
		counter.BalanceMinor += tx.AmountMinor
		counter.UpdatedAt = now
	default:
		return errors.Errorf("invalid transaction kind %q", tx.Kind)
	}
	account.UpdatedAt = now

	entry := *tx
	s.transactions[tx.ID] = &entry
	s.txOrder = append(s.txOrder, tx.ID)
	return nil
}

func (s *InMemoryStore) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, errors.Wrapf(treasurydb.ErrTransactionNotFound, "id %s", id)
	}
	entry := *tx
	return &entry, nil
}

func (s *InMemoryStore) ListTransactions(ctx context.Context, query model.TransactionQuery) ([]*model.Transaction, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	matched := s.match(query)

	if query.SortBy == "" || query.SortBy == "created_at" {
		sort.SliceStable(matched, func(i, j int) bool {
			if query.SortReverse {
				i, j = j, i
			}
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})
	} else if query.SortBy == "amount" {
		sort.SliceStable(matched, func(i, j int) bool {
			if query.SortReverse {
				i, j = j, i
			}
			return matched[i].AmountMinor < matched[j].AmountMinor
		})
	} else {
		return nil, errors.Errorf("unsupported sort field %q", query.SortBy)
	}

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return []*model.Transaction{}, nil
		}
		matched = matched[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(matched) {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

func (s *InMemoryStore) CountTransactions(ctx context.Context, query model.TransactionQuery) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.match(query)), nil
}

// match returns copies of the transactions selected by query, in
// insertion order. Callers still holding the read lock may sort and
// slice the result freely.
func (s *InMemoryStore) match(query model.TransactionQuery) []*model.Transaction {
	result := []*model.Transaction{}
	for _, id := range s.txOrder {
		tx := s.transactions[id]
		if query.AccountID != "" && tx.AccountID != query.AccountID && tx.CounterAccountID != query.AccountID {
			continue
		}
		if query.Kind != "" && tx.Kind != query.Kind {
			continue
		}
		entry := *tx
		result = append(result, &entry)
	}
	return result
}

func (s *InMemoryStore) Close() error {
	return nil
}
