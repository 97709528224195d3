//go:build unit || !integration

package publicapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/suite"

	"github.com/tesoro-project/tesoro/pkg/cache/basic"
	"github.com/tesoro-project/tesoro/pkg/logger"
	"github.com/tesoro-project/tesoro/pkg/model"
	"github.com/tesoro-project/tesoro/pkg/publicapi"
	"github.com/tesoro-project/tesoro/pkg/system"
	"github.com/tesoro-project/tesoro/pkg/treasurydb/inmemory"
)

type ServerSuite struct {
	suite.Suite
	ctx    context.Context
	client *publicapi.APIClient
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.ctx = context.Background()

	port, err := freeport.GetFreePort()
	s.Require().NoError(err)

	store, err := inmemory.NewInMemoryStore()
	s.Require().NoError(err)

	c, err := basic.NewCache[any](basic.WithDefaultTTL(time.Minute))
	s.Require().NoError(err)

	cm := system.NewCleanupManager()
	cm.RegisterCallback(func() error {
		c.Close()
		return store.Close()
	})
	s.T().Cleanup(cm.Cleanup)

	server := publicapi.NewServer("127.0.0.1", port, store, c, nil)
	go func() {
		_ = server.ListenAndServe(s.ctx, cm)
	}()

	s.client = publicapi.NewAPIClient(server.GetURI())
	s.Require().Eventually(func() bool {
		alive, _ := s.client.Alive(s.ctx)
		return alive
	}, 5*time.Second, 10*time.Millisecond)
}

func (s *ServerSuite) mustUser(email string) *model.User {
	user, err := s.client.CreateUser(s.ctx, publicapi.CreateUserRequest{
		Name:  "Ada",
		Email: email,
		Role:  model.RoleOperator,
	})
	s.Require().NoError(err)
	return user
}

func (s *ServerSuite) mustAccount(ownerID, name string) *model.Account {
	account, err := s.client.CreateAccount(s.ctx, publicapi.CreateAccountRequest{
		OwnerID:  ownerID,
		Name:     name,
		Currency: "GBP",
	})
	s.Require().NoError(err)
	return account
}

func (s *ServerSuite) mustDeposit(accountID string, amount int64) *model.Transaction {
	entry, err := s.client.CreateTransaction(s.ctx, publicapi.CreateTransactionRequest{
		AccountID:   accountID,
		Kind:        model.KindDeposit,
		AmountMinor: amount,
	})
	s.Require().NoError(err)
	return entry
}

func (s *ServerSuite) TestVersion() {
	info, err := s.client.Version(s.ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(info.GitVersion)
}

func (s *ServerSuite) TestUserLifecycle() {
	user := s.mustUser("ada@example.com")

	loaded, err := s.client.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Equal(user.Email, loaded.Email)

	users, err := s.client.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)

	updated, err := s.client.UpdateUser(s.ctx, publicapi.UpdateUserRequest{
		ID:    user.ID,
		Name:  "Ada Lovelace",
		Email: user.Email,
		Role:  model.RoleAdmin,
	})
	s.Require().NoError(err)
	s.Require().Equal(model.RoleAdmin, updated.Role)
	// the response reflects the stored record, not the request
	s.Require().True(updated.CreatedAt.Equal(user.CreatedAt))

	_, err = s.client.UpdateUser(s.ctx, publicapi.UpdateUserRequest{
		ID:    user.ID,
		Name:  "Ada Lovelace",
		Email: "not-an-email",
		Role:  model.RoleAdmin,
	})
	s.Require().Error(err)

	// the update invalidated the cached read
	loaded, err = s.client.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Equal("Ada Lovelace", loaded.Name)

	s.Require().NoError(s.client.DeleteUser(s.ctx, user.ID))
	_, err = s.client.GetUser(s.ctx, user.ID)
	s.Require().Error(err)
}

func (s *ServerSuite) TestTransferUpdatesBalancesThroughCache() {
	user := s.mustUser("ada@example.com")
	from := s.mustAccount(user.ID, "operating")
	to := s.mustAccount(user.ID, "reserve")
	s.mustDeposit(from.ID, 10_00)

	// prime the cache with both balances
	loaded, err := s.client.GetAccount(s.ctx, from.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(10_00), loaded.BalanceMinor)
	_, err = s.client.GetAccount(s.ctx, to.ID)
	s.Require().NoError(err)

	_, err = s.client.CreateTransaction(s.ctx, publicapi.CreateTransactionRequest{
		AccountID:        from.ID,
		CounterAccountID: to.ID,
		Kind:             model.KindTransfer,
		AmountMinor:      4_00,
	})
	s.Require().NoError(err)

	// cached balances were invalidated by the write, so reads are fresh
	fromLoaded, err := s.client.GetAccount(s.ctx, from.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(6_00), fromLoaded.BalanceMinor)

	toLoaded, err := s.client.GetAccount(s.ctx, to.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(4_00), toLoaded.BalanceMinor)
}

func (s *ServerSuite) TestOverdraftRejected() {
	user := s.mustUser("ada@example.com")
	account := s.mustAccount(user.ID, "operating")
	s.mustDeposit(account.ID, 1_00)

	_, err := s.client.CreateTransaction(s.ctx, publicapi.CreateTransactionRequest{
		AccountID:   account.ID,
		Kind:        model.KindWithdrawal,
		AmountMinor: 2_00,
	})
	s.Require().Error(err)
	s.Require().Contains(err.Error(), "insufficient funds")
}

func (s *ServerSuite) TestListTransactions() {
	user := s.mustUser("ada@example.com")
	account := s.mustAccount(user.ID, "operating")
	for i := 1; i <= 3; i++ {
		s.mustDeposit(account.ID, int64(i)*1_00)
	}

	res, err := s.client.ListTransactions(s.ctx, model.TransactionQuery{
		AccountID: account.ID,
		SortBy:    "amount",
		Limit:     2,
	})
	s.Require().NoError(err)
	s.Require().Equal(3, res.Total)
	s.Require().Len(res.Transactions, 2)
	s.Require().Equal(int64(1_00), res.Transactions[0].AmountMinor)
}

func (s *ServerSuite) TestCacheStatsAndRepeatReads() {
	user := s.mustUser("ada@example.com")

	before, err := s.client.CacheStats(s.ctx)
	s.Require().NoError(err)

	// first read misses, second read hits
	_, err = s.client.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	_, err = s.client.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)

	after, err := s.client.CacheStats(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(before.Misses+1, after.Misses)
	s.Require().Equal(before.Hits+1, after.Hits)
}

func (s *ServerSuite) TestCacheInvalidateEndpoint() {
	user := s.mustUser("ada@example.com")

	_, err := s.client.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)

	removed, err := s.client.InvalidateCache(s.ctx, "user:")
	s.Require().NoError(err)
	s.Require().Equal(1, removed)

	removed, err = s.client.InvalidateCache(s.ctx, "user:")
	s.Require().NoError(err)
	s.Require().Equal(0, removed)
}

func (s *ServerSuite) TestRejectsUnknownFields() {
	body := map[string]any{
		"name":     "Ada",
		"email":    "ada@example.com",
		"role":     "admin",
		"surprise": true,
	}
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	res, err := http.Post(
		s.client.BaseURI+"/api/v1/users", "application/json", bytes.NewReader(raw))
	s.Require().NoError(err)
	defer res.Body.Close()
	s.Require().Equal(http.StatusBadRequest, res.StatusCode)
}
