package storetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tesoro-project/tesoro/pkg/logger"
	"github.com/tesoro-project/tesoro/pkg/model"
	"github.com/tesoro-project/tesoro/pkg/treasurydb"
)

// StoreSuite runs the treasurydb.Store contract against any
// implementation. SetupHandler must return a fresh, empty store;
// TeardownHandler (optional) tears down whatever backs it.
type StoreSuite struct {
	suite.Suite
	SetupHandler    func() treasurydb.Store
	TeardownHandler func()

	store treasurydb.Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.store = s.SetupHandler()
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
	if s.TeardownHandler != nil {
		s.TeardownHandler()
	}
}

func (s *StoreSuite) mustUser(name, email string) *model.User {
	user, err := model.NewUser(name, email, model.RoleOperator)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateUser(s.ctx, user))
	return user
}

func (s *StoreSuite) mustAccount(ownerID, name string) *model.Account {
	account, err := model.NewAccount(ownerID, name, "GBP")
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateAccount(s.ctx, account))
	return account
}

func (s *StoreSuite) mustDeposit(accountID string, amount int64) {
	tx, err := model.NewTransaction(accountID, "", model.KindDeposit, amount, "")
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddTransaction(s.ctx, tx))
}

func (s *StoreSuite) TestUserRoundtrip() {
	user := s.mustUser("Ada", "ada@example.com")

	loaded, err := s.store.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Equal(user.Email, loaded.Email)
	s.Require().Equal(user.Role, loaded.Role)
}

func (s *StoreSuite) TestUserNotFound() {
	_, err := s.store.GetUser(s.ctx, "nope")
	s.Require().ErrorIs(err, treasurydb.ErrUserNotFound)
}

func (s *StoreSuite) TestDuplicateEmailRejected() {
	s.mustUser("Ada", "ada@example.com")

	dup, err := model.NewUser("Also Ada", "ada@example.com", model.RoleViewer)
	s.Require().NoError(err)
	err = s.store.CreateUser(s.ctx, dup)
	s.Require().ErrorIs(err, treasurydb.ErrEmailTaken)
}

func (s *StoreSuite) TestUpdateAndDeleteUser() {
	user := s.mustUser("Ada", "ada@example.com")

	user.Role = model.RoleAdmin
	s.Require().NoError(s.store.UpdateUser(s.ctx, user))

	loaded, err := s.store.GetUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Equal(model.RoleAdmin, loaded.Role)

	s.Require().NoError(s.store.DeleteUser(s.ctx, user.ID))
	_, err = s.store.GetUser(s.ctx, user.ID)
	s.Require().ErrorIs(err, treasurydb.ErrUserNotFound)
	s.Require().ErrorIs(s.store.DeleteUser(s.ctx, user.ID), treasurydb.ErrUserNotFound)
}

func (s *StoreSuite) TestDeleteUserWithAccountsRejected() {
	user := s.mustUser("Ada", "ada@example.com")
	s.mustAccount(user.ID, "operating")

	err := s.store.DeleteUser(s.ctx, user.ID)
	s.Require().ErrorIs(err, treasurydb.ErrUserHasAccounts)
}

func (s *StoreSuite) TestListUsers() {
	s.mustUser("Ada", "ada@example.com")
	s.mustUser("Brian", "brian@example.com")

	users, err := s.store.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
}

func (s *StoreSuite) TestAccountRequiresOwner() {
	account, err := model.NewAccount("missing-owner", "operating", "GBP")
	s.Require().NoError(err)
	err = s.store.CreateAccount(s.ctx, account)
	s.Require().ErrorIs(err, treasurydb.ErrUserNotFound)
}

func (s *StoreSuite) TestAccountRoundtrip() {
	user := s.mustUser("Ada", "ada@example.com")
	account := s.mustAccount(user.ID, "operating")

	loaded, err := s.store.GetAccount(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(0), loaded.BalanceMinor)
	s.Require().Equal("GBP", loaded.Currency)

	accounts, err := s.store.ListAccounts(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Len(accounts, 1)

	accounts, err = s.store.ListAccounts(s.ctx, "someone-else")
	s.Require().NoError(err)
	s.Require().Empty(accounts)
}

func (s *StoreSuite) TestDepositAndWithdrawal() {
	user := s.mustUser("Ada", "ada@example.com")
	account := s.mustAccount(user.ID, "operating")

	s.mustDeposit(account.ID, 10_00)

	withdrawal, err := model.NewTransaction(account.ID, "", model.KindWithdrawal, 3_00, "")
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddTransaction(s.ctx, withdrawal))

	loaded, err := s.store.GetAccount(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(7_00), loaded.BalanceMinor)
}

func (s *StoreSuite) TestOverdraftRejected() {
	user := s.mustUser("Ada", "ada@example.com")
	account := s.mustAccount(user.ID, "operating")
	s.mustDeposit(account.ID, 1_00)

	withdrawal, err := model.NewTransaction(account.ID, "", model.KindWithdrawal, 2_00, "")
	s.Require().NoError(err)
	err = s.store.AddTransaction(s.ctx, withdrawal)
	s.Require().ErrorIs(err, treasurydb.ErrInsufficientFunds)

	// the failed withdrawal must leave no trace
	loaded, err := s.store.GetAccount(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(1_00), loaded.BalanceMinor)
	count, err := s.store.CountTransactions(s.ctx, model.TransactionQuery{AccountID: account.ID})
	s.Require().NoError(err)
	s.Require().Equal(1, count)
}

func (s *StoreSuite) TestTransferMovesFunds() {
	user := s.mustUser("Ada", "ada@example.com")
	from := s.mustAccount(user.ID, "operating")
	to := s.mustAccount(user.ID, "reserve")
	s.mustDeposit(from.ID, 10_00)

	transfer, err := model.NewTransaction(from.ID, to.ID, model.KindTransfer, 4_00, "monthly sweep")
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddTransaction(s.ctx, transfer))

	fromLoaded, err := s.store.GetAccount(s.ctx, from.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(6_00), fromLoaded.BalanceMinor)

	toLoaded, err := s.store.GetAccount(s.ctx, to.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(4_00), toLoaded.BalanceMinor)

	// the transfer shows up in both accounts' ledgers
	count, err := s.store.CountTransactions(s.ctx, model.TransactionQuery{AccountID: to.ID})
	s.Require().NoError(err)
	s.Require().Equal(1, count)
}

func (s *StoreSuite) TestSelfTransferRejected() {
	user := s.mustUser("Ada", "ada@example.com")
	account := s.mustAccount(user.ID, "operating")
	s.mustDeposit(account.ID, 10_00)

	// bypass the model constructor, which already rejects this shape
	err := s.store.AddTransaction(s.ctx, &model.Transaction{
		ID:               "self-1",
		AccountID:        account.ID,
		CounterAccountID: account.ID,
		Kind:             model.KindTransfer,
		AmountMinor:      4_00,
		CreatedAt:        time.Now().UTC(),
	})
	s.Require().Error(err)

	// no money minted, no ledger entry recorded
	loaded, err := s.store.GetAccount(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Require().Equal(int64(10_00), loaded.BalanceMinor)
	count, err := s.store.CountTransactions(s.ctx, model.TransactionQuery{AccountID: account.ID})
	s.Require().NoError(err)
	s.Require().Equal(1, count)
}

func (s *StoreSuite) TestTransferCurrencyMismatchRejected() {
	user := s.mustUser("Ada", "ada@example.com")
	from := s.mustAccount(user.ID, "operating")
	s.mustDeposit(from.ID, 10_00)

	to, err := model.NewAccount(user.ID, "usd reserve", "USD")
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateAccount(s.ctx, to))

	transfer, err := model.NewTransaction(from.ID, to.ID, model.KindTransfer, 1_00, "")
	s.Require().NoError(err)
	err = s.store.AddTransaction(s.ctx, transfer)
	s.Require().ErrorIs(err, treasurydb.ErrCurrencyMismatch)
}

func (s *StoreSuite) TestTransactionQueryPaging() {
	user := s.mustUser("Ada", "ada@example.com")
	account := s.mustAccount(user.ID, "operating")
	for i := 1; i <= 5; i++ {
		s.mustDeposit(account.ID, int64(i)*1_00)
	}

	page, err := s.store.ListTransactions(s.ctx, model.TransactionQuery{
		AccountID: account.ID,
		SortBy:    "amount",
		Limit:     2,
		Offset:    1,
	})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Require().Equal(int64(2_00), page[0].AmountMinor)
	s.Require().Equal(int64(3_00), page[1].AmountMinor)

	reversed, err := s.store.ListTransactions(s.ctx, model.TransactionQuery{
		AccountID:   account.ID,
		SortBy:      "amount",
		SortReverse: true,
		Limit:       1,
	})
	s.Require().NoError(err)
	s.Require().Len(reversed, 1)
	s.Require().Equal(int64(5_00), reversed[0].AmountMinor)

	_, err = s.store.ListTransactions(s.ctx, model.TransactionQuery{SortBy: "reference"})
	s.Require().Error(err)
}

func (s *StoreSuite) TestGetTransaction() {
	user := s.mustUser("Ada", "ada@example.com")
	account := s.mustAccount(user.ID, "operating")

	tx, err := model.NewTransaction(account.ID, "", model.KindDeposit, 9_99, "first")
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddTransaction(s.ctx, tx))

	loaded, err := s.store.GetTransaction(s.ctx, tx.ID)
	s.Require().NoError(err)
	s.Require().Equal("first", loaded.Reference)

	_, err = s.store.GetTransaction(s.ctx, "nope")
	s.Require().ErrorIs(err, treasurydb.ErrTransactionNotFound)
}
