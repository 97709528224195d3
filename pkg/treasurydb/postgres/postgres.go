package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	sync "github.com/bacalhau-project/golang-mutex-tracer"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hashicorp/go-multierror"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tesoro-project/tesoro/pkg/model"
	"github.com/tesoro-project/tesoro/pkg/treasurydb"
)

//go:embed migrations/*.sql
var fs embed.FS

// sqlClient is so we can run the same queries on *sql.DB and *sql.Tx
type sqlClient interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type PostgresStore struct {
	mtx              sync.RWMutex
	connectionString string
	db               *sql.DB
}

var _ treasurydb.Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the given postgres DSN and applies any
// pending schema migrations before returning.
func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "pinging postgres")
	}

	store := &PostgresStore{
		connectionString: connectionString,
		db:               db,
	}
	store.mtx.EnableTracerWithOpts(sync.Opts{
		Threshold: 10 * time.Millisecond,
		Id:        "PostgresStore.mtx",
	})

	if err := store.MigrateUp(); err != nil {
		return nil, errors.Wrap(err, "applying migrations")
	}
	return store, nil
}

func (d *PostgresStore) getMigrations() (*migrate.Migrate, error) {
	files, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", files, d.connectionString)
}

func (d *PostgresStore) MigrateUp() error {
	migrations, err := d.getMigrations()
	if err != nil {
		return err
	}
	err = migrations.Up()
	if err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func (d *PostgresStore) MigrateDown() error {
	migrations, err := d.getMigrations()
	if err != nil {
		return err
	}
	err = migrations.Down()
	if err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func (d *PostgresStore) CreateUser(ctx context.Context, user *model.User) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	_, err := d.db.ExecContext(ctx,
		`insert into users (id, name, email, role, created_at) values ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, user.Email, string(user.Role), user.CreatedAt)
	if isUniqueViolation(err) {
		return errors.Wrapf(treasurydb.ErrEmailTaken, "email %s", user.Email)
	}
	return err
}

func getUser(db sqlClient, ctx context.Context, id string) (*model.User, error) {
	var user model.User
	var role string
	row := db.QueryRowContext(ctx,
		`select id, name, email, role, created_at from users where id = $1`, id)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(treasurydb.ErrUserNotFound, "id %s", id)
	}
	if err != nil {
		return nil, err
	}
	user.Role = model.Role(role)
	return &user, nil
}

func (d *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	return getUser(d.db, ctx, id)
}

func (d *PostgresStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		`select id, name, email, role, created_at from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*model.User{}
	for rows.Next() {
		var user model.User
		var role string
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &role, &user.CreatedAt); err != nil {
			return nil, multierror.Append(err, rows.Err())
		}
		user.Role = model.Role(role)
		result = append(result, &user)
	}
	return result, rows.Err()
}

func (d *PostgresStore) UpdateUser(ctx context.Context, user *model.User) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	result, err := d.db.ExecContext(ctx,
		`update users set name = $2, email = $3, role = $4 where id = $1`,
		user.ID, user.Name, user.Email, string(user.Role))
	if isUniqueViolation(err) {
		return errors.Wrapf(treasurydb.ErrEmailTaken, "email %s", user.Email)
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Wrapf(treasurydb.ErrUserNotFound, "id %s", user.ID)
	}
	return nil
}

func (d *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	result, err := d.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if isForeignKeyViolation(err) {
		return errors.Wrapf(treasurydb.ErrUserHasAccounts, "id %s", id)
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Wrapf(treasurydb.ErrUserNotFound, "id %s", id)
	}
	return nil
}

func (d *PostgresStore) CreateAccount(ctx context.Context, account *model.Account) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if _, err := getUser(d.db, ctx, account.OwnerID); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx,
		`insert into accounts (id, owner_id, name, currency, balance_minor, created_at, updated_at)
		 values ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID, account.OwnerID, account.Name, account.Currency,
		account.BalanceMinor, account.CreatedAt, account.UpdatedAt)
	return err
}

func getAccount(db sqlClient, ctx context.Context, id string, forUpdate bool) (*model.Account, error) {
	query := `select id, owner_id, name, currency, balance_minor, created_at, updated_at
		from accounts where id = $1`
	if forUpdate {
		query += ` for update`
	}
	var account model.Account
	row := db.QueryRowContext(ctx, query, id)
	err := row.Scan(&account.ID, &account.OwnerID, &account.Name, &account.Currency,
		&account.BalanceMinor, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(treasurydb.ErrAccountNotFound, "id %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (d *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	return getAccount(d.db, ctx, id, false)
}

func (d *PostgresStore) ListAccounts(ctx context.Context, ownerID string) ([]*model.Account, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	query := `select id, owner_id, name, currency, balance_minor, created_at, updated_at
		from accounts`
	args := []any{}
	if ownerID != "" {
		query += ` where owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` order by created_at asc`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*model.Account{}
	for rows.Next() {
		var account model.Account
		if err := rows.Scan(&account.ID, &account.OwnerID, &account.Name, &account.Currency,
			&account.BalanceMinor, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, multierror.Append(err, rows.Err())
		}
		result = append(result, &account)
	}
	return result, rows.Err()
}

//nolint:funlen,gocyclo
func (d *PostgresStore) AddTransaction(ctx context.Context, entry *model.Transaction) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	// a self-transfer would collapse the two balance updates onto one
	// row and credit the difference out of nothing
	if entry.Kind == model.KindTransfer && entry.CounterAccountID == entry.AccountID {
		return errors.Errorf("transfer within account %s", entry.AccountID)
	}

	sqltx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	rollback := func(err error) error {
		if rbErr := sqltx.Rollback(); rbErr != nil {
			return multierror.Append(err, rbErr)
		}
		return err
	}

	// lock account rows in id order so two racing transfers between the
	// same pair of accounts cannot deadlock
	lockIDs := []string{entry.AccountID}
	if entry.Kind == model.KindTransfer {
		if entry.CounterAccountID < entry.AccountID {
			lockIDs = []string{entry.CounterAccountID, entry.AccountID}
		} else {
			lockIDs = append(lockIDs, entry.CounterAccountID)
		}
	}
	locked := map[string]*model.Account{}
	for _, id := range lockIDs {
		account, err := getAccount(sqltx, ctx, id, true)
		if err != nil {
			return rollback(err)
		}
		locked[id] = account
	}

	account := locked[entry.AccountID]
	now := time.Now().UTC()
	updates := map[string]int64{}

	switch entry.Kind {
	case model.KindDeposit:
		updates[account.ID] = account.BalanceMinor + entry.AmountMinor
	case model.KindWithdrawal:
		if account.BalanceMinor < entry.AmountMinor {
			return rollback(errors.Wrapf(treasurydb.ErrInsufficientFunds,
				"account %s holds %d, needs %d", account.ID, account.BalanceMinor, entry.AmountMinor))
		}
		updates[account.ID] = account.BalanceMinor - entry.AmountMinor
	case model.KindTransfer:
		counter := locked[entry.CounterAccountID]
		if counter.Currency != account.Currency {
			return rollback(errors.Wrapf(treasurydb.ErrCurrencyMismatch,
				"%s vs %s", account.Currency, counter.Currency))
		}
		if account.BalanceMinor < entry.AmountMinor {
			return rollback(errors.Wrapf(treasurydb.ErrInsufficientFunds,
				"account %s holds %d, needs %d", account.ID, account.BalanceMinor, entry.AmountMinor))
		}
		updates[account.ID] = account.BalanceMinor - entry.AmountMinor
		updates[counter.ID] = counter.BalanceMinor + entry.AmountMinor
	default:
		return rollback(errors.Errorf("invalid transaction kind %q", entry.Kind))
	}

	for id, balance := range updates {
		if _, err := sqltx.ExecContext(ctx,
			`update accounts set balance_minor = $2, updated_at = $3 where id = $1`,
			id, balance, now); err != nil {
			return rollback(err)
		}
	}

	var counterID any
	if entry.CounterAccountID != "" {
		counterID = entry.CounterAccountID
	}
	if _, err := sqltx.ExecContext(ctx,
		`insert into transactions (id, account_id, counter_account_id, kind, amount_minor, reference, created_at)
		 values ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.AccountID, counterID, string(entry.Kind),
		entry.AmountMinor, entry.Reference, entry.CreatedAt); err != nil {
		return rollback(err)
	}

	return sqltx.Commit()
}

func (d *PostgresStore) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	var entry model.Transaction
	var counterID sql.NullString
	var kind string
	row := d.db.QueryRowContext(ctx,
		`select id, account_id, counter_account_id, kind, amount_minor, reference, created_at
		 from transactions where id = $1`, id)
	err := row.Scan(&entry.ID, &entry.AccountID, &counterID, &kind,
		&entry.AmountMinor, &entry.Reference, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(treasurydb.ErrTransactionNotFound, "id %s", id)
	}
	if err != nil {
		return nil, err
	}
	entry.CounterAccountID = counterID.String
	entry.Kind = model.TransactionKind(kind)
	return &entry, nil
}

func transactionsSQL(query model.TransactionQuery, countMode bool) (string, []any, error) {
	var args []any
	clauses := []string{}

	counter := 0
	next := func() string {
		counter++
		return fmt.Sprintf("$%d", counter)
	}

	if query.AccountID != "" {
		p := next()
		clauses = append(clauses, fmt.Sprintf("(account_id = %s or counter_account_id = %s)", p, p))
		args = append(args, query.AccountID)
	}
	if query.Kind != "" {
		clauses = append(clauses, fmt.Sprintf("kind = %s", next()))
		args = append(args, string(query.Kind))
	}

	stmt := `select id, account_id, counter_account_id, kind, amount_minor, reference, created_at from transactions`
	if countMode {
		stmt = `select count(*) from transactions`
	}
	if len(clauses) > 0 {
		stmt += " where " + strings.Join(clauses, " and ")
	}

	if !countMode {
		sortBy := query.SortBy
		switch sortBy {
		case "", "created_at":
			sortBy = "created_at"
		case "amount":
			sortBy = "amount_minor"
		default:
			return "", nil, errors.Errorf("unsupported sort field %q", query.SortBy)
		}
		direction := "asc"
		if query.SortReverse {
			direction = "desc"
		}
		stmt += fmt.Sprintf(" order by %s %s", sortBy, direction)

		if query.Limit > 0 {
			stmt += fmt.Sprintf(" limit %s", next())
			args = append(args, query.Limit)
		}
		if query.Offset > 0 {
			stmt += fmt.Sprintf(" offset %s", next())
			args = append(args, query.Offset)
		}
	}
	return stmt, args, nil
}

func (d *PostgresStore) ListTransactions(ctx context.Context, query model.TransactionQuery) ([]*model.Transaction, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	stmt, args, err := transactionsSQL(query, false)
	if err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*model.Transaction{}
	for rows.Next() {
		var entry model.Transaction
		var counterID sql.NullString
		var kind string
		if err := rows.Scan(&entry.ID, &entry.AccountID, &counterID, &kind,
			&entry.AmountMinor, &entry.Reference, &entry.CreatedAt); err != nil {
			return nil, multierror.Append(err, rows.Err())
		}
		entry.CounterAccountID = counterID.String
		entry.Kind = model.TransactionKind(kind)
		result = append(result, &entry)
	}
	return result, rows.Err()
}

func (d *PostgresStore) CountTransactions(ctx context.Context, query model.TransactionQuery) (int, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	stmt, args, err := transactionsSQL(query, true)
	if err != nil {
		return 0, err
	}
	var count int
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (d *PostgresStore) Close() error {
	return d.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}
