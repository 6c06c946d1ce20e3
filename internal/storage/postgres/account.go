package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/storage"
)

// uniqueViolation is the SQLSTATE PostgreSQL raises for a duplicate key.
const uniqueViolation = "23505"

// accountColumns is ordered to match the fields of storage.Account.
const accountColumns = `id, username, password_hash, created_at`

// AccountRepository stores arena player accounts in the accounts table.
type AccountRepository struct {
	db *pgxpool.Pool
}

var _ storage.AccountStore = (*AccountRepository)(nil)

// NewAccountRepository wraps pool.
//
// Precondition: pool must be open.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: pool}
}

// Create registers username with a bcrypt hash of password.
//
// Postcondition: Returns the stored Account, or storage.ErrAccountExists when
// the username is already registered.
func (r *AccountRepository) Create(ctx context.Context, username, password string) (storage.Account, error) {
	hash, err := storage.HashPassword(password)
	if err != nil {
		return storage.Account{}, fmt.Errorf("hashing password: %w", err)
	}
	acct, err := r.one(ctx,
		`INSERT INTO accounts (username, password_hash) VALUES ($1, $2) RETURNING `+accountColumns,
		username, hash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.Account{}, storage.ErrAccountExists
	}
	if err != nil {
		return storage.Account{}, fmt.Errorf("creating account %q: %w", username, err)
	}
	return acct, nil
}

// Authenticate loads username and checks password against its hash.
//
// Postcondition: storage.ErrAccountNotFound for an unknown username,
// storage.ErrInvalidCredentials for a wrong password.
func (r *AccountRepository) Authenticate(ctx context.Context, username, password string) (storage.Account, error) {
	acct, err := r.GetByUsername(ctx, username)
	switch {
	case err != nil:
		return storage.Account{}, err
	case !storage.CheckPassword(password, acct.PasswordHash):
		return storage.Account{}, storage.ErrInvalidCredentials
	default:
		return acct, nil
	}
}

// GetByUsername returns the account or storage.ErrAccountNotFound.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (storage.Account, error) {
	acct, err := r.one(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Account{}, storage.ErrAccountNotFound
	}
	if err != nil {
		return storage.Account{}, fmt.Errorf("loading account %q: %w", username, err)
	}
	return acct, nil
}

func (r *AccountRepository) one(ctx context.Context, sql string, args ...any) (storage.Account, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return storage.Account{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByPos[storage.Account])
}
