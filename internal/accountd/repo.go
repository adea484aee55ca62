package accountd

import (
	"context"
	"errors"

	"github.com/defi-staking/gateway/internal/account"
	"github.com/defi-staking/gateway/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = "id, username, email, bio, wallet_address, created_at, updated_at"

func (r *AccountRepo) Create(ctx context.Context, email, passwordHash, username string, bio *string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, username, bio)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns+`
	`, email, passwordHash, username, bio).Scan(
		&a.ID, &a.Username, &a.Email, &a.Bio, &a.WalletAddress, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, translateConstraint(err)
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, string, error) {
	var a models.Account
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`, password_hash
		FROM accounts WHERE lower(email) = lower($1)
	`, email).Scan(
		&a.ID, &a.Username, &a.Email, &a.Bio, &a.WalletAddress, &a.CreatedAt, &a.UpdatedAt, &hash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", account.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	return &a, hash, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Username, &a.Email, &a.Bio, &a.WalletAddress, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) UpdateProfile(ctx context.Context, id uuid.UUID, username, bio *string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		UPDATE accounts SET
			username = COALESCE($2, username),
			bio = COALESCE($3, bio),
			updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns+`
	`, id, username, bio).Scan(
		&a.ID, &a.Username, &a.Email, &a.Bio, &a.WalletAddress, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, translateConstraint(err)
	}
	return &a, nil
}

// LinkWallet binds an address to the account. The WHERE clause makes the
// operation idempotent for the same address while refusing to overwrite a
// different one; the unique index refuses the address if another account
// holds it.
func (r *AccountRepo) LinkWallet(ctx context.Context, id uuid.UUID, address string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET wallet_address = $2, updated_at = now()
		WHERE id = $1 AND (wallet_address IS NULL OR lower(wallet_address) = lower($2))
	`, id, address)
	if err != nil {
		return translateConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrAlreadyLinked
	}
	return nil
}

func (r *AccountRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE lower(username) = lower($1))`,
		username,
	).Scan(&exists)
	return exists, err
}

func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "accounts_email_idx":
		return account.ErrEmailTaken
	case "accounts_username_idx":
		return account.ErrUsernameTaken
	case "accounts_wallet_address_idx":
		return account.ErrAlreadyLinked
	}
	return err
}
