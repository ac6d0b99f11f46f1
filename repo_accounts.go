package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the credential store surface for account records. The
// Increment*/Mark*/Purge operations are single-statement atomic updates:
// concurrent verifications racing on the attempt counter resolve at the
// store, not in handler code.
type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)

	// SetVerificationCodeTx overwrites any prior code. Last writer wins: the
	// freshest committed code is the only one a verify can match.
	SetVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error

	// IncrementResendAttemptsTx bumps the resend counter and returns the
	// post-increment value.
	IncrementResendAttemptsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int, error)

	// IncrementFailedAttemptsTx bumps the failed-verification counter and
	// returns the post-increment value.
	IncrementFailedAttemptsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int, error)

	// MarkVerifiedTx activates the account and clears code state, but only if
	// the account is still unverified (set-if-matches).
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	// PurgeTx removes the account row entirely. Used for the abuse terminal:
	// the email becomes free again and every later lookup misses.
	PurgeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	ResetLoginAttempts(ctx context.Context, account *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound.Clone().WithMetadata(map[string]any{
				"email": NormalizeEmail(email),
			})
		}
		return nil, err
	}

	record.EnsureStatus()
	return record, nil
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	prepareAccountDefaults(account)
	return a.Repository.CreateTx(ctx, tx, account)
}

func (a *accounts) SetVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error {
	res, err := tx.NewRaw(`
		UPDATE "accounts"
		SET
			"verification_code" = ?,
			"code_expires_at" = ?,
			"updated_at" = ?
		WHERE "id" = ?;
	`, code, expiresAt, time.Now(), id).Exec(ctx)
	if err != nil {
		return err
	}

	return requireRowsAffected(res, id)
}

func (a *accounts) IncrementResendAttemptsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int, error) {
	var count int
	err := tx.NewRaw(`
		UPDATE "accounts"
		SET
			"resend_attempts" = "resend_attempts" + 1,
			"updated_at" = ?
		WHERE "id" = ?
		RETURNING "resend_attempts";
	`, time.Now(), id).Scan(ctx, &count)

	return count, err
}

func (a *accounts) IncrementFailedAttemptsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (int, error) {
	var count int
	err := tx.NewRaw(`
		UPDATE "accounts"
		SET
			"failed_attempts" = "failed_attempts" + 1,
			"updated_at" = ?
		WHERE "id" = ?
		RETURNING "failed_attempts";
	`, time.Now(), id).Scan(ctx, &count)

	return count, err
}

func (a *accounts) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewRaw(`
		UPDATE "accounts"
		SET
			"status" = ?,
			"verification_code" = NULL,
			"code_expires_at" = NULL,
			"failed_attempts" = 0,
			"resend_attempts" = 0,
			"updated_at" = ?
		WHERE "id" = ? AND "status" = ?;
	`, AccountStatusActive, time.Now(), id, AccountStatusUnverified).Exec(ctx)
	if err != nil {
		return err
	}

	return requireRowsAffected(res, id)
}

func (a *accounts) PurgeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewRaw(`DELETE FROM "accounts" WHERE "id" = ?;`, id).Exec(ctx)
	if err != nil {
		return err
	}

	return requireRowsAffected(res, id)
}

func (a *accounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := tx.NewRaw(`
		UPDATE "accounts"
		SET
			"password_hash" = ?,
			"updated_at" = ?
		WHERE "id" = ?;
	`, passwordHash, time.Now(), id).Exec(ctx)
	if err != nil {
		return err
	}

	return requireRowsAffected(res, id)
}

func (a *accounts) TrackAttemptedLogin(ctx context.Context, account *Account) error {
	_, err := a.db.NewRaw(`
		UPDATE "accounts"
		SET
			"login_attempts" = "login_attempts" + 1,
			"login_attempt_at" = ?
		WHERE "id" = ?;
	`, time.Now(), account.ID).Exec(ctx)

	return err
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	_, err := a.db.NewRaw(`
		UPDATE "accounts"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE "id" = ?;
	`, time.Now(), account.ID).Exec(ctx)

	return err
}

func (a *accounts) ResetLoginAttempts(ctx context.Context, account *Account) error {
	_, err := a.db.NewRaw(`
		UPDATE "accounts"
		SET
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE "id" = ?;
	`, account.ID).Exec(ctx)

	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.EnsureStatus()
	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
