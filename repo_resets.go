package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PasswordResets is the store surface for reset requests. One live request
// per email: the upsert silently supersedes any prior unconsumed request.
type PasswordResets interface {
	repository.Repository[*PasswordResetRequest]

	GetByEmail(ctx context.Context, email string) (*PasswordResetRequest, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*PasswordResetRequest, error)

	// UpsertByEmailTx installs a fresh code for the email, replacing code,
	// expiry, and attempt count of any existing request in one statement.
	UpsertByEmailTx(ctx context.Context, tx bun.IDB, email, code string, expiresAt time.Time) error

	// IncrementFailedAttemptsTx bumps the request's failure counter and
	// returns the post-increment value.
	IncrementFailedAttemptsTx(ctx context.Context, tx bun.IDB, email string) (int, error)

	// ConsumeTx deletes the request. Called on successful password change and
	// on the abuse terminal; afterwards the code can never be replayed.
	ConsumeTx(ctx context.Context, tx bun.IDB, email string) error
}

type passwordResets struct {
	repository.Repository[*PasswordResetRequest]
	db *bun.DB
}

var (
	_ PasswordResets                               = (*passwordResets)(nil)
	_ repository.Repository[*PasswordResetRequest] = (*passwordResets)(nil)
)

func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	repo := repository.NewRepository[*PasswordResetRequest](db, repository.ModelHandlers[*PasswordResetRequest]{
		NewRecord: func() *PasswordResetRequest { return &PasswordResetRequest{} },
		GetID: func(r *PasswordResetRequest) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *PasswordResetRequest, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &passwordResets{
		Repository: repo,
		db:         db,
	}
}

func (p *passwordResets) GetByEmail(ctx context.Context, email string) (*PasswordResetRequest, error) {
	return p.GetByEmailTx(ctx, p.db, email)
}

func (p *passwordResets) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*PasswordResetRequest, error) {
	record := &PasswordResetRequest{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrResetRequestNotFound.Clone().WithMetadata(map[string]any{
				"email": NormalizeEmail(email),
			})
		}
		return nil, err
	}

	return record, nil
}

func (p *passwordResets) UpsertByEmailTx(ctx context.Context, tx bun.IDB, email, code string, expiresAt time.Time) error {
	now := time.Now()
	_, err := tx.NewRaw(`
		INSERT INTO "password_reset_requests"
			("id", "email", "code", "expires_at", "failed_attempts", "created_at", "updated_at")
		VALUES (?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT ("email") DO UPDATE SET
			"code" = excluded."code",
			"expires_at" = excluded."expires_at",
			"failed_attempts" = 0,
			"updated_at" = excluded."updated_at";
	`, uuid.New(), NormalizeEmail(email), code, expiresAt, now, now).Exec(ctx)

	return err
}

func (p *passwordResets) IncrementFailedAttemptsTx(ctx context.Context, tx bun.IDB, email string) (int, error) {
	var count int
	err := tx.NewRaw(`
		UPDATE "password_reset_requests"
		SET
			"failed_attempts" = "failed_attempts" + 1,
			"updated_at" = ?
		WHERE "email" = ?
		RETURNING "failed_attempts";
	`, time.Now(), NormalizeEmail(email)).Scan(ctx, &count)

	return count, err
}

func (p *passwordResets) ConsumeTx(ctx context.Context, tx bun.IDB, email string) error {
	res, err := tx.NewRaw(`
		DELETE FROM "password_reset_requests" WHERE "email" = ?;
	`, NormalizeEmail(email)).Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrResetRequestNotFound.Clone().WithMetadata(map[string]any{
			"email": NormalizeEmail(email),
		})
	}

	return nil
}
