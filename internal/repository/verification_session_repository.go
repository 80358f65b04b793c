package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-portal/internal/domain"
)

// VerificationSessionRepository manages profile-code verification sessions.
type VerificationSessionRepository interface {
	// Replace stores session as the only session for its username.
	Replace(ctx context.Context, session *domain.VerificationSession) error
	GetByID(ctx context.Context, id string) (*domain.VerificationSession, error)
	GetActive(ctx context.Context, username string, now time.Time) (*domain.VerificationSession, error)
	MarkCompleted(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type verificationSessionRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationSessionRepository constructs repository.
func NewVerificationSessionRepository(pool *pgxpool.Pool) VerificationSessionRepository {
	return &verificationSessionRepository{pool: pool}
}

// Replace upserts on the username key so two racing starts leave exactly one row.
func (r *verificationSessionRepository) Replace(ctx context.Context, session *domain.VerificationSession) error {
	const query = `
        INSERT INTO verification_sessions (username, external_id, code, expires_at, completed, created_at)
        VALUES ($1,$2,$3,$4,FALSE,$5)
        ON CONFLICT (username) DO UPDATE
        SET id=gen_random_uuid(), external_id=EXCLUDED.external_id, code=EXCLUDED.code,
            expires_at=EXCLUDED.expires_at, completed=FALSE, created_at=EXCLUDED.created_at
        RETURNING id`

	session.Username = domain.NormalizeUsername(session.Username)
	session.Completed = false
	return r.pool.QueryRow(ctx, query,
		session.Username,
		session.ExternalID,
		session.Code,
		session.ExpiresAt,
		session.CreatedAt,
	).Scan(&session.ID)
}

func (r *verificationSessionRepository) GetByID(ctx context.Context, id string) (*domain.VerificationSession, error) {
	const query = `
        SELECT id, username, external_id, code, expires_at, completed, created_at
        FROM verification_sessions WHERE id=$1`
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

func (r *verificationSessionRepository) GetActive(ctx context.Context, username string, now time.Time) (*domain.VerificationSession, error) {
	const query = `
        SELECT id, username, external_id, code, expires_at, completed, created_at
        FROM verification_sessions
        WHERE username=$1 AND completed=FALSE AND expires_at > $2
        ORDER BY created_at DESC
        LIMIT 1`
	return scanSession(r.pool.QueryRow(ctx, query, domain.NormalizeUsername(username), now))
}

func (r *verificationSessionRepository) MarkCompleted(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE verification_sessions SET completed=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *verificationSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM verification_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.VerificationSession, error) {
	var session domain.VerificationSession
	if err := row.Scan(
		&session.ID,
		&session.Username,
		&session.ExternalID,
		&session.Code,
		&session.ExpiresAt,
		&session.Completed,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}
