package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-portal/internal/domain"
)

// LoginAttemptRepository stores the append-only login log.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *domain.LoginAttempt) error
	// FailuresByUsernameSince returns failed attempts newer than since, newest first.
	FailuresByUsernameSince(ctx context.Context, username string, since time.Time) ([]domain.LoginAttempt, error)
	// FailuresByAddressSince returns failed attempts newer than since, newest first.
	FailuresByAddressSince(ctx context.Context, address string, since time.Time) ([]domain.LoginAttempt, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type loginAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewLoginAttemptRepository constructs repository.
func NewLoginAttemptRepository(pool *pgxpool.Pool) LoginAttemptRepository {
	return &loginAttemptRepository{pool: pool}
}

func (r *loginAttemptRepository) Create(ctx context.Context, attempt *domain.LoginAttempt) error {
	const query = `
        INSERT INTO login_attempts (username, ip_address, success, failure_reason, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	attempt.Username = domain.NormalizeUsername(attempt.Username)
	return r.pool.QueryRow(ctx, query,
		attempt.Username,
		attempt.IPAddress,
		attempt.Success,
		attempt.FailureReason,
		attempt.CreatedAt,
	).Scan(&attempt.ID)
}

func (r *loginAttemptRepository) FailuresByUsernameSince(ctx context.Context, username string, since time.Time) ([]domain.LoginAttempt, error) {
	const query = `
        SELECT id, username, ip_address, success, failure_reason, created_at
        FROM login_attempts
        WHERE username=$1 AND success=FALSE AND created_at >= $2
        ORDER BY created_at DESC`
	return r.list(ctx, query, domain.NormalizeUsername(username), since)
}

func (r *loginAttemptRepository) FailuresByAddressSince(ctx context.Context, address string, since time.Time) ([]domain.LoginAttempt, error) {
	const query = `
        SELECT id, username, ip_address, success, failure_reason, created_at
        FROM login_attempts
        WHERE ip_address=$1 AND success=FALSE AND created_at >= $2
        ORDER BY created_at DESC`
	return r.list(ctx, query, address, since)
}

func (r *loginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM login_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *loginAttemptRepository) list(ctx context.Context, query string, args ...any) ([]domain.LoginAttempt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LoginAttempt
	for rows.Next() {
		var attempt domain.LoginAttempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.Username,
			&attempt.IPAddress,
			&attempt.Success,
			&attempt.FailureReason,
			&attempt.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attempt)
	}
	return result, rows.Err()
}
