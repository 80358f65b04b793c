package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-portal/internal/domain"
)

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// StaffRepository handles persistence for staff accounts.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffAccount) error
	Update(ctx context.Context, staff *domain.StaffAccount) error
	GetByID(ctx context.Context, id string) (*domain.StaffAccount, error)
	GetByUsername(ctx context.Context, username string) (*domain.StaffAccount, error)
	GetByExternalID(ctx context.Context, externalID int64) (*domain.StaffAccount, error)
	List(ctx context.Context, includeInactive bool) ([]domain.StaffAccount, error)
	SetVerified(ctx context.Context, id string) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, username, display_name, external_id, avatar_url, pin_hash, role, permissions,
        active_flag, verified, last_active_at, created_at, updated_at`

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffAccount) error {
	const query = `
        INSERT INTO staff_accounts (username, display_name, external_id, avatar_url, pin_hash, role, permissions, active_flag, verified)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	perms, err := json.Marshal(staff.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		domain.NormalizeUsername(staff.Username),
		staff.DisplayName,
		staff.ExternalID,
		staff.AvatarURL,
		staff.PINHash,
		staff.Role,
		perms,
		staff.Active,
		staff.Verified,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffAccount) error {
	const query = `
        UPDATE staff_accounts
        SET display_name=$1, external_id=$2, avatar_url=$3, pin_hash=$4, role=$5, permissions=$6,
            active_flag=$7, verified=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`

	perms, err := json.Marshal(staff.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		staff.DisplayName,
		staff.ExternalID,
		staff.AvatarURL,
		staff.PINHash,
		staff.Role,
		perms,
		staff.Active,
		staff.Verified,
		staff.ID,
	).Scan(&staff.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE id=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, id))
}

func (r *staffRepository) GetByUsername(ctx context.Context, username string) (*domain.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE username=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, domain.NormalizeUsername(username)))
}

func (r *staffRepository) GetByExternalID(ctx context.Context, externalID int64) (*domain.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts WHERE external_id=$1`
	return scanStaff(r.pool.QueryRow(ctx, query, externalID))
}

func (r *staffRepository) List(ctx context.Context, includeInactive bool) ([]domain.StaffAccount, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_accounts`
	if !includeInactive {
		query += ` WHERE active_flag = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffAccount
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *staff)
	}
	return result, rows.Err()
}

func (r *staffRepository) SetVerified(ctx context.Context, id string) error {
	const query = `UPDATE staff_accounts SET verified=TRUE, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE staff_accounts SET last_active_at=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) Delete(ctx context.Context, id string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM staff_accounts WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanStaff(row pgx.Row) (*domain.StaffAccount, error) {
	var (
		staff domain.StaffAccount
		perms []byte
	)
	if err := row.Scan(
		&staff.ID,
		&staff.Username,
		&staff.DisplayName,
		&staff.ExternalID,
		&staff.AvatarURL,
		&staff.PINHash,
		&staff.Role,
		&perms,
		&staff.Active,
		&staff.Verified,
		&staff.LastActiveAt,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &staff.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	return &staff, nil
}

// isUniqueViolation detects PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
