package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trailhead-tours/trailhead/internal/domain"
)

// UserRepository is the identity directory. Every read path used by auth code
// is restricted to active rows; there is no unfiltered lookup to bypass the
// soft-delete invariant.
type UserRepository interface {
	Create(ctx context.Context, name, email, role, passwordHash string) (*domain.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.User, error)
	FindActiveByID(ctx context.Context, id int64) (*domain.User, error)

	// UpdatePassword sets a new hash and stamps password_changed_at, which
	// invalidates every session token issued before this call.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (*domain.User, error)

	// SetResetToken stores a reset digest and expiry, superseding any prior
	// reset state on the identity.
	SetResetToken(ctx context.Context, id int64, digest string, expiresAt time.Time) error

	// ClearResetToken removes reset state only if the stored digest still
	// matches; the compensating action when delivery fails.
	ClearResetToken(ctx context.Context, id int64, digest string) error

	// ConsumeResetToken is the single conditional update that makes reset
	// consumption exactly-once: match digest + unexpired + active, then set
	// the new password and clear the reset fields in one statement. Returns
	// nil when no row matched.
	ConsumeResetToken(ctx context.Context, digest, passwordHash string) (*domain.User, error)

	UpdateProfile(ctx context.Context, id int64, name, email *string) (*domain.User, error)
	Deactivate(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	UpdateRole(ctx context.Context, id int64, role string) error
	Delete(ctx context.Context, id int64) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, name, email, role, photo, password_hash, password_changed_at, reset_token_hash, reset_token_expires_at, active, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Photo, &u.PasswordHash,
		&u.PasswordChangedAt, &u.ResetTokenHash, &u.ResetTokenExpiresAt,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, name, email, role, passwordHash string) (*domain.User, error) {
	const q = `
		INSERT INTO users (name, email, role, password_hash, active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, name, email, role, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindActiveByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (*domain.User, error) {
	const q = `
		UPDATE users
		SET password_hash = $2,
		    password_changed_at = now(),
		    updated_at = now()
		WHERE id = $1 AND active
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, passwordHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) SetResetToken(ctx context.Context, id int64, digest string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET reset_token_hash = $2,
		    reset_token_expires_at = $3,
		    updated_at = now()
		WHERE id = $1 AND active`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, digest, expiresAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) ClearResetToken(ctx context.Context, id int64, digest string) error {
	const q = `
		UPDATE users
		SET reset_token_hash = NULL,
		    reset_token_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND reset_token_hash = $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, digest)
	return err
}

func (r *userRepository) ConsumeResetToken(ctx context.Context, digest, passwordHash string) (*domain.User, error) {
	const q = `
		UPDATE users
		SET password_hash = $2,
		    password_changed_at = now(),
		    reset_token_hash = NULL,
		    reset_token_expires_at = NULL,
		    updated_at = now()
		WHERE reset_token_hash = $1
		  AND reset_token_expires_at > now()
		  AND active
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, digest, passwordHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) UpdateProfile(ctx context.Context, id int64, name, email *string) (*domain.User, error) {
	const q = `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    updated_at = now()
		WHERE id = $1 AND active
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, name, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Deactivate(ctx context.Context, id int64) error {
	const q = `UPDATE users SET active = false, updated_at = now() WHERE id = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT ` + userCols + `
		FROM users
		WHERE active
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Role, &u.Photo, &u.PasswordHash,
			&u.PasswordChangedAt, &u.ResetTokenHash, &u.ResetTokenExpiresAt,
			&u.Active, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *userRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	const q = `UPDATE users SET role = $2, updated_at = now() WHERE id = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, role)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
