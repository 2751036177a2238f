package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rpattn/ctedash/internal/db"
	"github.com/rpattn/ctedash/internal/domain"
)

const uniqueViolationCode = "23505"

type userRepository struct {
	conn *db.Connection
}

// NewUserRepository creates a new user repository
func NewUserRepository(conn *db.Connection) UserRepository {
	return &userRepository{conn: conn}
}

// Create inserts a new login
func (r *userRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.conn.Pool.QueryRow(
		ctx,
		`INSERT INTO app_users (username, password_hash, tenant, is_admin, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		user.Username,
		user.PasswordHash,
		user.Tenant.String(),
		user.IsAdmin,
		user.CreatedAt,
	)
	if err := row.Scan(&user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domain.User{}, fmt.Errorf("%w: user %q already exists", domain.ErrInvalidInput, user.Username)
		}
		return domain.User{}, storageError("failed to create user", err)
	}
	return user, nil
}

// GetByUsername retrieves a login by name
func (r *userRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.conn.Pool.QueryRow(
		ctx,
		`SELECT username, password_hash, tenant, is_admin, created_at
		 FROM app_users WHERE username = $1`,
		username,
	)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("%w: user %q", domain.ErrNotFound, username)
		}
		return domain.User{}, err
	}
	return user, nil
}

// List returns every login ordered by name
func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT username, password_hash, tenant, is_admin, created_at
		 FROM app_users ORDER BY username`,
	)
	if err != nil {
		return nil, storageError("failed to list users", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to iterate users", err)
	}
	return users, nil
}

// Delete removes a login. The tenant table and its ledger rows are kept.
func (r *userRepository) Delete(ctx context.Context, username string) error {
	tag, err := r.conn.Pool.Exec(ctx, `DELETE FROM app_users WHERE username = $1`, username)
	if err != nil {
		return storageError("failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %q", domain.ErrNotFound, username)
	}
	return nil
}

// Count returns the number of logins
func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.conn.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM app_users`).Scan(&count); err != nil {
		return 0, storageError("failed to count users", err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user       domain.User
		tenantName string
	)
	if err := row.Scan(&user.Username, &user.PasswordHash, &tenantName, &user.IsAdmin, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, err
		}
		return domain.User{}, storageError("failed to scan user", err)
	}
	tenant, err := domain.ParseTenantID(tenantName)
	if err != nil {
		return domain.User{}, storageError("user bound to an invalid tenant id", err)
	}
	user.Tenant = tenant
	return user, nil
}
