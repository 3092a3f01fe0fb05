package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/healthdesk/internal/database"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db, pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, username, role::text, is_active, created_at, updated_at`

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var role string

	err := scanner.Scan(&user.ID, &user.Username, &role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	user.Role = models.Role(role)

	return &user, nil
}

// CreateWithAuth inserts the user and its auth record in one transaction.
// A taken username yields models.ErrConflict, whether it is seen by the
// existence check or by the unique index under a concurrent insert.
func (r *UserRepository) CreateWithAuth(ctx context.Context, nu models.NewUser) (*models.User, error) {
	var created *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, nu.Username,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			return models.ErrConflict
		}

		user, err := scanUserRow(tx.QueryRow(ctx, `
			INSERT INTO users (username, password_hash, role)
			VALUES ($1, $2, $3::user_role)
			RETURNING `+userColumns,
			nu.Username, nu.PasswordHash, string(nu.Role),
		))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO auth (user_id, password_hash, salt)
			VALUES ($1, $2, $3)`,
			user.ID, nu.PasswordHash, nu.Salt,
		); err != nil {
			return database.MapPostgresError(err)
		}

		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUserRow(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUserRow(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return collect(rows, scanUserRow)
}

// Update applies the non-nil fields of upd.
func (r *UserRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	var role *string
	if upd.Role != nil {
		s := string(*upd.Role)
		role = &s
	}

	return scanUserRow(r.pool.QueryRow(ctx, `
		UPDATE users
		SET role = COALESCE($2::user_role, role),
		    is_active = COALESCE($3, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, role, upd.IsActive,
	))
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(rowScanner) (*T, error)) ([]*T, error) {
	defer rows.Close()

	items := make([]*T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}
