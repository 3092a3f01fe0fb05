package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/BradenHooton/healthdesk/internal/database"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(db *database.DB) *ClientRepository {
	return &ClientRepository{pool: db.Pool}
}

const clientColumns = `id, first_name, last_name, date_of_birth, gender, address, phone, email, created_by, created_at, updated_at`

func scanClientRow(scanner rowScanner) (*models.Client, error) {
	var c models.Client
	err := scanner.Scan(&c.ID, &c.FirstName, &c.LastName, &c.DateOfBirth, &c.Gender,
		&c.Address, &c.Phone, &c.Email, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &c, nil
}

func (r *ClientRepository) Create(ctx context.Context, in models.ClientInput, createdBy *int64) (*models.Client, error) {
	client, err := scanClientRow(r.pool.QueryRow(ctx, `
		INSERT INTO clients (first_name, last_name, date_of_birth, gender, address, phone, email, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+clientColumns,
		in.FirstName, in.LastName, in.DateOfBirth, in.Gender, in.Address, in.Phone, in.Email, createdBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert client: %w", err)
	}
	return client, nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	client, err := scanClientRow(r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *ClientRepository) List(ctx context.Context) ([]*models.Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	return collect(rows, scanClientRow)
}

// Search matches query as a case-insensitive substring of first name,
// last name, email or phone.
func (r *ClientRepository) Search(ctx context.Context, query string) ([]*models.Client, error) {
	pattern := "%" + escapeLike(query) + "%"

	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1
		ORDER BY id`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}
	return collect(rows, scanClientRow)
}

// Update replaces every editable field of the client.
func (r *ClientRepository) Update(ctx context.Context, id int64, in models.ClientInput) (*models.Client, error) {
	return scanClientRow(r.pool.QueryRow(ctx, `
		UPDATE clients
		SET first_name = $2, last_name = $3, date_of_birth = $4, gender = $5,
		    address = $6, phone = $7, email = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+clientColumns,
		id, in.FirstName, in.LastName, in.DateOfBirth, in.Gender, in.Address, in.Phone, in.Email,
	))
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
