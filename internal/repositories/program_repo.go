package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/healthdesk/internal/database"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProgramRepository struct {
	pool *pgxpool.Pool
}

func NewProgramRepository(db *database.DB) *ProgramRepository {
	return &ProgramRepository{pool: db.Pool}
}

const programColumns = `id, name, description, status::text, created_by, created_at, updated_at`

func scanProgramRow(scanner rowScanner) (*models.Program, error) {
	var p models.Program
	var status string
	err := scanner.Scan(&p.ID, &p.Name, &p.Description, &status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	p.Status = models.ProgramStatus(status)
	return &p, nil
}

func (r *ProgramRepository) Create(ctx context.Context, p *models.Program) (*models.Program, error) {
	created, err := scanProgramRow(r.pool.QueryRow(ctx, `
		INSERT INTO programs (name, description, status, created_by)
		VALUES ($1, $2, $3::program_status, $4)
		RETURNING `+programColumns,
		p.Name, p.Description, string(p.Status), p.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert program: %w", err)
	}
	return created, nil
}

func (r *ProgramRepository) GetByID(ctx context.Context, id int64) (*models.Program, error) {
	program, err := scanProgramRow(r.pool.QueryRow(ctx,
		`SELECT `+programColumns+` FROM programs WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return program, nil
}

// List returns every program, filtered by a case-insensitive name substring when search is set.
func (r *ProgramRepository) List(ctx context.Context, search string) ([]*models.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query programs: %w", err)
	}
	return collect(rows, scanProgramRow)
}

func (r *ProgramRepository) Update(ctx context.Context, id int64, upd models.ProgramUpdate) (*models.Program, error) {
	var status *string
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}

	return scanProgramRow(r.pool.QueryRow(ctx, `
		UPDATE programs
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    status = COALESCE($4::program_status, status),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+programColumns,
		id, upd.Name, upd.Description, status,
	))
}

// Delete removes a program. Programs referenced by enrollments cannot be
// deleted and yield models.ErrStillReferenced.
func (r *ProgramRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		if database.IsConstraintViolation(err, database.CodeForeignKeyViolation, "") {
			return models.ErrStillReferenced
		}
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
