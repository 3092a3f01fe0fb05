package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/healthdesk/internal/database"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnrollmentUniqueConstraint guards the (client_id, program_id) pair.
const EnrollmentUniqueConstraint = "enrollments_client_program_key"

// EnrollmentTx is the set of statements the enroll flow runs inside one
// transaction. The existence checks take a share lock on the parent row so
// it cannot be deleted before the insert commits.
type EnrollmentTx interface {
	ClientExists(ctx context.Context, clientID int64) (bool, error)
	ProgramExists(ctx context.Context, programID int64) (bool, error)
	PairExists(ctx context.Context, clientID, programID int64) (bool, error)
	Insert(ctx context.Context, cmd models.CreateEnrollmentCommand) (*models.Enrollment, error)
}

type EnrollmentRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewEnrollmentRepository(db *database.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, pool: db.Pool}
}

const enrollmentColumns = `e.id, e.client_id, e.program_id, e.status::text, e.enrolled_at, e.completed_at, e.notes, e.created_by, e.created_at, e.updated_at`

func scanEnrollmentRow(scanner rowScanner) (*models.Enrollment, error) {
	var e models.Enrollment
	var status string
	err := scanner.Scan(&e.ID, &e.ClientID, &e.ProgramID, &status, &e.EnrolledAt, &e.CompletedAt,
		&e.Notes, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	e.Status = models.EnrollmentStatus(status)
	return &e, nil
}

func scanEnrollmentWithProgramRow(scanner rowScanner) (*models.EnrollmentWithProgram, error) {
	var row models.EnrollmentWithProgram
	var p models.Program
	var status, programStatus string
	err := scanner.Scan(
		&row.ID, &row.ClientID, &row.ProgramID, &status, &row.EnrolledAt, &row.CompletedAt,
		&row.Notes, &row.CreatedBy, &row.CreatedAt, &row.UpdatedAt,
		&p.ID, &p.Name, &p.Description, &programStatus, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	row.Status = models.EnrollmentStatus(status)
	p.Status = models.ProgramStatus(programStatus)
	row.Program = &p
	return &row, nil
}

// WithinTx runs fn against a single transaction, committing if fn returns nil.
func (r *EnrollmentRepository) WithinTx(ctx context.Context, fn func(EnrollmentTx) error) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&enrollmentTx{tx: tx})
	})
}

// Update applies status and notes. completed_at is stamped when the status
// changes into completed and kept as is otherwise.
func (r *EnrollmentRepository) Update(ctx context.Context, cmd models.UpdateEnrollmentCommand) (*models.Enrollment, error) {
	var status *string
	if cmd.Status != nil {
		s := string(*cmd.Status)
		status = &s
	}

	return scanEnrollmentRow(r.pool.QueryRow(ctx, `
		UPDATE enrollments e
		SET status = COALESCE($2::enrollment_status, e.status),
		    notes = COALESCE($3, e.notes),
		    completed_at = CASE
		        WHEN $2::enrollment_status = 'completed' AND e.status <> 'completed' THEN NOW()
		        ELSE e.completed_at
		    END,
		    updated_at = NOW()
		WHERE e.id = $1
		RETURNING `+enrollmentColumns,
		cmd.ID, status, cmd.Notes,
	))
}

const enrollmentWithProgramQuery = `
	SELECT ` + enrollmentColumns + `,
	       p.id, p.name, p.description, p.status::text, p.created_by, p.created_at, p.updated_at
	FROM enrollments e
	JOIN programs p ON p.id = e.program_id`

func (r *EnrollmentRepository) ListByClient(ctx context.Context, clientID int64) ([]*models.EnrollmentWithProgram, error) {
	rows, err := r.pool.Query(ctx, enrollmentWithProgramQuery+` WHERE e.client_id = $1 ORDER BY e.id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query client enrollments: %w", err)
	}
	return collect(rows, scanEnrollmentWithProgramRow)
}

func (r *EnrollmentRepository) ListByProgram(ctx context.Context, programID int64) ([]*models.Enrollment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments e WHERE e.program_id = $1 ORDER BY e.id`, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to query program enrollments: %w", err)
	}
	return collect(rows, scanEnrollmentRow)
}

func (r *EnrollmentRepository) ListAll(ctx context.Context) ([]*models.EnrollmentWithProgram, error) {
	rows, err := r.pool.Query(ctx, enrollmentWithProgramQuery+` ORDER BY e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	return collect(rows, scanEnrollmentWithProgramRow)
}

type enrollmentTx struct {
	tx pgx.Tx
}

func (t *enrollmentTx) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return true, nil
}

func (t *enrollmentTx) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	return t.exists(ctx, `SELECT id FROM clients WHERE id = $1 FOR SHARE`, clientID)
}

func (t *enrollmentTx) ProgramExists(ctx context.Context, programID int64) (bool, error) {
	return t.exists(ctx, `SELECT id FROM programs WHERE id = $1 FOR SHARE`, programID)
}

func (t *enrollmentTx) PairExists(ctx context.Context, clientID, programID int64) (bool, error) {
	return t.exists(ctx,
		`SELECT id FROM enrollments WHERE client_id = $1 AND program_id = $2`, clientID, programID)
}

// Insert adds an active enrollment. A concurrent insert of the same pair
// surfaces as models.ErrAlreadyEnrolled through the unique constraint.
func (t *enrollmentTx) Insert(ctx context.Context, cmd models.CreateEnrollmentCommand) (*models.Enrollment, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO enrollments AS e (client_id, program_id, status, notes, created_by)
		VALUES ($1, $2, 'active', $3, $4)
		RETURNING `+enrollmentColumns,
		cmd.ClientID, cmd.ProgramID, cmd.Notes, cmd.CreatedBy,
	)

	var e models.Enrollment
	var status string
	err := row.Scan(&e.ID, &e.ClientID, &e.ProgramID, &status, &e.EnrolledAt, &e.CompletedAt,
		&e.Notes, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if database.IsConstraintViolation(err, database.CodeUniqueViolation, EnrollmentUniqueConstraint) {
			return nil, models.ErrAlreadyEnrolled
		}
		return nil, database.MapPostgresError(err)
	}
	e.Status = models.EnrollmentStatus(status)
	return &e, nil
}
