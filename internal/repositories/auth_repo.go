package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/healthdesk/internal/database"
	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthRepository manages the per-user auth record: password material and
// the current refresh token.
type AuthRepository struct {
	pool *pgxpool.Pool
}

func NewAuthRepository(db *database.DB) *AuthRepository {
	return &AuthRepository{pool: db.Pool}
}

const authColumns = `id, user_id, password_hash, salt, refresh_token, token_expires_at, created_at, updated_at`

func scanAuthRow(scanner rowScanner) (*models.AuthRecord, error) {
	var rec models.AuthRecord
	err := scanner.Scan(&rec.ID, &rec.UserID, &rec.PasswordHash, &rec.Salt,
		&rec.RefreshToken, &rec.TokenExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &rec, nil
}

func (r *AuthRepository) GetByUserID(ctx context.Context, userID int64) (*models.AuthRecord, error) {
	return scanAuthRow(r.pool.QueryRow(ctx,
		`SELECT `+authColumns+` FROM auth WHERE user_id = $1`, userID))
}

// GetByRefreshToken looks up the record holding tokenHash. Expiry is checked by the caller.
func (r *AuthRepository) GetByRefreshToken(ctx context.Context, tokenHash string) (*models.AuthRecord, error) {
	return scanAuthRow(r.pool.QueryRow(ctx,
		`SELECT `+authColumns+` FROM auth WHERE refresh_token = $1`, tokenHash))
}

// SetRefreshToken replaces the stored refresh token of userID.
func (r *AuthRepository) SetRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE auth SET refresh_token = $2, token_expires_at = $3, updated_at = NOW()
		WHERE user_id = $1`,
		userID, tokenHash, expiresAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AuthRepository) ClearRefreshToken(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE auth SET refresh_token = NULL, token_expires_at = NULL, updated_at = NOW()
		WHERE user_id = $1`, userID)
	return database.MapPostgresError(err)
}

// CleanupExpiredRefreshTokens clears refresh tokens past their expiry (call periodically)
func (r *AuthRepository) CleanupExpiredRefreshTokens(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE auth SET refresh_token = NULL, token_expires_at = NULL, updated_at = NOW()
		WHERE token_expires_at IS NOT NULL AND token_expires_at < $1`, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
