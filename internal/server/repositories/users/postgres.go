package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/dbx"
	"github.com/dmitrijs2005/meduploads/internal/server/models"
)

// PostgresRepository implements member lookups over a dbx.DBTX (*sql.DB, *sql.Conn or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Authorize checks that memberID is an active member of accountID.
// Returns common.ErrorNotFound when no such member exists.
func (r *PostgresRepository) Authorize(ctx context.Context, memberID, accountID int64) error {
	query :=
		`SELECT user_id FROM users
		 WHERE user_id = $1 AND account_id = $2 AND deleted = false
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query, memberID, accountID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// GetProfile returns the member with the current profile image paths.
// Empty strings mean no profile image has been set.
func (r *PostgresRepository) GetProfile(ctx context.Context, memberID int64) (*models.User, error) {
	query :=
		`SELECT user_id, account_id, COALESCE(profile_image, ''), COALESCE(profile_thumbnail, '') FROM users
		 WHERE user_id = $1 AND deleted = false
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, memberID).
		Scan(&user.ID, &user.AccountID, &user.ProfileImage, &user.ProfileThumbnail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// SetProfile replaces the stored profile image paths. Exactly one row must be affected.
func (r *PostgresRepository) SetProfile(ctx context.Context, memberID int64, image, thumbnail string) error {
	query :=
		`UPDATE users SET profile_image = $1, profile_thumbnail = $2
		 WHERE user_id = $3 AND deleted = false
		 `

	res, err := r.db.ExecContext(ctx, query, image, thumbnail, memberID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
