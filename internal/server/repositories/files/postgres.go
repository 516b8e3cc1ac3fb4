// Package files persists the image rows attached to prescriptions and reports.
package files

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/meduploads/internal/dbx"
	"github.com/dmitrijs2005/meduploads/internal/server/models"
)

// PostgresRepository implements image row storage over a dbx.DBTX (*sql.DB, *sql.Conn or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type table struct {
	name      string
	parentCol string
}

func tableFor(kind models.DocumentKind) (table, error) {
	switch kind {
	case models.KindPrescription:
		return table{name: "prescription_images", parentCol: "prescription_id"}, nil
	case models.KindReport:
		return table{name: "report_images", parentCol: "report_id"}, nil
	default:
		return table{}, fmt.Errorf("unknown document kind %q", kind)
	}
}

// Add inserts one image row and returns its image_id.
func (r *PostgresRepository) Add(ctx context.Context, file *models.ImageFile) (int64, error) {
	t, err := tableFor(file.Kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s, image_path, thumbnail_path)
		 VALUES ($1, $2, $3)
		 RETURNING image_id`, t.name, t.parentCol)

	if err := r.db.QueryRowContext(ctx, query, file.ParentID, file.ImagePath, file.ThumbnailPath).Scan(&file.ID); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return file.ID, nil
}

// ListByParent returns the active image rows of one record in insertion order.
func (r *PostgresRepository) ListByParent(ctx context.Context, kind models.DocumentKind, parentID int64) ([]*models.ImageFile, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT image_id, image_path, thumbnail_path FROM %s
		 WHERE %s = $1 AND deleted = false
		 ORDER BY image_id`, t.name, t.parentCol)

	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select images: %w", err)
	}
	defer rows.Close()

	var result []*models.ImageFile
	for rows.Next() {
		item := models.ImageFile{Kind: kind, ParentID: parentID}
		if err := rows.Scan(&item.ID, &item.ImagePath, &item.ThumbnailPath); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SoftDeleteByParent flags every active image row of a record as deleted and
// reports how many rows changed.
func (r *PostgresRepository) SoftDeleteByParent(ctx context.Context, kind models.DocumentKind, parentID int64) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`UPDATE %s SET deleted = true
		 WHERE %s = $1 AND deleted = false`, t.name, t.parentCol)

	res, err := r.db.ExecContext(ctx, query, parentID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
