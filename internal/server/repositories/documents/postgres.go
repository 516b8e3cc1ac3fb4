// Package documents persists prescription and report records.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/dbx"
	"github.com/dmitrijs2005/meduploads/internal/server/models"
)

const dateLayout = "2006-01-02"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreatePrescription inserts p, sending only the optional columns that are set,
// and returns the new prescription_id.
func (r *PostgresRepository) CreatePrescription(ctx context.Context, p *models.Prescription) (int64, error) {
	b := newInsert("prescriptions", "prescription_id").Set("user_id", p.UserID)
	setOptional(b, "title", p.Title)
	setOptional(b, "department", p.Department)
	setOptional(b, "doctor_name", p.DoctorName)
	if p.VisitDate != nil {
		b.Set("visit_date", p.VisitDate.Format(dateLayout))
	}
	setOptional(b, "shared", p.Shared)

	return r.insert(ctx, b)
}

// CreateReport inserts rep and returns the new report_id.
func (r *PostgresRepository) CreateReport(ctx context.Context, rep *models.Report) (int64, error) {
	b := newInsert("reports", "report_id").Set("user_id", rep.UserID)
	setOptional(b, "prescription_id", rep.PrescriptionID)
	setOptional(b, "title", rep.Title)
	setOptional(b, "test_name", rep.TestName)
	if rep.DeliveryDate != nil {
		b.Set("delivery_date", rep.DeliveryDate.Format(dateLayout))
	}
	setOptional(b, "shared", rep.Shared)

	return r.insert(ctx, b)
}

func (r *PostgresRepository) insert(ctx context.Context, b *insertBuilder) (int64, error) {
	query, args, err := b.Build()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// GetPrescriptionOwner returns the ownership view of a prescription,
// including soft-deleted ones. Callers decide what deleted means for them.
func (r *PostgresRepository) GetPrescriptionOwner(ctx context.Context, id int64) (*models.Owner, error) {
	return r.owner(ctx,
		`SELECT prescription_id, user_id, deleted FROM prescriptions
		 WHERE prescription_id = $1
		 `, id)
}

// GetReportOwner is GetPrescriptionOwner for reports.
func (r *PostgresRepository) GetReportOwner(ctx context.Context, id int64) (*models.Owner, error) {
	return r.owner(ctx,
		`SELECT report_id, user_id, deleted FROM reports
		 WHERE report_id = $1
		 `, id)
}

func (r *PostgresRepository) owner(ctx context.Context, query string, id int64) (*models.Owner, error) {
	o := &models.Owner{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.UserID, &o.Deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

// SoftDeletePrescription flags an active prescription owned by userID as deleted.
// Returns common.ErrorNotFound when nothing matched.
func (r *PostgresRepository) SoftDeletePrescription(ctx context.Context, id, userID int64) error {
	return r.softDelete(ctx,
		`UPDATE prescriptions SET deleted = true
		 WHERE prescription_id = $1 AND user_id = $2 AND deleted = false
		 `, id, userID)
}

func (r *PostgresRepository) SoftDeleteReport(ctx context.Context, id, userID int64) error {
	return r.softDelete(ctx,
		`UPDATE reports SET deleted = true
		 WHERE report_id = $1 AND user_id = $2 AND deleted = false
		 `, id, userID)
}

func (r *PostgresRepository) softDelete(ctx context.Context, query string, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
