package documents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func ptr[T any](v T) *T { return &v }

func TestCreatePrescription_AllFields(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.QuoteMeta(`INSERT INTO prescriptions (user_id, title, department, doctor_name, visit_date, shared) VALUES ($1, $2, $3, $4, $5, $6) RETURNING prescription_id`)
	mock.ExpectQuery("^"+q+"$").
		WithArgs(int64(5), "Checkup", "Cardiology", "Dr. Who", "2026-10-01", true).
		WillReturnRows(sqlmock.NewRows([]string{"prescription_id"}).AddRow(int64(11)))

	visit := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	id, err := repo.CreatePrescription(context.Background(), &models.Prescription{
		UserID:     5,
		Title:      ptr("Checkup"),
		Department: ptr("Cardiology"),
		DoctorName: ptr("Dr. Who"),
		VisitDate:  &visit,
		Shared:     ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePrescription_OnlyOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.QuoteMeta(`INSERT INTO prescriptions (user_id) VALUES ($1) RETURNING prescription_id`)
	mock.ExpectQuery("^" + q + "$").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"prescription_id"}).AddRow(int64(12)))

	id, err := repo.CreatePrescription(context.Background(), &models.Prescription{UserID: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
}

func TestCreateReport_LinksPrescription(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.QuoteMeta(`INSERT INTO reports (user_id, prescription_id, test_name, delivery_date) VALUES ($1, $2, $3, $4) RETURNING report_id`)
	mock.ExpectQuery("^"+q+"$").
		WithArgs(int64(5), int64(11), "CBC", "2026-10-02").
		WillReturnRows(sqlmock.NewRows([]string{"report_id"}).AddRow(int64(3)))

	delivered := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	id, err := repo.CreateReport(context.Background(), &models.Report{
		UserID:         5,
		PrescriptionID: ptr(int64(11)),
		TestName:       ptr("CBC"),
		DeliveryDate:   &delivered,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestCreateReport_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^INSERT INTO reports`).WillReturnError(errors.New("db down"))

	_, err := repo.CreateReport(context.Background(), &models.Report{UserID: 5})
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

const prescriptionOwnerQ = `(?s)^SELECT\s+prescription_id,\s*user_id,\s*deleted\s+FROM\s+prescriptions\s+WHERE\s+prescription_id\s*=\s*\$1\s*$`

func TestGetPrescriptionOwner_IncludesSoftDeleted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(prescriptionOwnerQ).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"prescription_id", "user_id", "deleted"}).AddRow(int64(11), int64(5), true))

	o, err := repo.GetPrescriptionOwner(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, &models.Owner{ID: 11, UserID: 5, Deleted: true}, o)
}

func TestGetReportOwner_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+report_id,\s*user_id,\s*deleted\s+FROM\s+reports`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetReportOwner(context.Background(), 99)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

const softDeletePrescriptionQ = `(?s)^UPDATE\s+prescriptions\s+SET\s+deleted\s*=\s*true\s+WHERE\s+prescription_id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s+AND\s+deleted\s*=\s*false\s*$`

func TestSoftDeletePrescription(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(softDeletePrescriptionQ).
		WithArgs(int64(11), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SoftDeletePrescription(context.Background(), 11, 5))

	mock.ExpectExec(softDeletePrescriptionQ).
		WithArgs(int64(11), int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SoftDeletePrescription(context.Background(), 11, 6), common.ErrorNotFound)
}

func TestSoftDeleteReport_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+reports\s+SET\s+deleted\s*=\s*true`).
		WithArgs(int64(3), int64(5)).
		WillReturnError(errors.New("boom"))

	err := repo.SoftDeleteReport(context.Background(), 3, 5)
	require.Error(t, err)
	assert.Regexp(t, `db error: .*boom`, err.Error())
}
