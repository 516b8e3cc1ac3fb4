package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/meduploads/internal/server/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func stubGoose(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = fn
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestFactories_BindToGivenDBTX(t *testing.T) {
	db := newDB(t)
	m := NewPostgresRepositoryManager()

	assert.NotNil(t, m.Users(db))
	assert.NotNil(t, m.Documents(db))
	assert.NotNil(t, m.Files(db))
}

func TestRunMigrations_UsesEmbeddedRoot(t *testing.T) {
	var gotDir string
	stubGoose(t, func(_ context.Context, _ *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		assert.Empty(t, opts)
		return nil
	})

	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), newDB(t)))
	assert.Equal(t, ".", gotDir)
}

func TestRunMigrations_WrapsGooseError(t *testing.T) {
	boom := errors.New("boom")
	stubGoose(t, func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error { return boom })

	err := NewPostgresRepositoryManager().RunMigrations(context.Background(), newDB(t))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "goose up")
}

func TestEmbeddedMigrations_CreateSchema(t *testing.T) {
	names, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := fs.ReadFile(migrations.Migrations, names[0])
	require.NoError(t, err)
	sqlText := string(body)

	assert.Contains(t, sqlText, "-- +goose Up")
	assert.Contains(t, sqlText, "-- +goose Down")
	for _, table := range []string{"users", "prescriptions", "reports", "prescription_images", "report_images"} {
		assert.True(t, strings.Contains(sqlText, "CREATE TABLE "+table) || strings.Contains(sqlText, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}
