package services

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/logging"
	"github.com/dmitrijs2005/meduploads/internal/server/auth"
	"github.com/dmitrijs2005/meduploads/internal/server/classifier"
	"github.com/dmitrijs2005/meduploads/internal/server/config"
	"github.com/dmitrijs2005/meduploads/internal/server/imaging"
	"github.com/dmitrijs2005/meduploads/internal/server/metrics"
	"github.com/dmitrijs2005/meduploads/internal/server/repositories/repomanager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	accountID = int64(3)
	memberID  = int64(7)
)

var testSecret = []byte("services-secret")

const (
	authorizeQ        = `(?s)^SELECT\s+user_id\s+FROM\s+users\s+WHERE`
	insertPrescQ      = `^INSERT INTO prescriptions \(`
	insertReportQ     = `^INSERT INTO reports \(`
	insertPrescImageQ = `(?s)^INSERT\s+INTO\s+prescription_images`
	insertReportImgQ  = `(?s)^INSERT\s+INTO\s+report_images`
	prescOwnerQ       = `(?s)^SELECT\s+prescription_id,\s*user_id,\s*deleted\s+FROM\s+prescriptions`
	reportOwnerQ      = `(?s)^SELECT\s+report_id,\s*user_id,\s*deleted\s+FROM\s+reports`
	getProfileQ       = `(?s)^SELECT\s+user_id,\s*account_id,\s*COALESCE`
	setProfileQ       = `(?s)^UPDATE\s+users\s+SET\s+profile_image`
)

type nopLogger struct{}

func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// widthExtractor returns the text registered for the width of the image it
// receives, so verdicts do not depend on scheduling order.
type widthExtractor struct {
	mu     sync.Mutex
	texts  map[int]string
	failOn map[int]error
	calls  int
}

func (w *widthExtractor) ExtractText(_ context.Context, data []byte) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if err := w.failOn[cfg.Width]; err != nil {
		return "", err
	}
	return w.texts[cfg.Width], nil
}

func (w *widthExtractor) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// memStore is an in-memory storage.Store.
type memStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	puts      []string
	deletes   []string
	putErrAt  int // 1-based Put call that fails; 0 disables
	deleteErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}, deleteErr: map[string]error{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, key)
	if m.putErrAt > 0 && len(m.puts) == m.putErrAt {
		return io.ErrShortWrite
	}
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	if _, ok := m.blobs[key]; !ok {
		return common.ErrorNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *memStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fixture struct {
	svc       *UploadService
	mock      sqlmock.Sqlmock
	db        *sql.DB
	store     *memStore
	extractor *widthExtractor
	cfg       *config.Config
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		MaxFiles:        10,
		MaxFileBytes:    1 << 20,
		ThumbnailSize:   200,
		ClassifyWorkers: 2,
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	store := newMemStore()
	ex := &widthExtractor{texts: map[int]string{}, failOn: map[int]error{}}

	svc := NewUploadService(db, rm, cfg, Dependencies{
		Guard:      auth.NewGuard(testSecret, rm),
		Generator:  imaging.NewGenerator(cfg.ThumbnailSize, nil),
		Classifier: classifier.New(nil),
		Extractor:  ex,
		Store:      store,
		Logger:     nopLogger{},
		Metrics:    metrics.New(prometheus.NewRegistry()),
	})

	return &fixture{svc: svc, mock: mock, db: db, store: store, extractor: ex, cfg: cfg}
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	tok, err := auth.GenerateToken(accountID, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (f *fixture) expectAuthorized() {
	f.mock.ExpectQuery(authorizeQ).
		WithArgs(memberID, accountID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(memberID))
}

// pngOf encodes a solid image; width doubles as its identity for widthExtractor.
func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func source(t *testing.T, name string, width int) imaging.Source {
	return imaging.Source{Filename: name, Data: pngOf(t, width, 10)}
}

func idRow(id int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}
