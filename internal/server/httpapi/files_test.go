package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/server/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownedFile = "scan-color-3-20261015T093000123Z_000_abcdef.png"

func getFile(s *testServer, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(common.AccessTokenHeaderName, token)
	}
	return s.do(req)
}

func TestServeFile_Owner(t *testing.T) {
	s := newTestServer(t)
	s.store.blobs["prescriptions/"+ownedFile] = []byte("png-bytes")

	w := getFile(s, "/uploads/prescriptions/"+ownedFile, goodToken)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
	assert.Equal(t, imaging.OutputContentType, w.Header().Get("Content-Type"))
}

func TestServeFile_TokenInQuery(t *testing.T) {
	s := newTestServer(t)
	s.store.blobs["reports/"+ownedFile] = []byte("x")

	w := getFile(s, "/uploads/reports/"+ownedFile+"?token=good", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServeFile_Denied(t *testing.T) {
	s := newTestServer(t)
	foreign := "scan-color-4-20261015T093000123Z_000_abcdef.png"
	s.store.blobs["prescriptions/"+foreign] = []byte("x")

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"other owner", "/uploads/prescriptions/" + foreign, goodToken, http.StatusForbidden},
		{"no token", "/uploads/prescriptions/" + ownedFile, "", http.StatusForbidden},
		{"bad token", "/uploads/prescriptions/" + ownedFile, "Bearer bad", http.StatusForbidden},
		{"no owner segment", "/uploads/prescriptions/plain.png", goodToken, http.StatusForbidden},
		{"unknown category", "/uploads/secrets/" + ownedFile, goodToken, http.StatusNotFound},
		{"parent dir", "/uploads/prescriptions/..", goodToken, http.StatusBadRequest},
		{"missing", "/uploads/profiles/" + ownedFile, goodToken, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := getFile(s, tc.path, tc.token)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}
