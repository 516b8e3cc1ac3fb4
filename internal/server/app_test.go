package server

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/meduploads/internal/server/config"
	"github.com/dmitrijs2005/meduploads/internal/server/storage"
	"github.com/stretchr/testify/require"
)

func TestNewStore_Local(t *testing.T) {
	c := &config.Config{StorageBackend: config.StorageLocal, UploadRoot: t.TempDir()}

	s, err := newStore(context.Background(), c)
	require.NoError(t, err)
	require.IsType(t, &storage.LocalStore{}, s)
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.SecretKey = ""

	_, err := NewApp(context.Background(), c)
	require.ErrorContains(t, err, "secret key is empty")
}
