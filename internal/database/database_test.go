package database

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectRoutesSQLiteURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	db, err := Connect("sqlite://" + path)
	require.NoError(t, err)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestConnectRejectsEmptyInputs(t *testing.T) {
	_, err := Connect("")
	require.Error(t, err)
	_, err = ConnectSQLite("")
	require.Error(t, err)
	_, err = ConnectRedis(context.Background(), "", "test")
	require.Error(t, err)
	_, err = ConnectNATS("", "test")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+server.Addr(), "")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	server.CheckGet(t, "k", "v")
}
