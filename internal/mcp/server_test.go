package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Initialization(t *testing.T) {
	t.Run("custom path creates directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		server, err := NewServer(tmpDir, nil)
		require.NoError(t, err)
		defer server.Close()

		assert.NotNil(t, server.storage)
		assert.FileExists(t, tmpDir+"/chunkscan.db")
	})

	t.Run("server has all required components", func(t *testing.T) {
		server, err := NewServer(t.TempDir(), nil)
		require.NoError(t, err)
		defer server.Close()

		assert.NotNil(t, server.mcp, "MCP server should be initialized")
		assert.NotNil(t, server.storage, "Storage should be initialized")
		assert.NotNil(t, server.ingester, "Ingester should be initialized")
		assert.NotNil(t, server.datasets, "Dataset cache should be initialized")
		assert.NotNil(t, server.logger)
	})

	t.Run("search config read from environment", func(t *testing.T) {
		t.Setenv("CHUNKSCAN_WORKERS", "7")
		t.Setenv("CHUNKSCAN_MODE", "all")

		server, err := NewServer(t.TempDir(), nil)
		require.NoError(t, err)
		defer server.Close()

		assert.Equal(t, 7, server.search.Workers)
		assert.Equal(t, "all", string(server.search.Mode))
	})

	t.Run("invalid environment fails", func(t *testing.T) {
		t.Setenv("CHUNKSCAN_WORKERS", "many")

		_, err := NewServer(t.TempDir(), nil)
		assert.Error(t, err)
	})
}
