package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
	"github.com/stretchr/testify/require"
)

func TestNewServesHealth(t *testing.T) {
	dir := t.TempDir()

	cfg := validConfig()
	cfg.Env = "test"
	cfg.LogLevel = "error"
	cfg.DatabaseFile = filepath.Join(dir, "taskboard.db")
	cfg.PepperFile = filepath.Join(dir, "pepper")

	application, err := New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		application.housekeepingService.Stop()
		_ = application.db.Close()
	})
	application.housekeepingService.Start()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health tasksdk.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, BuildVersion, health.Version)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseDriver = "mysql"

	_, err := New(cfg)
	require.ErrorContains(t, err, "invalid configuration")
}
