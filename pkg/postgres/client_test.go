package postgres

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/saaga0h/floorplan-dashboard/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientNotConnected(t *testing.T) {
	client := NewClient(config.NewConfig(), nil)
	ctx := context.Background()

	_, err := client.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)

	var one int
	assert.ErrorIs(t, client.QueryRowScan(ctx, "SELECT 1", nil, &one), ErrNotConnected)
	assert.ErrorIs(t, client.Ping(ctx), ErrNotConnected)
	assert.NoError(t, client.Disconnect())

	status, err := client.HealthCheck(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "not connected", status.Error)
}

func TestClientConnect(t *testing.T) {
	if os.Getenv("DASHBOARD_POSTGRES_TEST") == "" {
		t.Skip("set DASHBOARD_POSTGRES_TEST to run against a live database")
	}

	cfg := config.NewConfig()
	cfg.LoadFromEnv()
	client := NewClient(cfg, slog.Default())
	ctx := context.Background()

	require.NoError(t, client.Connect(ctx))
	defer client.Disconnect()

	var one int
	require.NoError(t, client.QueryRowScan(ctx, "SELECT 1", nil, &one))
	assert.Equal(t, 1, one)
}
