package redisstorage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

func setupRedis(t *testing.T) (string, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func TestSummarySink_AppendAndRecent(t *testing.T) {
	addr, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	client, err := NewClient(ctx, Config{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	sink := NewSummarySink(client, Config{Stream: "test_summaries"})

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Append(ctx, &domain.TokenSummary{
			ID:         uuid.NewString(),
			Mint:       fmt.Sprintf("mint%d", i),
			Symbol:     "BONK",
			Source:     domain.SourcePumpPortal,
			MarketCap:  domain.Ptr(2e6),
			Text:       "Token: BONK",
			RecordedAt: int64(i),
		}))
	}

	n, err := sink.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	recent, err := sink.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "mint2", recent[0].Mint)
	assert.Equal(t, 2e6, *recent[0].MarketCap)
}

func TestNewClient_EmptyAddr(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)
}

func TestSummarySink_InvalidInput(t *testing.T) {
	sink := NewSummarySink(nil, Config{})
	assert.ErrorIs(t, sink.Append(context.Background(), &domain.TokenSummary{}), storage.ErrInvalidInput)
	assert.Equal(t, DefaultStream, sink.stream)
}
