package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-redis-url")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse redis url")
}

func TestConnect_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, "redis://127.0.0.1:1/0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ping redis 127.0.0.1:1")
}
