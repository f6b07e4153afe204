package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	srv, err := Run(slog.New(slog.NewTextHandler(io.Discard, nil)), "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.SetServing("storefront-api", true)
	ok, err := Check(ctx, srv.Addr(), "storefront-api")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Check(ctx, srv.Addr(), "")
	require.NoError(t, err)
	assert.True(t, ok)

	srv.SetServing("storefront-api", false)
	ok, err = Check(ctx, srv.Addr(), "storefront-api")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Check(ctx, srv.Addr(), "unknown")
	assert.Error(t, err)
}
