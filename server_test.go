package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"postsapi/app/repositories/mock"
	"postsapi/app/routes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServerGracefulShutdown(t *testing.T) {
	// Find an available port.
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	addr := fmt.Sprintf("localhost:%d", port)
	srv := routes.NewServer(addr, routes.SetupRoutes(mock.NewStore(), zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, srv, zap.NewNop(), time.Second)
	}()

	// Wait for the server to accept requests.
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/api/posts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServerListenError(t *testing.T) {
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer listener.Close()

	srv := routes.NewServer(listener.Addr().String(), http.NotFoundHandler())
	err = runServer(context.Background(), srv, zap.NewNop(), time.Second)
	assert.Error(t, err)
}
