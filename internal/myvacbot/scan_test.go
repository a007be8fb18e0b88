package myvacbot

import (
	"context"
	"net"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFindsRobotOnNetwork(t *testing.T) {
	server := httptest.NewServer((&fakeRobot{}).handler(t))
	defer server.Close()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	// any address in 127.0.0.0/24 starts the sweep; only 127.0.0.1 listens
	hosts, err := Scan(context.Background(), "127.0.0.77",
		WithScanPort(port),
		WithScanTimeout(500*time.Millisecond),
		WithScanWorkers(64),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1"}, hosts)
}

func TestScanRejectsIPv6(t *testing.T) {
	_, err := Scan(context.Background(), "::1")
	assert.ErrorContains(t, err, "only IPv4")
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, "127.0.0.1", WithScanWorkers(1))
	assert.ErrorIs(t, err, context.Canceled)
}
