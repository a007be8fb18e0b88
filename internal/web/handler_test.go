package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/myvacbot"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/vacuum"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/worker"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRobot struct {
	host    string
	homeErr error
	cleans  int
}

func (s *stubRobot) Host() string        { return s.host }
func (s *stubRobot) RestCallURL() string { return "http://" + s.host + ":10009" }

func (s *stubRobot) GetState(context.Context) (myvacbot.Status, error) {
	return myvacbot.Status{Mode: "ready", Charging: "connected", BatteryLevel: 90}, nil
}

func (s *stubRobot) GetRobotID(context.Context) (myvacbot.Identity, error) {
	return myvacbot.Identity{Name: "Wall-E", UniqueID: "uid-1", Firmware: "1.4.2"}, nil
}

func (s *stubRobot) SetClean(context.Context) error { s.cleans++; return nil }
func (s *stubRobot) SetStop(context.Context) error  { return nil }
func (s *stubRobot) SetHome(context.Context) error  { return s.homeErr }

func newTestServer(t *testing.T, robot *stubRobot) *httptest.Server {
	t.Helper()
	registry := vacuum.NewRegistry()
	registry.Set(robot.host, vacuum.New(context.Background(), robot, worker.NewPool(1)))
	client := vacuum.NewClient(registry, nil)
	t.Cleanup(client.Stop)

	server := httptest.NewServer(CreateHandler(client))
	t.Cleanup(server.Close)
	return server
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, &stubRobot{host: "10.0.0.5"})

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = uuid.Parse(resp.Header.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestRequestIDIsKept(t *testing.T) {
	server := newTestServer(t, &stubRobot{host: "10.0.0.5"})
	id := uuid.NewString()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, id, resp.Header.Get("X-Request-ID"))
}

func TestMetrics(t *testing.T) {
	server := newTestServer(t, &stubRobot{host: "10.0.0.5"})

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListAndGet(t *testing.T) {
	server := newTestServer(t, &stubRobot{host: "10.0.0.5"})

	resp, err := http.Get(server.URL + "/api/vacuums")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var states []vacuum.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&states))
	require.Len(t, states, 1)
	assert.Equal(t, "Wall-E", states[0].Name)
	assert.Equal(t, 90, states[0].BatteryLevel)
	assert.True(t, states[0].Available)

	resp2, err := http.Get(server.URL + "/api/vacuums/10.0.0.5")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var state vacuum.State
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&state))
	assert.Equal(t, "uid-1", state.UniqueID)
	assert.Equal(t, "1.4.2", state.Attributes[vacuum.AttrSoftwareVersion])

	resp3, err := http.Get(server.URL + "/api/vacuums/10.0.0.9")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestCommands(t *testing.T) {
	robot := &stubRobot{host: "10.0.0.5", homeErr: fmt.Errorf("%w: refused", myvacbot.ErrConnection)}
	server := newTestServer(t, robot)

	post := func(path string) (*http.Response, map[string]string) {
		resp, err := http.Post(server.URL+path, "application/json", strings.NewReader(""))
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp, body
	}

	resp, body := post("/api/vacuums/10.0.0.5/commands/start")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "start", body["command"])
	assert.Equal(t, resp.Header.Get("X-Request-ID"), body["request_id"])
	assert.Equal(t, 1, robot.cleans)

	resp, _ = post("/api/vacuums/10.0.0.9/commands/start")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = post("/api/vacuums/10.0.0.5/commands/locate")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown vacuum command")

	resp, _ = post("/api/vacuums/10.0.0.5/commands/return_to_base")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCommandRequiresPost(t *testing.T) {
	server := newTestServer(t, &stubRobot{host: "10.0.0.5"})

	resp, err := http.Get(server.URL + "/api/vacuums/10.0.0.5/commands/start")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
