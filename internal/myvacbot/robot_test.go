package myvacbot

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRobot struct {
	mu       sync.Mutex
	requests []string
	status   string
}

func (f *fakeRobot) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.URL.RequestURI())
		status := f.status
		f.mu.Unlock()

		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/get/status":
			_, _ = io.WriteString(w, status)
		case "/get/robot_id":
			_, _ = io.WriteString(w, `{"unique_id":"0123abcd","camlas_unique_id":"c-77","model":"MyVacBot SR","firmware":"1.4.2"}`)
		case "/get/robot_name":
			_, _ = io.WriteString(w, `{"name":"Wall-E"}`)
		case "/set/clean_start_or_continue", "/set/stop", "/set/go_home":
			_, _ = io.WriteString(w, `{"cmd_id":1}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "not found\n")
		}
	})
}

func (f *fakeRobot) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newTestRobot(t *testing.T, f *fakeRobot) *Robot {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return NewRobot(host, port)
}

func TestNewRobotDefaults(t *testing.T) {
	r := NewRobot("192.168.1.40", "")
	assert.Equal(t, "192.168.1.40", r.Host())
	assert.Equal(t, "http://192.168.1.40:10009", r.RestCallURL())
}

func TestGetState(t *testing.T) {
	f := &fakeRobot{status: `{"mode":"cleaning","charging":"unconnected","battery_level":87,"cleaning_parameter_set":1}`}
	r := newTestRobot(t, f)

	status, err := r.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Status{Mode: ModeCleaning, Charging: "unconnected", BatteryLevel: 87, CleaningParameterSet: 1}, status)
	assert.Equal(t, []string{"/get/status"}, f.seen())
}

func TestGetRobotID(t *testing.T) {
	f := &fakeRobot{}
	r := newTestRobot(t, f)

	id, err := r.GetRobotID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Identity{
		Name:           "Wall-E",
		UniqueID:       "0123abcd",
		CamlasUniqueID: "c-77",
		Model:          "MyVacBot SR",
		Firmware:       "1.4.2",
	}, id)
	assert.Equal(t, []string{"/get/robot_id", "/get/robot_name"}, f.seen())
}

func TestCommands(t *testing.T) {
	f := &fakeRobot{}
	r := newTestRobot(t, f)
	ctx := context.Background()

	require.NoError(t, r.SetClean(ctx))
	require.NoError(t, r.SetStop(ctx))
	require.NoError(t, r.SetHome(ctx))

	assert.Equal(t, []string{
		"/set/clean_start_or_continue?cleaning_parameter_set=0",
		"/set/stop",
		"/set/go_home",
	}, f.seen())
}

func TestDecodeError(t *testing.T) {
	f := &fakeRobot{status: `not json`}
	r := newTestRobot(t, f)

	_, err := r.GetState(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConnection))
	assert.ErrorContains(t, err, "decode /get/status")
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	u, _ := url.Parse(server.URL)
	host, port, _ := net.SplitHostPort(u.Host)

	err := NewRobot(host, port).SetStop(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "busy", statusErr.Body)
	assert.False(t, errors.Is(err, ErrConnection))
}

func TestConnectionError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	require.NoError(t, l.Close())

	r := NewRobot("127.0.0.1", strconv.Itoa(addr.Port), WithTimeout(time.Second))
	_, err = r.GetState(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
}
