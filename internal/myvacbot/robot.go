// Package myvacbot talks to robots running the Robart RobotAPI over their
// local HTTP interface.
package myvacbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultPort    = "10009"
	requestTimeout = 10 * time.Second

	statusPath    = "/get/status"
	robotIDPath   = "/get/robot_id"
	robotNamePath = "/get/robot_name"
	cleanPath     = "/set/clean_start_or_continue?cleaning_parameter_set=0"
	stopPath      = "/set/stop"
	homePath      = "/set/go_home"
)

// Modes reported in Status.Mode.
const (
	ModeCleaning = "cleaning"
	ModeGoHome   = "go_home"
	ModeNotReady = "not_ready"
	ModeReady    = "ready"
)

// ErrConnection marks failures to reach the robot at all.
var ErrConnection = errors.New("robot connection error")

// StatusError is returned when the robot answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

type Status struct {
	Mode                 string `json:"mode"`
	Charging             string `json:"charging"`
	BatteryLevel         int    `json:"battery_level"`
	CleaningParameterSet int    `json:"cleaning_parameter_set"`
}

type Identity struct {
	Name           string `json:"name"`
	UniqueID       string `json:"unique_id"`
	CamlasUniqueID string `json:"camlas_unique_id"`
	Model          string `json:"model"`
	Firmware       string `json:"firmware"`
}

type Option func(*Robot)

// WithHTTPClient replaces the default client, whose timeout is 10s.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Robot) { r.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Robot) {
		if d > 0 {
			r.httpClient = &http.Client{Timeout: d}
		}
	}
}

type Robot struct {
	host        string
	port        string
	restCallURL string
	httpClient  *http.Client
}

func NewRobot(host string, port string, opts ...Option) *Robot {
	if port == "" {
		port = DefaultPort
	}
	r := &Robot{
		host:        host,
		port:        port,
		restCallURL: "http://" + net.JoinHostPort(host, port),
		httpClient:  &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Robot) Host() string {
	return r.host
}

// RestCallURL is the base URL every call is made against.
func (r *Robot) RestCallURL() string {
	return r.restCallURL
}

func (r *Robot) GetState(ctx context.Context) (Status, error) {
	var status Status
	if err := r.getJSON(ctx, statusPath, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// GetRobotID reads the identity block and the user-assigned robot name.
func (r *Robot) GetRobotID(ctx context.Context) (Identity, error) {
	var id Identity
	if err := r.getJSON(ctx, robotIDPath, &id); err != nil {
		return Identity{}, err
	}

	var name struct {
		Name string `json:"name"`
	}
	if err := r.getJSON(ctx, robotNamePath, &name); err != nil {
		return Identity{}, err
	}
	id.Name = name.Name
	return id, nil
}

func (r *Robot) SetClean(ctx context.Context) error {
	_, err := r.get(ctx, cleanPath)
	return err
}

func (r *Robot) SetStop(ctx context.Context) error {
	_, err := r.get(ctx, stopPath)
	return err
}

func (r *Robot) SetHome(ctx context.Context) error {
	_, err := r.get(ctx, homePath)
	return err
}

func (r *Robot) getJSON(ctx context.Context, path string, dest any) error {
	body, err := r.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (r *Robot) get(ctx context.Context, path string) ([]byte, error) {
	endpoint := r.restCallURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %v", ErrConnection, endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConnection, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	return payload, nil
}
