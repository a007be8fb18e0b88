package vacuum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/logging"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/myvacbot"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/worker"
	"github.com/jellydator/ttlcache/v3"
	"github.com/kr/pretty"
)

const (
	AttrCharging        = "charging"
	AttrUniqueID        = "unique_id"
	AttrSoftwareVersion = "software_version"

	DefaultIdentityTTL = time.Hour
)

var ErrUnknownCommand = errors.New("unknown vacuum command")

type Option func(*Vacuum)

// WithIdentityTTL controls how often name and firmware are re-read.
func WithIdentityTTL(d time.Duration) Option {
	return func(v *Vacuum) {
		if d > 0 {
			v.identityTTL = d
		}
	}
}

// Vacuum adapts one robot to the hub. Commands and polls are run on the
// shared worker pool.
type Vacuum struct {
	id    string
	robot Robot
	pool  *worker.Pool

	identityTTL time.Duration
	identities  *ttlcache.Cache[string, myvacbot.Identity]

	mu       sync.RWMutex
	status   *myvacbot.Status
	identity myvacbot.Identity
	attrs    map[string]interface{}
}

// New builds the adapter and reads the initial state. A robot that cannot be
// reached yields an unavailable adapter rather than an error.
func New(ctx context.Context, robot Robot, pool *worker.Pool, opts ...Option) *Vacuum {
	v := &Vacuum{
		id:          robot.Host(),
		robot:       robot,
		pool:        pool,
		identityTTL: DefaultIdentityTTL,
		attrs:       map[string]interface{}{},
	}
	for _, opt := range opts {
		opt(v)
	}
	v.identities = ttlcache.New[string, myvacbot.Identity](
		ttlcache.WithTTL[string, myvacbot.Identity](v.identityTTL),
		ttlcache.WithDisableTouchOnHit[string, myvacbot.Identity](),
	)

	var (
		status myvacbot.Status
		id     myvacbot.Identity
	)
	err := v.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		if status, err = robot.GetState(ctx); err != nil {
			return err
		}
		id, err = robot.GetRobotID(ctx)
		return err
	})
	if err != nil {
		logging.Error("Communication error with %s (%s): %s", v.id, robot.RestCallURL(), err)
		return v
	}

	v.mu.Lock()
	v.status = &status
	v.identity = id
	v.identities.Set(v.id, id, ttlcache.DefaultTTL)
	v.attrs = buildAttributes(status, id)
	v.mu.Unlock()
	v.observe()

	logging.Info("Vacuum %s (%s)", id.Name, robot.RestCallURL())
	logging.Info("mode: %s, charging: %s, battery_level: %d", status.Mode, status.Charging, status.BatteryLevel)
	logging.Info("name: %s, unique_id: %s, camlas_unique_id: %s, model: %s, firmware: %s",
		id.Name, id.UniqueID, id.CamlasUniqueID, id.Model, id.Firmware)
	logging.Debug("%s identity %# v", v.id, pretty.Formatter(id))
	return v
}

// ID is the key the adapter is registered and addressed under.
func (v *Vacuum) ID() string {
	return v.id
}

func (v *Vacuum) SupportedFeatures() Feature {
	return SupportRobart
}

func (v *Vacuum) BatteryLevel() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.status == nil {
		return 0
	}
	return v.status.BatteryLevel
}

// Status is the raw mode reported by the robot.
func (v *Vacuum) Status() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.status == nil {
		return ""
	}
	return v.status.Mode
}

func (v *Vacuum) IsOn() bool {
	return v.Status() == myvacbot.ModeCleaning
}

// Available reports whether the last poll reached the robot.
func (v *Vacuum) Available() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status != nil
}

func (v *Vacuum) Name() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.identity.Name
}

func (v *Vacuum) Attributes() map[string]interface{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return copyAttributes(v.attrs)
}

func (v *Vacuum) TurnOn(ctx context.Context) error {
	return v.run(ctx, "turn_on", v.robot.SetClean)
}

// TurnOff sends the robot back to its dock.
func (v *Vacuum) TurnOff(ctx context.Context) error {
	return v.run(ctx, "turn_off", v.robot.SetHome)
}

func (v *Vacuum) Stop(ctx context.Context) error {
	return v.run(ctx, "stop", v.robot.SetStop)
}

func (v *Vacuum) Resume(ctx context.Context) error {
	return v.run(ctx, "resume", v.robot.SetClean)
}

func (v *Vacuum) Pause(ctx context.Context) error {
	return v.run(ctx, "pause", v.robot.SetStop)
}

// StartPause always resumes: the robot has no separate pause state to toggle from.
func (v *Vacuum) StartPause(ctx context.Context) error {
	return v.run(ctx, "start_pause", v.robot.SetClean)
}

func (v *Vacuum) ReturnToBase(ctx context.Context) error {
	return v.run(ctx, "return_to_base", v.robot.SetHome)
}

// SendCommand dispatches a command by name.
func (v *Vacuum) SendCommand(ctx context.Context, command string) error {
	switch command {
	case "start", "turn_on", "clean":
		return v.TurnOn(ctx)
	case "resume":
		return v.Resume(ctx)
	case "start_pause":
		return v.StartPause(ctx)
	case "pause":
		return v.Pause(ctx)
	case "stop":
		return v.Stop(ctx)
	case "turn_off":
		return v.TurnOff(ctx)
	case "return_to_base", "return_home", "dock", "go_home":
		return v.ReturnToBase(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func (v *Vacuum) run(ctx context.Context, name string, call func(context.Context) error) error {
	logging.Debug("Sending %s to %s", name, v.id)
	if err := v.pool.Do(ctx, call); err != nil {
		return fmt.Errorf("%s %s: %w", name, v.id, err)
	}
	return nil
}

// Update polls the robot. A connection failure marks the adapter
// unavailable until the next successful poll.
func (v *Vacuum) Update(ctx context.Context) error {
	var status myvacbot.Status
	err := v.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		status, err = v.robot.GetState(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, myvacbot.ErrConnection) {
			logging.Error("Communication error with %s (%s)", v.Name(), v.robot.RestCallURL())
			v.mu.Lock()
			v.status = nil
			v.mu.Unlock()
			v.observe()
		}
		return fmt.Errorf("update %s: %w", v.id, err)
	}

	id := v.refreshIdentity(ctx)

	v.mu.Lock()
	v.status = &status
	v.identity = id
	v.attrs = buildAttributes(status, id)
	v.mu.Unlock()
	v.observe()

	logging.Debug("mode: %s, charging: %s, battery_level: %d", status.Mode, status.Charging, status.BatteryLevel)
	logging.Debug("%s status %# v", v.id, pretty.Formatter(status))
	return nil
}

// refreshIdentity returns the cached identity, re-reading it from the robot
// once it has expired. Failures keep the previous identity.
func (v *Vacuum) refreshIdentity(ctx context.Context) myvacbot.Identity {
	if item := v.identities.Get(v.id); item != nil {
		return item.Value()
	}

	v.mu.RLock()
	current := v.identity
	v.mu.RUnlock()

	var id myvacbot.Identity
	err := v.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		id, err = v.robot.GetRobotID(ctx)
		return err
	})
	if err != nil {
		logging.Warn("Failed to read identity of %s: %s", v.id, err)
		return current
	}
	v.identities.Set(v.id, id, ttlcache.DefaultTTL)
	if diff := pretty.Diff(current, id); len(diff) > 0 {
		logging.Info("Identity of %s changed: %s", v.id, strings.Join(diff, ", "))
	}
	return id
}

// Snapshot returns a copy of everything the hub shows for this robot.
func (v *Vacuum) Snapshot() State {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := State{
		ID:                v.id,
		Host:              v.robot.Host(),
		Name:              v.identity.Name,
		UniqueID:          v.identity.UniqueID,
		CamlasUniqueID:    v.identity.CamlasUniqueID,
		Model:             v.identity.Model,
		Firmware:          v.identity.Firmware,
		Available:         v.status != nil,
		SupportedFeatures: SupportRobart,
		Attributes:        copyAttributes(v.attrs),
	}
	if v.status != nil {
		s.Mode = v.status.Mode
		s.Charging = v.status.Charging
		s.BatteryLevel = v.status.BatteryLevel
		s.IsOn = v.status.Mode == myvacbot.ModeCleaning
	}
	return s
}

func (v *Vacuum) observe() {
	s := v.Snapshot()
	if !s.Available {
		robotAvailable.WithLabelValues(s.ID).Set(0)
		return
	}
	robotAvailable.WithLabelValues(s.ID).Set(1)
	robotBattery.WithLabelValues(s.ID).Set(float64(s.BatteryLevel))
	if s.Docked() {
		robotCharging.WithLabelValues(s.ID).Set(1)
	} else {
		robotCharging.WithLabelValues(s.ID).Set(0)
	}
}

func buildAttributes(status myvacbot.Status, id myvacbot.Identity) map[string]interface{} {
	return map[string]interface{}{
		AttrCharging:        status.Charging,
		AttrUniqueID:        id.UniqueID,
		AttrSoftwareVersion: id.Firmware,
	}
}

func copyAttributes(attrs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
