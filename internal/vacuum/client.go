package vacuum

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/logging"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/mqtt"
	"github.com/icza/gox/gox"
)

const (
	commandTimeout = 30 * time.Second
	refreshTimeout = 15 * time.Second
	refreshDelay   = 2 * time.Second
)

var ErrNotFound = errors.New("vacuum not found")

var _ mqtt.CommandHandler = (*Client)(nil)

// Client polls registered vacuums, relays commands to them and emits their
// state to the hub.
type Client struct {
	registry *Registry
	emitter  StatusEmitter

	mu     sync.Mutex
	last   map[string]State
	timers map[string]*time.Timer
	emits  map[string]*sync.Mutex
}

func NewClient(registry *Registry, emitter StatusEmitter) *Client {
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &Client{
		registry: registry,
		emitter:  emitter,
		last:     make(map[string]State),
		timers:   make(map[string]*time.Timer),
		emits:    make(map[string]*sync.Mutex),
	}
}

func (c *Client) Get(id string) *Vacuum {
	return c.registry.Get(id)
}

func (c *Client) List() []*Vacuum {
	return c.registry.List()
}

// RefreshAll polls every vacuum concurrently and emits what changed.
func (c *Client) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, v := range c.registry.List() {
		wg.Add(1)
		go func(v *Vacuum) {
			defer wg.Done()
			if err := c.Refresh(ctx, v); err != nil {
				logging.Warn("Failed to refresh %s: %s", v.ID(), err)
			}
		}(v)
	}
	wg.Wait()
}

func (c *Client) Refresh(ctx context.Context, v *Vacuum) error {
	logging.Debug("Refreshing %s", v.ID())

	err := v.Update(ctx)
	if err != nil {
		pollsTotal.WithLabelValues("error").Inc()
	} else {
		pollsTotal.WithLabelValues("ok").Inc()
	}
	c.publish(ctx, v, false)
	return err
}

// Announce sends discovery configs for every vacuum followed by its full state.
func (c *Client) Announce(ctx context.Context) {
	for _, v := range c.registry.List() {
		c.publish(ctx, v, true)
	}
}

// QueueRefresh polls the vacuum after d, replacing any refresh already queued.
func (c *Client) QueueRefresh(id string, d time.Duration) {
	v := c.registry.Get(id)
	if v == nil {
		return
	}
	if d == 0 {
		d = refreshDelay
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.timers[id]; t != nil {
		t.Stop()
	}
	c.timers[id] = time.AfterFunc(d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := c.Refresh(ctx, v); err != nil {
			logging.Warn("Failed to refresh %s: %s", id, err)
		}
	})
}

// Stop cancels queued refreshes.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Client) HandleCommand(id string, command *mqtt.Command) error {
	if command == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return c.SendCommand(ctx, id, command.Command)
}

// SendCommand relays a named command and schedules a refresh so the hub sees
// the effect.
func (c *Client) SendCommand(ctx context.Context, id string, command string) error {
	v := c.registry.Get(id)
	if v == nil {
		logging.Warn("Vacuum %s not found", id)
		commandsTotal.WithLabelValues(command, "not_found").Inc()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := v.SendCommand(ctx, command); err != nil {
		result := "error"
		if errors.Is(err, ErrUnknownCommand) {
			result = "unknown"
		}
		commandsTotal.WithLabelValues(command, result).Inc()
		return err
	}

	commandsTotal.WithLabelValues(command, "ok").Inc()
	logging.Info("Sent %s to %s", command, id)
	c.QueueRefresh(id, refreshDelay)
	return nil
}

// publish emits what changed since the last publish of v. A vacuum whose
// identity changed after it was announced is announced again.
func (c *Client) publish(ctx context.Context, v *Vacuum, announce bool) {
	mu := c.emitLock(v.ID())
	mu.Lock()
	defer mu.Unlock()

	s := v.Snapshot()
	c.mu.Lock()
	prev, seen := c.last[s.ID]
	c.last[s.ID] = s
	c.mu.Unlock()

	if seen && !sameIdentity(prev, s) {
		logging.Info("Identity of %s changed, announcing again", s.ID)
		announce = true
	}
	if announce {
		c.announce(ctx, s)
	}

	force := announce || !seen
	if force || prev.Available != s.Available {
		c.emit(ctx, s.ID, "availability", gox.If(s.Available).String("online", "offline"))
	}
	if !s.Available {
		return
	}
	if force || prev.Payload() != s.Payload() {
		c.emit(ctx, s.ID, "state", s.Payload())
	}
	if force || !reflect.DeepEqual(prev.Attributes, s.Attributes) {
		c.emit(ctx, s.ID, "attributes", s.Attributes)
	}
}

// emitLock serializes publishing per vacuum so an older snapshot is never
// emitted after a newer one.
func (c *Client) emitLock(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	mu, ok := c.emits[id]
	if !ok {
		mu = &sync.Mutex{}
		c.emits[id] = mu
	}
	return mu
}

func (c *Client) announce(ctx context.Context, s State) {
	announcer, ok := c.emitter.(Announcer)
	if !ok {
		return
	}
	if err := announcer.Announce(ctx, announcement(s)); err != nil {
		logging.Warn("Failed to announce %s: %s", s.ID, err)
	}
}

func (c *Client) emit(ctx context.Context, id string, key string, data interface{}) {
	if err := c.emitter.EmitStatus(ctx, id, key, data); err != nil {
		logging.Warn("Failed to emit %s for %s: %s", key, id, err)
	}
}

func sameIdentity(a, b State) bool {
	return a.UniqueID == b.UniqueID && a.Name == b.Name && a.Model == b.Model && a.Firmware == b.Firmware
}

func announcement(s State) mqtt.Announcement {
	return mqtt.Announcement{
		ID:       s.ID,
		UniqueID: s.UniqueID,
		Name:     s.Name,
		Model:    s.Model,
		Firmware: s.Firmware,
		Features: s.SupportedFeatures.Names(),
	}
}
