package vacuum

import (
	"context"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/mqtt"
)

type StatusEmitter interface {
	EmitStatus(ctx context.Context, id string, statusKey string, data interface{}) error
}

// Announcer is implemented by emitters that can describe a robot to the hub.
type Announcer interface {
	Announce(ctx context.Context, a mqtt.Announcement) error
}

type nopEmitter struct{}

func (nopEmitter) EmitStatus(context.Context, string, string, interface{}) error { return nil }
