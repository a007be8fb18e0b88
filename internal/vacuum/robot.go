package vacuum

import (
	"context"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/myvacbot"
)

// Robot is the device-control surface an adapter forwards to.
type Robot interface {
	Host() string
	RestCallURL() string
	GetState(ctx context.Context) (myvacbot.Status, error)
	GetRobotID(ctx context.Context) (myvacbot.Identity, error)
	SetClean(ctx context.Context) error
	SetStop(ctx context.Context) error
	SetHome(ctx context.Context) error
}

var _ Robot = (*myvacbot.Robot)(nil)
