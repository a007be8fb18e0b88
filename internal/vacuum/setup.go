package vacuum

import (
	"context"
	"errors"
	"fmt"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/config"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/logging"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/myvacbot"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/worker"
)

// Platform discovers robots and creates one adapter per robot.
type Platform struct {
	Host  string
	Hosts []string

	Dial func(host string) Robot
	Scan func(ctx context.Context, host string) ([]string, error)

	Pool     *worker.Pool
	Registry *Registry
	Options  []Option
}

func NewPlatform(cfg config.Config, pool *worker.Pool, registry *Registry) *Platform {
	rc := cfg.Robart
	return &Platform{
		Host:  rc.Host,
		Hosts: rc.Hosts,
		Dial: func(host string) Robot {
			return myvacbot.NewRobot(host, rc.Port, myvacbot.WithTimeout(rc.RequestTimeout))
		},
		Scan: func(ctx context.Context, host string) ([]string, error) {
			return myvacbot.Scan(ctx, host,
				myvacbot.WithScanPort(rc.Port),
				myvacbot.WithScanTimeout(rc.ScanTimeout),
				myvacbot.WithScanWorkers(rc.ScanWorkers),
			)
		},
		Pool:     pool,
		Registry: registry,
	}
}

// Setup tries the configured host first and scans its network when the
// robot cannot be reached there. Statically listed hosts are always added.
func (p *Platform) Setup(ctx context.Context) ([]*Vacuum, error) {
	logging.Info("Initialize Robart platform")

	hosts, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]*Vacuum, 0, len(hosts))
	for _, host := range hosts {
		v := New(ctx, p.Dial(host), p.Pool, p.Options...)
		p.Registry.Set(v.ID(), v)
		devices = append(devices, v)
		logging.Info("Initialize Robart %s", host)
	}
	return devices, nil
}

func (p *Platform) discover(ctx context.Context) ([]string, error) {
	var hosts []string

	if p.Host != "" {
		robot := p.Dial(p.Host)
		err := p.Pool.Do(ctx, func(ctx context.Context) error {
			_, err := robot.GetState(ctx)
			return err
		})
		switch {
		case err == nil:
			hosts = []string{p.Host}
		case errors.Is(err, myvacbot.ErrConnection):
			logging.Warn("Robart not reachable at %s, scanning: %s", p.Host, err)
			found, scanErr := p.Scan(ctx, p.Host)
			if scanErr != nil {
				scansTotal.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("discover robots: %w", scanErr)
			}
			scansTotal.WithLabelValues("ok").Inc()
			logging.Info("Robarts on the network %v", found)
			hosts = found
		default:
			return nil, fmt.Errorf("probe %s: %w", p.Host, err)
		}
	}

	return dedupe(append(hosts, p.Hosts...)), nil
}

func dedupe(hosts []string) []string {
	seen := make(map[string]bool, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
