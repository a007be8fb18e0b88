package myvacbot

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type scanOptions struct {
	port    string
	timeout time.Duration
	workers int
}

type ScanOption func(*scanOptions)

func WithScanPort(port string) ScanOption {
	return func(o *scanOptions) {
		if port != "" {
			o.port = port
		}
	}
}

// WithScanTimeout bounds each probe, not the whole scan.
func WithScanTimeout(d time.Duration) ScanOption {
	return func(o *scanOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithScanWorkers(n int) ScanOption {
	return func(o *scanOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// Scan probes every address in the /24 network of host for a robot answering
// on the RobotAPI port. It returns the responding addresses in order.
func Scan(ctx context.Context, host string, opts ...ScanOption) ([]string, error) {
	o := scanOptions{port: DefaultPort, timeout: 2 * time.Second, workers: 32}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := resolveIPv4(ctx, host)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		found []net.IP
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := 1; i < 255; i++ {
		ip := net.IPv4(base[0], base[1], base[2], byte(i)).To4()
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if probe(gctx, ip.String(), o) {
				mu.Lock()
				found = append(found, ip)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", host, err)
	}

	sort.Slice(found, func(a, b int) bool { return bytes.Compare(found[a], found[b]) < 0 })
	hosts := make([]string, 0, len(found))
	for _, ip := range found {
		hosts = append(hosts, ip.String())
	}
	return hosts, nil
}

func probe(ctx context.Context, host string, o scanOptions) bool {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	r := NewRobot(host, o.port, WithTimeout(o.timeout))
	var id Identity
	return r.getJSON(ctx, robotIDPath, &id) == nil
}

func resolveIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("scan %s: only IPv4 networks can be scanned", host)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("scan %s: resolve: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("scan %s: no IPv4 address", host)
	}
	return ips[0].To4(), nil
}
