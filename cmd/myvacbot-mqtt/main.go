package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denwilliams/go-myvacbot-mqtt/internal/config"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/logging"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/mqtt"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/vacuum"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/web"
	"github.com/denwilliams/go-myvacbot-mqtt/internal/worker"
	"github.com/joho/godotenv"
)

const (
	rediscoverInterval = time.Minute
	setupTimeout       = 5 * time.Minute
)

func init() {
	logging.Init(nil, logging.DefaultFlags)
	logging.Info("Loading .env file")
	err := godotenv.Load(".env")

	if err != nil {
		logging.Warn("Unable to load .env")
	}
}

func main() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = config.DefaultConfigFile
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		logging.Error("Invalid configuration: %s", err)
		os.Exit(1)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(cfg.Workers)
	registry := vacuum.NewRegistry()

	var emitter vacuum.StatusEmitter
	var mc *mqtt.MQTTClient
	if mu := cfg.BrokerURL(); mu != nil {
		mc = mqtt.NewMQTTClient(mu, cfg.MQTT.TopicPrefix, mqtt.Options{
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		discoveryPrefix := ""
		if cfg.MQTT.Discovery {
			discoveryPrefix = cfg.MQTT.DiscoveryPrefix
		}
		emitter = mqtt.NewMqttStatusEmitter(mc, discoveryPrefix)
	} else {
		logging.Warn("MQTT_URI not set, state will only be served over HTTP")
	}

	vc := vacuum.NewClient(registry, emitter)
	defer vc.Stop()

	if mc != nil {
		if err := mc.Connect(vc); err != nil {
			logging.Error("%s", err)
			os.Exit(1)
		}
		defer mc.Disconnect()
	}

	if cfg.Port > 0 {
		go startServer(ctx, cfg.Port, web.CreateHandler(vc))
	}

	platform := vacuum.NewPlatform(cfg, pool, registry)
	if !discover(ctx, platform, vc) {
		logging.Info("Terminating")
		return
	}

	go pollLoop(ctx, vc, cfg.PollInterval)

	logging.Info("Ready")

	<-ctx.Done()
	logging.Info("Exit signal received")

	logging.Info("Terminating")
}

// discover runs platform setup until at least one robot is found. It returns
// false if interrupted first.
func discover(ctx context.Context, platform *vacuum.Platform, vc *vacuum.Client) bool {
	logging.Info("Performing initial discovery")

	for {
		setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
		devices, err := platform.Setup(setupCtx)
		cancel()

		switch {
		case err != nil:
			logging.Error("Robot discovery failed: %s", err)
		case len(devices) == 0:
			logging.Warn("No robots found")
		default:
			logging.Info("Found %d robot(s)", len(devices))
			vc.Announce(ctx)
			return true
		}

		select {
		case <-time.After(rediscoverInterval):
		case <-ctx.Done():
			logging.Info("Discovery interrupted, exiting")
			return false
		}
	}
}

func pollLoop(ctx context.Context, vc *vacuum.Client, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			pollCtx, cancel := context.WithTimeout(ctx, interval)
			vc.RefreshAll(pollCtx)
			cancel()
		case <-ctx.Done():
			logging.Info("Background poller interrupted, exiting")
			return
		}
	}
}

func startServer(ctx context.Context, port int, handler http.Handler) {
	logging.Info("Creating HTTP server")
	server := http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logging.Info("Starting HTTP server on port %d", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error("error running http server: %s", err)
		os.Exit(1)
	}
}
