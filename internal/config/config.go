package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRobotPort       = "10009"
	DefaultTopicPrefix     = "myvacbot"
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultConfigFile      = "config.yml"
)

type MQTT struct {
	URI             string `yaml:"uri" envconfig:"MQTT_URI"`
	TopicPrefix     string `yaml:"topic_prefix" envconfig:"MQTT_TOPIC_PREFIX"`
	Username        string `yaml:"username" envconfig:"MQTT_USERNAME"`
	Password        string `yaml:"password" envconfig:"MQTT_PASSWORD"`
	Discovery       bool   `yaml:"discovery" envconfig:"HA_DISCOVERY"`
	DiscoveryPrefix string `yaml:"discovery_prefix" envconfig:"HA_DISCOVERY_PREFIX"`
}

type Robart struct {
	Host           string        `yaml:"host" envconfig:"ROBART_HOST"`
	Port           string        `yaml:"port" envconfig:"ROBART_PORT"`
	Hosts          []string      `yaml:"hosts" envconfig:"ROBART_HOSTS"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"ROBART_REQUEST_TIMEOUT"`
	ScanTimeout    time.Duration `yaml:"scan_timeout" envconfig:"ROBART_SCAN_TIMEOUT"`
	ScanWorkers    int           `yaml:"scan_workers" envconfig:"ROBART_SCAN_WORKERS"`
}

type Config struct {
	MQTT   MQTT   `yaml:"mqtt"`
	Robart Robart `yaml:"robart"`

	Port         int           `yaml:"port" envconfig:"PORT"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
	Workers      int           `yaml:"workers" envconfig:"WORKERS"`
	LogLevel     string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

func Default() Config {
	return Config{
		MQTT: MQTT{
			TopicPrefix:     DefaultTopicPrefix,
			Discovery:       true,
			DiscoveryPrefix: DefaultDiscoveryPrefix,
		},
		Robart: Robart{
			Port:           DefaultRobotPort,
			RequestTimeout: 10 * time.Second,
			ScanTimeout:    2 * time.Second,
			ScanWorkers:    32,
		},
		PollInterval: 20 * time.Second,
		Workers:      4,
		LogLevel:     "info",
	}
}

// Load reads the optional yaml file at path and then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("open config %s: %w", path, err)
		default:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Robart.Host) == "" && len(c.Robart.Hosts) == 0 {
		return errors.New("robart host is required (ROBART_HOST)")
	}
	if c.MQTT.URI != "" {
		if _, err := url.Parse(c.MQTT.URI); err != nil {
			return fmt.Errorf("invalid MQTT_URI: %w", err)
		}
	}
	if strings.Contains(c.MQTT.TopicPrefix, "#") || strings.Contains(c.MQTT.TopicPrefix, "+") {
		return fmt.Errorf("invalid MQTT_TOPIC_PREFIX %q: wildcards are not allowed", c.MQTT.TopicPrefix)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid POLL_INTERVAL %s", c.PollInterval)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid WORKERS %d", c.Workers)
	}
	if c.Robart.ScanWorkers < 1 {
		return fmt.Errorf("invalid ROBART_SCAN_WORKERS %d", c.Robart.ScanWorkers)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// BrokerURL returns the parsed MQTT_URI, or nil when MQTT is not configured.
func (c Config) BrokerURL() *url.URL {
	if c.MQTT.URI == "" {
		return nil
	}
	u, err := url.Parse(c.MQTT.URI)
	if err != nil {
		return nil
	}
	return u
}
