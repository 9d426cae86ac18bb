// Package config loads client settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config carries everything the terminal client needs to build a session.
type Config struct {
	ServerURL    string // base ws URL, e.g. ws://meet.example.com:8000
	Origin       string // Origin header sent on the handshake
	LoadValue    string // l= query parameter on the room URL
	DeviceIDPath string // where the stable user id lives

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	RetryInterval     time.Duration
	LocationInterval  time.Duration
}

// Load reads WEMEET_* environment variables over the defaults.
func Load() *Config {
	cfg := &Config{
		ServerURL:         "ws://localhost:8000",
		Origin:            "http://localhost:8000",
		DeviceIDPath:      defaultDeviceIDPath(),
		HeartbeatInterval: 15 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
		RetryInterval:     5 * time.Second,
		LocationInterval:  10 * time.Second,
	}

	if v := os.Getenv("WEMEET_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("WEMEET_ORIGIN"); v != "" {
		cfg.Origin = v
	}
	if v := os.Getenv("WEMEET_LOAD"); v != "" {
		cfg.LoadValue = v
	}
	if v := os.Getenv("WEMEET_DEVICE_ID_FILE"); v != "" {
		cfg.DeviceIDPath = v
	}
	overrideDuration(&cfg.HeartbeatInterval, "WEMEET_HEARTBEAT_INTERVAL")
	overrideDuration(&cfg.HeartbeatTimeout, "WEMEET_HEARTBEAT_TIMEOUT")
	overrideDuration(&cfg.RetryInterval, "WEMEET_RETRY_INTERVAL")
	overrideDuration(&cfg.LocationInterval, "WEMEET_LOCATION_INTERVAL")

	return cfg
}

func overrideDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
	}
}

func defaultDeviceIDPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "device_id"
	}
	return filepath.Join(home, ".wemeet", "device_id")
}
