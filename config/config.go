// Package config loads connection settings from an INI file, generalizing
// stronnag-msp-go/osinfo.go's single-purpose /etc/os-release reader into a
// small reusable loader for this module's link/cache/log settings.
package config

import (
	"github.com/go-ini/ini"
)

// Config holds the settings a Crazyflie connection needs at startup.
type Config struct {
	// LinkURI is the transport device string, e.g. "/dev/ttyUSB0@115200".
	LinkURI string
	// BaudRate is used only when LinkURI has no explicit baud suffix.
	BaudRate int
	// CacheDir is the directory TOC caches are read from and written to.
	CacheDir string
	// LogLevel is a slog-compatible level name: debug, info, warn, error.
	LogLevel string
}

// Default returns the settings used when no config file is present.
func Default() Config {
	return Config{
		LinkURI:  "",
		BaudRate: 115200,
		CacheDir: ".",
		LogLevel: "info",
	}
}

// Load reads path ([link]/[cache]/[log] sections) and overlays it on
// Default(). A missing file is not an error: Default() is returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.LooseLoad(path)
	if err != nil {
		return cfg, err
	}

	link := f.Section("link")
	if v := link.Key("uri").String(); v != "" {
		cfg.LinkURI = v
	}
	if v, err := link.Key("baud").Int(); err == nil && v > 0 {
		cfg.BaudRate = v
	}

	cache := f.Section("cache")
	if v := cache.Key("dir").String(); v != "" {
		cfg.CacheDir = v
	}

	log := f.Section("log")
	if v := log.Key("level").String(); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
