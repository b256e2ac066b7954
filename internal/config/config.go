package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"aurora-kvm-top/internal/balloon"
)

// Config holds every environment-tunable knob the TUI reads at startup.
// There are no flags and no config files (spec.md §6) — every setting comes
// from the environment, following the teacher's env/envInt/envBool/
// envDuration idiom.
type Config struct {
	LibvirtURI    string
	HypervisorBin string
	ViewerBin     string
	TickInterval  time.Duration
	ShutdownWait  time.Duration
	LogLevel      string
	LogJSON       bool
	LogFile       string
	Balloon       balloon.Params
}

func Load() (Config, error) {
	cfg := Config{
		LibvirtURI:    env("AURORA_TUI_LIBVIRT_URI", "qemu:///system"),
		HypervisorBin: env("AURORA_TUI_HYPERVISOR_BIN", "virsh"),
		ViewerBin:     env("AURORA_TUI_VIEWER_BIN", "virt-viewer"),
		TickInterval:  envDuration("AURORA_TUI_TICK_INTERVAL", 2*time.Second),
		ShutdownWait:  envDuration("AURORA_TUI_SHUTDOWN_WAIT", 5*time.Second),
		LogLevel:      strings.ToLower(env("AURORA_TUI_LOG_LEVEL", "info")),
		LogJSON:       envBool("AURORA_TUI_LOG_JSON", false),
		LogFile:       env("AURORA_TUI_LOG_FILE", ""),
		Balloon:       balloon.DefaultParams(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HypervisorBin) == "" {
		return errors.New("AURORA_TUI_HYPERVISOR_BIN is required")
	}
	if c.TickInterval <= 0 {
		return errors.New("AURORA_TUI_TICK_INTERVAL must be > 0")
	}
	if c.ShutdownWait <= 0 {
		return errors.New("AURORA_TUI_SHUTDOWN_WAIT must be > 0")
	}
	return c.Balloon.Validate()
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

