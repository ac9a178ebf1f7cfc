package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DefinitionsPath string // hcl files
	EnvFilesPath    string // yaml environment files, optional

	LogFormat string
	LogLevel  string

	Workers   int
	QueueSize int

	StoreDriver string
	StoreDSN    string

	// WorkspaceRoot holds the files/ and work/ directories of campaigns.
	// Empty disables workspaces.
	WorkspaceRoot string

	HealthcheckPort int

	// Event sinks besides the logger. Empty values disable them.
	TraceFile       string
	SocketIOURL     string
	MQTTBroker      string
	MQTTTopicPrefix string
	// Console prints colored run progress to the output writer.
	Console bool
	NoColor bool

	// Watch reloads definitions and plugins when files change (serve only).
	Watch bool
}

// DefaultConfig returns the defaults, overridden by TESTGRID_* variables
// read through getenv.
func DefaultConfig(getenv func(string) string) Config {
	str := func(key, def string) string {
		if v := getenv("TESTGRID_" + key); v != "" {
			return v
		}
		return def
	}
	num := func(key string, def int) int {
		if n, err := cast.ToIntE(getenv("TESTGRID_" + key)); err == nil && n != 0 {
			return n
		}
		return def
	}
	flag := func(key string) bool {
		return cast.ToBool(getenv("TESTGRID_" + key))
	}

	return Config{
		DefinitionsPath: str("DEFINITIONS", "definitions"),
		EnvFilesPath:    str("ENV_FILES", ""),
		LogFormat:       str("LOG_FORMAT", "text"),
		LogLevel:        str("LOG_LEVEL", "info"),
		Workers:         num("WORKERS", 4),
		QueueSize:       num("QUEUE", 64),
		StoreDriver:     str("STORE", StoreMemory),
		StoreDSN:        str("STORE_DSN", ""),
		WorkspaceRoot:   str("WORKSPACE", ""),
		HealthcheckPort: num("HEALTHCHECK_PORT", 0),
		TraceFile:       str("TRACE_FILE", ""),
		SocketIOURL:     str("SOCKETIO_URL", ""),
		MQTTBroker:      str("MQTT_BROKER", ""),
		MQTTTopicPrefix: str("MQTT_TOPIC_PREFIX", ""),
		NoColor:         flag("NO_COLOR"),
		Watch:           flag("WATCH"),
	}
}

// NewConfig normalizes and validates cfg. Every problem found is reported.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)

	var errs []error
	if cfg.DefinitionsPath == "" {
		errs = append(errs, errors.New("definitions path is required"))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if cfg.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers))
	}
	if cfg.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue size must be at least 1, got %d", cfg.QueueSize))
	}
	switch cfg.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if cfg.StoreDSN == "" {
			errs = append(errs, errors.New("the sqlite store needs a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q: must be '%s' or '%s'", cfg.StoreDriver, StoreMemory, StoreSQLite))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
