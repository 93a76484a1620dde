package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: EASIERLESS_[SECTION]_[KEY] (e.g., EASIERLESS_DB_ENABLED).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.ProjectRoot, "EASIERLESS_PROJECT_ROOT")
	setEnvString(&cfg.StateDir, "EASIERLESS_STATE_DIR")

	// Less
	setEnvList(&cfg.Less.Files, "EASIERLESS_LESS_FILES")
	setEnvString(&cfg.Less.DefaultExtension, "EASIERLESS_LESS_DEFAULT_EXTENSION")

	// Import / watch
	setEnvDuration(&cfg.Import.UnlockDelay, "EASIERLESS_IMPORT_UNLOCK_DELAY")
	setEnvDuration(&cfg.Watch.Debounce, "EASIERLESS_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.ReloadRate, "EASIERLESS_WATCH_RELOAD_RATE")
	setEnvInt(&cfg.Watch.ReloadBurst, "EASIERLESS_WATCH_RELOAD_BURST")

	// Database
	setEnvBool(&cfg.DB.Enabled, "EASIERLESS_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "EASIERLESS_DB_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "EASIERLESS_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "EASIERLESS_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits a comma separated value.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*target = out
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
