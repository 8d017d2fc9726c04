package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ENV_LOG_LEVEL     = "LOG_LEVEL"
	ENV_SETTINGS_FILE = "BULK_SETTINGS_FILE"

	// defaults
	LOG_LEVEL_INFO = "info"
	SETTINGS_FILE  = "appsettings.yaml"
)

var (
	settingsOnce sync.Once
	settings     map[string]string
	settingsErr  error
)

func GetEnv(env, fallback string) string {
	if value, ok := os.LookupEnv(env); ok {
		return value
	}
	if value, ok := loadSettings()[env]; ok {
		return value
	}
	return fallback
}

// loadSettings reads the optional settings file once. Keys match the env var names.
func loadSettings() map[string]string {
	settingsOnce.Do(func() {
		path := SETTINGS_FILE
		if value, ok := os.LookupEnv(ENV_SETTINGS_FILE); ok {
			path = value
		}
		settings, settingsErr = LoadSettings(path)
	})
	return settings
}

// SettingsError reports why the settings file could not be used. A missing file is not an error.
func SettingsError() error {
	loadSettings()
	return settingsErr
}

// LoadSettings reads an optional settings file: a missing file yields no settings, any other
// failure is returned.
func LoadSettings(path string) (map[string]string, error) {
	values, err := ReadSettings(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return map[string]string{}, fmt.Errorf("settings file %s: %w", path, err)
	}
	return values, nil
}

// ReadSettings parses a flat YAML document of KEY: value pairs.
func ReadSettings(path string) (map[string]string, error) {
	var raw []byte
	var err error
	if raw, err = os.ReadFile(path); err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err = yaml.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch typed := v.(type) {
		case nil:
			continue
		case string:
			out[strings.ToUpper(k)] = typed
		case bool:
			out[strings.ToUpper(k)] = strconv.FormatBool(typed)
		case int:
			out[strings.ToUpper(k)] = strconv.Itoa(typed)
		case float64:
			out[strings.ToUpper(k)] = strconv.FormatFloat(typed, 'f', -1, 64)
		default:
			continue
		}
	}
	return out, nil
}

// EnvConf is embedded by package level Conf types.
type EnvConf struct {
	lookup func(env, fallback string) string
	err    func() error
}

func NewEnvConf() EnvConf {
	return EnvConf{lookup: GetEnv, err: SettingsError}
}

// NewEnvConfFromSettings resolves env vars first, then the given settings file.
func NewEnvConfFromSettings(path string) EnvConf {
	values, err := LoadSettings(path)
	return EnvConf{
		lookup: func(env, fallback string) string {
			if value, ok := os.LookupEnv(env); ok {
				return value
			}
			if value, ok := values[env]; ok {
				return value
			}
			return fallback
		},
		err: func() error { return err },
	}
}

// NewEnvConfFrom resolves values from a fixed map before falling back, used by tests.
func NewEnvConfFrom(values map[string]string) EnvConf {
	return EnvConf{lookup: func(env, fallback string) string {
		if value, ok := values[env]; ok {
			return value
		}
		return fallback
	}}
}

// Err is the settings file error, if any. Values fall back to defaults while it is set.
func (c EnvConf) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err()
}

func (c EnvConf) GetEnv(env, fallback string) string {
	if c.lookup == nil {
		return GetEnv(env, fallback)
	}
	return c.lookup(env, fallback)
}

func (c EnvConf) GetInt(env string, fallback int) int {
	var value int
	var err error
	if value, err = strconv.Atoi(c.GetEnv(env, strconv.Itoa(fallback))); err != nil {
		return fallback
	}
	return value
}

func (c EnvConf) GetInt64(env string, fallback int64) int64 {
	var value int64
	var err error
	if value, err = strconv.ParseInt(c.GetEnv(env, strconv.FormatInt(fallback, 10)), 10, 64); err != nil {
		return fallback
	}
	return value
}

func (c EnvConf) GetBool(env string, fallback bool) bool {
	var value bool
	var err error
	if value, err = strconv.ParseBool(c.GetEnv(env, strconv.FormatBool(fallback))); err != nil {
		return fallback
	}
	return value
}

// ParseBool is GetBool for settings that must not silently fall back: an unset value yields
// fallback, an unparsable one an error.
func (c EnvConf) ParseBool(env string, fallback bool) (bool, error) {
	raw := c.GetEnv(env, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid boolean %q", env, raw)
	}
	return value, nil
}

func (c EnvConf) GetDuration(env string, fallback time.Duration) time.Duration {
	var value time.Duration
	var err error
	if value, err = time.ParseDuration(c.GetEnv(env, fallback.String())); err != nil {
		return fallback
	}
	return value
}
