/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"gospeech/internal/lang"
	"gospeech/internal/speech"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type CatalogConfig struct {
	Root        string `yaml:"root"`
	PostgresDSN string `yaml:"postgres_dsn"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	// The Postgres password is not stored on disk; it lives in the OS keychain.
}

type TelemetryConfig struct {
	OptIn    bool   `yaml:"opt_in"`
	Endpoint string `yaml:"endpoint"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Speech        speech.Settings `yaml:"speech"`
	Languages     []lang.Entry    `yaml:"languages"`
	EventTokens   []string        `yaml:"event_tokens"`
	Catalog       CatalogConfig   `yaml:"catalog"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Speech:        speech.DefaultSettings(),
		Languages:     []lang.Entry{{Code: "en"}},
		Catalog:       CatalogConfig{Root: ".", TimeoutMs: 15000},
		Telemetry:     TelemetryConfig{OptIn: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvCatalogRoot       = "GSP_CATALOG_ROOT"
	EnvPostgresDSN       = "GSP_PG_DSN"
	EnvTelemetryOptIn    = "GSP_TELEMETRY_OPT_IN"
	EnvScrollSpeed       = "GSP_TEXT_SCROLL_SPEED"
	EnvScreenTimeFactor  = "GSP_SCREEN_TIME_FACTOR"
	EnvScrollSubtitles   = "GSP_SCROLL_SUBTITLES"
	EnvAllowSkipping     = "GSP_ALLOW_SPEECH_SKIPPING"
	EnvSkipThresholdTime = "GSP_SKIP_THRESHOLD_TIME"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GSP_LOG_LEVEL"
	EnvLogFormat = "GSP_LOG_FORMAT"
	EnvLogSource = "GSP_LOG_SOURCE"
	EnvLogFile   = "GSP_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService    = "GoSpeech"
	keyringPGPassword = "catalog_pg_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SetTokenStore swaps the secret store and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	old := tokenStore
	tokenStore = ts
	return old
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoSpeech")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoSpeech")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "gospeech")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also loads the Postgres password from the keyring (returned separately, never kept in the struct).
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path. A missing file is not an error.
func LoadFile(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// unmarshal over defaults so omitted keys keep their default value
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	pw, _ := tokenStore.Get(keyringService, keyringPGPassword)
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the Postgres password into the OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg, password)
}

// SaveFile is Save for an explicit path.
func SaveFile(path string, cfg AppConfig, password string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := tokenStore.Set(keyringService, keyringPGPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// ForgetPassword removes the stored Postgres password.
func ForgetPassword() error {
	err := tokenStore.Delete(keyringService, keyringPGPassword)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// speech: numbers must stay sane, booleans are copied so user preferences persist
	s := src.Speech
	if s.ScreenTimeFactor < 0 {
		s.ScreenTimeFactor = dst.Speech.ScreenTimeFactor
	}
	if s.TextScrollSpeed <= 0 {
		s.TextScrollSpeed = dst.Speech.TextScrollSpeed
	}
	if s.SkipThresholdTime < 0 {
		s.SkipThresholdTime = 0
	}
	if s.MinimumDisplayTime < 0 {
		s.MinimumDisplayTime = 0
	}
	dst.Speech = s
	if len(src.Languages) > 0 {
		dst.Languages = src.Languages
	}
	dst.EventTokens = nil
	for _, k := range src.EventTokens {
		if k = strings.TrimSpace(k); k != "" {
			dst.EventTokens = append(dst.EventTokens, k)
		}
	}
	if strings.TrimSpace(src.Catalog.Root) != "" {
		dst.Catalog.Root = strings.TrimSpace(src.Catalog.Root)
	}
	dst.Catalog.PostgresDSN = strings.TrimSpace(src.Catalog.PostgresDSN)
	if src.Catalog.TimeoutMs > 0 {
		dst.Catalog.TimeoutMs = src.Catalog.TimeoutMs
	}
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if strings.TrimSpace(src.Telemetry.Endpoint) != "" {
		dst.Telemetry.Endpoint = strings.TrimSpace(src.Telemetry.Endpoint)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func envFloat(name string, dst *float64) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			*dst = f
		}
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvCatalogRoot)); v != "" {
		cfg.Catalog.Root = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Catalog.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.Telemetry.OptIn = envBool(v)
	}
	envFloat(EnvScrollSpeed, &cfg.Speech.TextScrollSpeed)
	envFloat(EnvScreenTimeFactor, &cfg.Speech.ScreenTimeFactor)
	envFloat(EnvSkipThresholdTime, &cfg.Speech.SkipThresholdTime)
	if v := strings.TrimSpace(os.Getenv(EnvScrollSubtitles)); v != "" {
		cfg.Speech.ScrollSubtitles = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvAllowSkipping)); v != "" {
		cfg.Speech.AllowSpeechSkipping = envBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"catalog.root":                 EnvCatalogRoot,
	"catalog.postgres_dsn":         EnvPostgresDSN,
	"telemetry.opt_in":             EnvTelemetryOptIn,
	"speech.text_scroll_speed":     EnvScrollSpeed,
	"speech.screen_time_factor":    EnvScreenTimeFactor,
	"speech.skip_threshold_time":   EnvSkipThresholdTime,
	"speech.scroll_subtitles":      EnvScrollSubtitles,
	"speech.allow_speech_skipping": EnvAllowSkipping,
	"logging.level":                EnvLogLevel,
	"logging.format":               EnvLogFormat,
	"logging.source":               EnvLogSource,
	"logging.file":                 EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// SpeechSettings returns the engine settings.
func (c AppConfig) SpeechSettings() speech.Settings { return c.Speech }

// LanguageSet returns the configured runtime languages.
func (c AppConfig) LanguageSet() *lang.Set { return lang.New(c.Languages) }

// EffectiveTimeout returns the catalog timeout as a duration-like milliseconds string.
func (c CatalogConfig) EffectiveTimeout() string {
	if c.TimeoutMs <= 0 {
		return fmt.Sprintf("%dms", Defaults().Catalog.TimeoutMs)
	}
	return fmt.Sprintf("%dms", c.TimeoutMs)
}
