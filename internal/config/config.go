// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete claudie configuration.
type Config struct {
	// Server connection
	Server ServerConfig `toml:"server" json:"server" envPrefix:"SERVER_"`

	// Chat defaults
	Chat ChatConfig `toml:"chat" json:"chat" envPrefix:"CHAT_"`

	// Authentication
	Auth AuthConfig `toml:"auth" json:"auth" envPrefix:"AUTH_"`

	// Local conversation cache
	Storage StorageConfig `toml:"storage" json:"storage" envPrefix:"STORAGE_"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui" envPrefix:"UI_"`
}

// ServerConfig describes how to reach the workspace API.
type ServerConfig struct {
	// BaseURL is the server root, e.g. http://localhost:8001
	BaseURL string `toml:"base_url" json:"base_url" env:"URL"`

	// TimeoutSecs bounds non-streaming requests and the wait for a stream to open
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" env:"TIMEOUT_SECS"`

	// IdleTimeoutSecs fails a stream that delivers nothing for this long (0 = off)
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs" env:"IDLE_TIMEOUT_SECS"`

	// RequestsPerSecond paces outgoing requests
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second" env:"RPS"`
}

// ChatConfig holds the defaults for new submissions.
type ChatConfig struct {
	DefaultModel    string `toml:"default_model" json:"default_model" env:"MODEL"`
	DefaultTaskType string `toml:"default_task_type" json:"default_task_type" env:"TASK_TYPE"`

	// FallbackText replaces an assistant reply that failed before any content arrived
	FallbackText string `toml:"fallback_text" json:"fallback_text" env:"FALLBACK_TEXT"`
}

// AuthConfig tells the client where its bearer token comes from.
type AuthConfig struct {
	// Token is used as-is when set. Prefer TokenEnv over storing tokens on disk.
	Token string `toml:"token,omitempty" json:"token,omitempty" env:"TOKEN"`

	// TokenEnv names the environment variable holding the token
	TokenEnv string `toml:"token_env" json:"token_env" env:"TOKEN_ENV"`

	// Email is remembered after a successful login
	Email string `toml:"email,omitempty" json:"email,omitempty" env:"EMAIL"`
}

// StorageConfig controls the local conversation cache.
type StorageConfig struct {
	// Dir overrides ~/.claudie/conversations
	Dir string `toml:"dir,omitempty" json:"dir,omitempty" env:"DIR"`

	// MaxConversations limits cached conversations (0 = unlimited)
	MaxConversations int `toml:"max_conversations" json:"max_conversations" env:"MAX_CONVERSATIONS"`

	// Disabled turns the cache off
	Disabled bool `toml:"disabled" json:"disabled" env:"DISABLED"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	Theme          string `toml:"theme" json:"theme" env:"THEME"` // "dark", "light", "auto"
	Markdown       bool   `toml:"markdown" json:"markdown" env:"MARKDOWN"`
	ShowTimestamps bool   `toml:"show_timestamps" json:"show_timestamps" env:"SHOW_TIMESTAMPS"`
	ShowOutputPane bool   `toml:"show_output_pane" json:"show_output_pane" env:"SHOW_OUTPUT_PANE"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:           "http://localhost:8001",
			TimeoutSecs:       30,
			IdleTimeoutSecs:   120,
			RequestsPerSecond: 5,
		},
		Chat: ChatConfig{
			DefaultModel:    model.DefaultModel,
			DefaultTaskType: string(model.TaskGeneral),
			FallbackText:    "Sorry, there was an error processing your message. Please try again.",
		},
		Auth: AuthConfig{
			TokenEnv: "CLAUDIE_TOKEN",
		},
		Storage: StorageConfig{
			MaxConversations: 200,
		},
		UI: UIConfig{
			Theme:          "auto",
			Markdown:       true,
			ShowTimestamps: true,
			ShowOutputPane: true,
		},
	}
}

// Timeout returns the request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// IdleTimeout returns the stream idle timeout, zero when disabled.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeoutSecs) * time.Second
}

// TaskType returns the default task type.
func (c *Config) TaskType() model.TaskType {
	t, err := model.ParseTaskType(c.Chat.DefaultTaskType)
	if err != nil {
		return model.TaskGeneral
	}
	return t
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the claudie configuration directory. CLAUDIE_HOME
// overrides ~/.claudie.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CLAUDIE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".claudie"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the file the TUI writes its log to.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "claudie.log"), nil
}

// StorageDir returns the conversation cache directory.
func (c *Config) StorageDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conversations"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600, since it may
// hold a bearer token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.claudie. TOML is tried first, then JSON,
// then built-in defaults. Variables from .env files and the environment
// (CLAUDIE_*) are applied last.
func Load() (*Config, error) {
	loadDotEnv()

	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(tomlPath); statErr == nil {
		return LoadFromPath(tomlPath)
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	return finish(Default())
}

// LoadFromPath loads configuration from a specific file with environment
// overrides, defaults and validation applied.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads ./.env and ~/.claudie/.env when present. Variables that
// are already set are not overridden.
func loadDotEnv() {
	paths := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", p, err)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# claudie configuration file\n")
	sb.WriteString("# Generated by claudie - edit with care\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var validThemes = []string{"dark", "light", "auto"}

// Validate checks the configuration and returns ValidateErrors listing
// every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Server
	if c.Server.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "server.base_url", Message: "must not be empty"})
	} else if u, err := url.Parse(c.Server.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{Field: "server.base_url", Message: "must be an http or https URL with a host"})
	}
	if c.Server.TimeoutSecs < 1 || c.Server.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{Field: "server.timeout_secs", Message: "must be between 1 and 600"})
	}
	if c.Server.IdleTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "server.idle_timeout_secs", Message: "must not be negative"})
	}
	if c.Server.RequestsPerSecond <= 0 {
		errs = append(errs, ValidationError{Field: "server.requests_per_second", Message: "must be positive"})
	}

	// Chat
	if strings.TrimSpace(c.Chat.DefaultModel) == "" {
		errs = append(errs, ValidationError{Field: "chat.default_model", Message: "must not be empty"})
	}
	if _, err := model.ParseTaskType(c.Chat.DefaultTaskType); err != nil {
		errs = append(errs, ValidationError{Field: "chat.default_task_type", Message: err.Error()})
	}

	// Storage
	if c.Storage.MaxConversations < 0 {
		errs = append(errs, ValidationError{Field: "storage.max_conversations", Message: "must not be negative"})
	}

	// UI
	if !slices.Contains(validThemes, c.UI.Theme) {
		errs = append(errs, ValidationError{Field: "ui.theme", Message: "must be one of " + strings.Join(validThemes, ", ")})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty values that have no sensible zero.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.RequestsPerSecond == 0 {
		c.Server.RequestsPerSecond = defaults.Server.RequestsPerSecond
	}
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = defaults.Chat.DefaultModel
	}
	if c.Chat.DefaultTaskType == "" {
		c.Chat.DefaultTaskType = defaults.Chat.DefaultTaskType
	}
	if c.Chat.FallbackText == "" {
		c.Chat.FallbackText = defaults.Chat.FallbackText
	}
	if c.Auth.TokenEnv == "" {
		c.Auth.TokenEnv = defaults.Auth.TokenEnv
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLAUDIE_"

// ApplyEnvOverrides applies CLAUDIE_* environment variables to the config.
// Unset variables leave the current value alone.
//
// Supported environment variables:
//   - CLAUDIE_SERVER_URL, CLAUDIE_SERVER_TIMEOUT_SECS,
//     CLAUDIE_SERVER_IDLE_TIMEOUT_SECS, CLAUDIE_SERVER_RPS
//   - CLAUDIE_CHAT_MODEL, CLAUDIE_CHAT_TASK_TYPE, CLAUDIE_CHAT_FALLBACK_TEXT
//   - CLAUDIE_AUTH_TOKEN, CLAUDIE_AUTH_TOKEN_ENV, CLAUDIE_AUTH_EMAIL
//   - CLAUDIE_STORAGE_DIR, CLAUDIE_STORAGE_MAX_CONVERSATIONS, CLAUDIE_STORAGE_DISABLED
//   - CLAUDIE_UI_THEME, CLAUDIE_UI_MARKDOWN, CLAUDIE_UI_SHOW_TIMESTAMPS,
//     CLAUDIE_UI_SHOW_OUTPUT_PANE
func (c *Config) ApplyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "chat.default_model").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}

		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := range t.NumField() {
		section := t.Field(i)
		prefix := tomlName(section)
		for j := range section.Type.NumField() {
			keys = append(keys, prefix+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as JSON with the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Auth.Token != "" {
		safe.Auth.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
