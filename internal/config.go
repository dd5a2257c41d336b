package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/funkpopo/notevault/internal/autosave"
	"github.com/funkpopo/notevault/internal/history"
	"github.com/funkpopo/notevault/internal/memguard"
	"github.com/funkpopo/notevault/internal/snapshot"
	"github.com/funkpopo/notevault/internal/watcher"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// CurrentConfigVersion is the version stamped on config files written for
// this release. Older files are migrated in place; newer ones are rejected.
const CurrentConfigVersion = 2

// Config represents the application configuration.
type Config struct {
	Version  int               `yaml:"version"`
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	History  HistoryConfig     `yaml:"history"`
	Auth     AuthConfig        `yaml:"auth"`
	Autosave AutosaveConfig    `yaml:"autosave"`
	Conflict ConflictConfig    `yaml:"conflict"`
	Watcher  WatcherConfig     `yaml:"watcher"`
	Memory   MemoryConfig      `yaml:"memory"`
}

// Validate migrates the configuration to the current version and then
// validates every section. Unknown keys are ignored by the YAML loader;
// missing keys have been filled with defaults by the time this returns.
func (c *Config) Validate() error {
	if err := c.migrate(); err != nil {
		return err
	}
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Autosave.Validate(); err != nil {
		return err
	}
	if err := c.Conflict.Validate(); err != nil {
		return err
	}
	if err := c.Watcher.Validate(); err != nil {
		return err
	}
	return c.Memory.Validate()
}

// migrate fills sections that older config versions did not carry and
// stamps the file as current. Version 0 files predate the version field;
// version 1 files predate the autosave, conflict, watcher, and memory
// sections.
func (c *Config) migrate() error {
	if c.Version > CurrentConfigVersion {
		return fmt.Errorf("config: version %d is newer than supported %d", c.Version, CurrentConfigVersion)
	}
	def := NewDefaultConfig()
	if c.App.HTTP.Port == 0 {
		c.App.HTTP.Port = def.App.HTTP.Port
	}
	if c.Vault.Path == "" {
		c.Vault.Path = def.Vault.Path
	}
	if c.History.Path == "" {
		c.History.Path = def.History.Path
	}
	if c.History.Keep == 0 {
		c.History.Keep = def.History.Keep
	}
	if c.Autosave.FastThreshold == 0 {
		c.Autosave.FastThreshold = def.Autosave.FastThreshold
	}
	if c.Autosave.PauseDelay == 0 {
		c.Autosave.PauseDelay = def.Autosave.PauseDelay
	}
	if c.Autosave.NormalDelay == 0 {
		c.Autosave.NormalDelay = def.Autosave.NormalDelay
	}
	if c.Autosave.FastDelay == 0 {
		c.Autosave.FastDelay = def.Autosave.FastDelay
	}
	if c.Autosave.MinChangeRunes == 0 {
		c.Autosave.MinChangeRunes = def.Autosave.MinChangeRunes
	}
	if c.Conflict.MTimeTolerance == 0 {
		c.Conflict.MTimeTolerance = def.Conflict.MTimeTolerance
	}
	if c.Conflict.SizeFloor == 0 {
		c.Conflict.SizeFloor = def.Conflict.SizeFloor
	}
	if len(c.Watcher.Ignore) == 0 {
		c.Watcher.Ignore = def.Watcher.Ignore
	}
	if c.Watcher.Stability == 0 {
		c.Watcher.Stability = def.Watcher.Stability
	}
	if c.Memory.Interval == 0 {
		c.Memory.Interval = def.Memory.Interval
	}
	if c.Memory.HighWaterMB == 0 {
		c.Memory.HighWaterMB = def.Memory.HighWaterMB
	}
	if c.Memory.StaleAfter == 0 {
		c.Memory.StaleAfter = def.Memory.StaleAfter
	}
	c.Version = CurrentConfigVersion
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// HistoryConfig holds the version log database settings.
type HistoryConfig struct {
	Path string `yaml:"path"`
	Keep int    `yaml:"keep"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Keep, validation.Required, validation.Min(1), validation.Max(10000)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AutosaveConfig tunes the adaptive save scheduler.
type AutosaveConfig struct {
	FastThreshold  time.Duration `yaml:"fast_threshold"`
	PauseDelay     time.Duration `yaml:"pause_delay"`
	NormalDelay    time.Duration `yaml:"normal_delay"`
	FastDelay      time.Duration `yaml:"fast_delay"`
	MinChangeRunes int           `yaml:"min_change_runes"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FastThreshold, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.PauseDelay, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.NormalDelay, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.FastDelay, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.MinChangeRunes, validation.Required, validation.Min(1)),
	)
}

// SchedulerConfig converts the section into scheduler thresholds.
func (c *AutosaveConfig) SchedulerConfig() autosave.Config {
	return autosave.Config{
		FastThreshold:  c.FastThreshold,
		PauseDelay:     c.PauseDelay,
		NormalDelay:    c.NormalDelay,
		FastDelay:      c.FastDelay,
		MinChangeRunes: c.MinChangeRunes,
	}
}

// ConflictConfig tunes the save conflict detector. The disable/enable
// flags are phrased so the zero value matches the shipped policy.
type ConflictConfig struct {
	DisableMTimeCheck      bool          `yaml:"disable_mtime_check"`
	MTimeTolerance         time.Duration `yaml:"mtime_tolerance"`
	DisableSizeCheck       bool          `yaml:"disable_size_check"`
	SizeFloor              int           `yaml:"size_floor"`
	EnableFingerprintCheck bool          `yaml:"enable_fingerprint_check"`
}

// Validate validates the conflict configuration.
func (c *ConflictConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MTimeTolerance, validation.Required, validation.Min(time.Duration(0))),
		validation.Field(&c.SizeFloor, validation.Min(0)),
	)
}

// CheckConfig converts the section into detector policy.
func (c *ConflictConfig) CheckConfig() snapshot.CheckConfig {
	return snapshot.CheckConfig{
		MTimeCheck:       !c.DisableMTimeCheck,
		MTimeTolerance:   c.MTimeTolerance,
		SizeCheck:        !c.DisableSizeCheck,
		SizeFloor:        c.SizeFloor,
		FingerprintCheck: c.EnableFingerprintCheck,
	}
}

// WatcherConfig tunes the vault directory watcher.
type WatcherConfig struct {
	Ignore    []string      `yaml:"ignore"`
	Stability time.Duration `yaml:"stability"`
}

// Validate validates the watcher configuration.
func (c *WatcherConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Ignore, validation.Each(validation.By(validGlob))),
		validation.Field(&c.Stability, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

func validGlob(value any) error {
	pattern, _ := value.(string)
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid glob pattern %q", pattern)
	}
	return nil
}

// WatchConfig converts the section into a watcher configuration rooted at
// the vault directory.
func (c *WatcherConfig) WatchConfig(root string) watcher.Config {
	return watcher.Config{
		Root:      root,
		Ignore:    c.Ignore,
		Stability: c.Stability,
	}
}

// MemoryConfig tunes the memory monitor.
type MemoryConfig struct {
	Interval    time.Duration `yaml:"interval"`
	HighWaterMB int           `yaml:"high_water_mb"`
	StaleAfter  time.Duration `yaml:"stale_after"`
}

// Validate validates the memory configuration.
func (c *MemoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.HighWaterMB, validation.Required, validation.Min(16)),
		validation.Field(&c.StaleAfter, validation.Required, validation.Min(time.Minute)),
	)
}

// MonitorConfig converts the section into monitor settings.
func (c *MemoryConfig) MonitorConfig() memguard.Config {
	return memguard.Config{
		Interval:    c.Interval,
		HighWaterMB: c.HighWaterMB,
		StaleAfter:  c.StaleAfter,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		History: HistoryConfig{
			Path: "./notevault.db",
			Keep: history.DefaultKeep,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Autosave: AutosaveConfig{
			FastThreshold:  200 * time.Millisecond,
			PauseDelay:     300 * time.Millisecond,
			NormalDelay:    time.Second,
			FastDelay:      2 * time.Second,
			MinChangeRunes: 3,
		},
		Conflict: ConflictConfig{
			MTimeTolerance: 2 * time.Second,
			SizeFloor:      256,
		},
		Watcher: WatcherConfig{
			Ignore:    watcher.DefaultIgnore(),
			Stability: watcher.DefaultStability,
		},
		Memory: MemoryConfig{
			Interval:    30 * time.Second,
			HighWaterMB: 256,
			StaleAfter:  10 * time.Minute,
		},
	}
}
