package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"markestedt/winchord/chord"
)

const appName = "winchord"

type Config struct {
	LogLevel  string         `toml:"log_level"`
	Watch     bool           `toml:"watch"`
	Listener  ListenerConfig `toml:"listener"`
	Slots     SlotsConfig    `toml:"slots"`
	Web       WebConfig      `toml:"web"`
	Feedback  FeedbackConfig `toml:"feedback"`
	Shortcuts []Shortcut     `toml:"shortcuts"`
}

type ListenerConfig struct {
	ActivePollMs   int `toml:"active_poll_ms"`
	IdlePollMs     int `toml:"idle_poll_ms"`
	IdleResetPolls int `toml:"idle_reset_polls"`
	PointerPollMs  int `toml:"pointer_poll_ms"`
}

type SlotsConfig struct {
	Count              int `toml:"count"`
	OpenTimeoutSeconds int `toml:"open_timeout_seconds"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type FeedbackConfig struct {
	Sound         bool `toml:"sound"`
	Notifications bool `toml:"notifications"`
}

// Shortcut binds a chord label to a "+"-delimited key list
type Shortcut struct {
	Label string `toml:"label"`
	Keys  string `toml:"keys"`
}

// ActivePoll is the poll timeout while keys are arriving
func (l ListenerConfig) ActivePoll() time.Duration {
	return time.Duration(l.ActivePollMs) * time.Millisecond
}

// IdlePoll is the poll timeout after the idle reset
func (l ListenerConfig) IdlePoll() time.Duration {
	return time.Duration(l.IdlePollMs) * time.Millisecond
}

// PointerPoll is how often pointer moves are published
func (l ListenerConfig) PointerPoll() time.Duration {
	return time.Duration(l.PointerPollMs) * time.Millisecond
}

// OpenTimeout bounds the wait for a launched program's window
func (s SlotsConfig) OpenTimeout() time.Duration {
	return time.Duration(s.OpenTimeoutSeconds) * time.Second
}

// Definitions returns the shortcuts in the form the chord parser takes
func (c *Config) Definitions() []chord.Definition {
	defs := make([]chord.Definition, len(c.Shortcuts))
	for i, s := range c.Shortcuts {
		defs[i] = chord.Definition{Label: s.Label, Keys: s.Keys}
	}
	return defs
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Watch:    false,
		Listener: ListenerConfig{
			ActivePollMs:   150,
			IdlePollMs:     250,
			IdleResetPolls: 3,
			PointerPollMs:  1000,
		},
		Slots: SlotsConfig{
			Count:              5,
			OpenTimeoutSeconds: 10,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8765,
		},
		Feedback: FeedbackConfig{
			Sound:         true,
			Notifications: true,
		},
		Shortcuts: DefaultShortcuts(5),
	}
}

// DefaultShortcuts returns the stock chord set for slots 1..count on the
// running platform
func DefaultShortcuts(count int) []Shortcut {
	return DefaultShortcutsFor(runtime.GOOS, count)
}

// DefaultShortcutsFor returns the stock chord set for goos. Windows names the
// =/+ key by its virtual-key symbol "+", other platforms by its unshifted "=".
func DefaultShortcutsFor(goos string, count int) []Shortcut {
	equals := "="
	if goos == "windows" {
		equals = "plus"
	}

	shortcuts := []Shortcut{
		{Label: "toggle always on top", Keys: "ctrl+shift+a"},
		{Label: "configure window", Keys: "ctrl+shift+'"},
		{Label: "cache windows data", Keys: "ctrl+shift+0"},
	}

	for i := 1; i <= count; i++ {
		prefix := fmt.Sprintf("ctrl+shift+%d", i)
		shortcuts = append(shortcuts,
			Shortcut{Label: fmt.Sprintf("ctrl window %d", i), Keys: prefix},
			Shortcut{Label: fmt.Sprintf("open window %d", i), Keys: prefix + "+enter"},
			Shortcut{Label: fmt.Sprintf("close window %d", i), Keys: prefix + "+backspace"},
			Shortcut{Label: fmt.Sprintf("close all windows %d", i), Keys: prefix + "+delete"},
			Shortcut{Label: fmt.Sprintf("maximize window %d", i), Keys: prefix + "+" + equals},
			Shortcut{Label: fmt.Sprintf("minimize window %d", i), Keys: prefix + "+-"},
		)
	}

	return append(shortcuts,
		Shortcut{Label: "open last active window", Keys: "ctrl+shift+" + equals},
		Shortcut{Label: "close active window", Keys: "ctrl+shift+-"},
		Shortcut{Label: "maximize active window", Keys: "ctrl+shift+up"},
		Shortcut{Label: "minimize active window", Keys: "ctrl+shift+down"},
		Shortcut{Label: "exit program", Keys: "ctrl+shift+q"},
	)
}

// Dir returns the per-user configuration directory, creating it if needed
func Dir() (string, error) {
	base := os.Getenv("APPDATA")
	if base == "" {
		var err error
		base, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate config directory: %w", err)
		}
	}

	configDir := filepath.Join(base, appName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default location
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from path.
// If the file doesn't exist, it creates it with default values
func LoadFrom(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := defaultConfig()
		if err := Save(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return cfg, nil
}

// Save writes the configuration to the TOML file
func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Validate checks ranges and that every shortcut parses
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	if c.Listener.ActivePollMs <= 0 || c.Listener.IdlePollMs <= 0 {
		return fmt.Errorf("listener poll intervals must be positive")
	}
	if c.Listener.IdleResetPolls <= 0 {
		return fmt.Errorf("listener.idle_reset_polls must be positive")
	}
	if c.Listener.PointerPollMs <= 0 {
		return fmt.Errorf("listener.pointer_poll_ms must be positive")
	}

	// slots are chosen with a single number key
	if c.Slots.Count < 1 || c.Slots.Count > 9 {
		return fmt.Errorf("slots.count must be between 1 and 9, got %d", c.Slots.Count)
	}
	if c.Slots.OpenTimeoutSeconds <= 0 {
		return fmt.Errorf("slots.open_timeout_seconds must be positive")
	}

	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}

	if _, err := chord.ParseTable(c.Definitions()); err != nil {
		return fmt.Errorf("invalid shortcuts: %w", err)
	}

	return nil
}
