package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ListConfig controls the thread list view.
type ListConfig struct {
	PageSize    int64 `json:"page_size"`
	Overscan    int   `json:"overscan"`
	CompactRows bool  `json:"compact_rows"`
}

// PrefetchConfig controls hover prefetching of thread content.
type PrefetchConfig struct {
	Enabled      bool   `json:"enabled"`
	HoverDelayMs int    `json:"hover_delay_ms"`
	CacheEntries int    `json:"cache_entries"`
	CachePath    string `json:"cache_path"`
}

// KeyBindings maps list commands to keys.
type KeyBindings struct {
	SelectAll  string `json:"select_all"`
	MarkRead   string `json:"mark_read"`
	MarkUnread string `json:"mark_unread"`
	Quit       string `json:"quit"`
}

// Config holds all configuration for mailgrid.
type Config struct {
	Credentials string `json:"credentials"`
	Token       string `json:"token"`

	List     ListConfig     `json:"list"`
	Prefetch PrefetchConfig `json:"prefetch"`
	Keys     KeyBindings    `json:"keys"`

	// Theme is a YAML theme file path, relative to the config dir or absolute.
	Theme string `json:"theme,omitempty"`

	LogFile string `json:"log_file,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		List: ListConfig{
			PageSize: 50,
			Overscan: 4,
		},
		Prefetch: PrefetchConfig{
			Enabled:      true,
			HoverDelayMs: 1000,
			CacheEntries: 200,
		},
		Keys: KeyBindings{
			SelectAll:  "a",
			MarkRead:   "r",
			MarkUnread: "u",
			Quit:       "q",
		},
	}
}

// LoadConfig reads a JSON config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the config as indented JSON.
func SaveConfig(cfg *Config, path string) error {
	path, err := ExpandHome(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate normalizes out-of-range values back to defaults.
func (c *Config) Validate() error {
	if c.List.PageSize <= 0 || c.List.PageSize > 500 {
		c.List.PageSize = 50
	}
	if c.List.Overscan < 0 {
		c.List.Overscan = 4
	}
	if c.Prefetch.HoverDelayMs <= 0 {
		c.Prefetch.HoverDelayMs = 1000
	}
	if c.Prefetch.CacheEntries <= 0 {
		c.Prefetch.CacheEntries = 200
	}
	return nil
}

// HoverDelay returns the prefetch hover delay as a duration.
func (c *Config) HoverDelay() time.Duration {
	return time.Duration(c.Prefetch.HoverDelayMs) * time.Millisecond
}

// DefaultConfigDir returns ~/.config/mailgrid.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailgrid")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// DefaultCachePath returns the default prefetch cache database location.
func DefaultCachePath() string {
	return filepath.Join(DefaultConfigDir(), "cache.db")
}

// ExpandHome expands a leading ~ to the user home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
