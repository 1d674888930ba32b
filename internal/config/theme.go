package config

import (
	"fmt"
	"os"

	"github.com/derailed/tcell/v2"
	"gopkg.in/yaml.v3"
)

// ThemeColors names the colors the list view styles with. Values are any
// form tcell understands (names or #rrggbb).
type ThemeColors struct {
	Unread       string `yaml:"unread"`
	Read         string `yaml:"read"`
	Selected     string `yaml:"selected"`
	BulkSelected string `yaml:"bulk_selected"`
	Success      string `yaml:"success"`
	Error        string `yaml:"error"`
	Warning      string `yaml:"warning"`
	Info         string `yaml:"info"`
}

// Theme is a named color scheme loaded from a YAML file.
type Theme struct {
	Name   string      `yaml:"name"`
	Colors ThemeColors `yaml:"colors"`
}

// DefaultTheme returns the built-in scheme.
func DefaultTheme() *Theme {
	return &Theme{
		Name: "default",
		Colors: ThemeColors{
			Unread:       "white",
			Read:         "gray",
			Selected:     "aqua",
			BulkSelected: "yellow",
			Success:      "green",
			Error:        "red",
			Warning:      "orange",
			Info:         "blue",
		},
	}
}

// LoadTheme reads a YAML theme file; missing fields keep their defaults.
func LoadTheme(path string) (*Theme, error) {
	theme := DefaultTheme()
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read theme: %w", err)
	}
	if err := yaml.Unmarshal(data, theme); err != nil {
		return nil, fmt.Errorf("could not parse theme: %w", err)
	}
	return theme, nil
}

// Color parses a theme color value to a tcell color.
func Color(value string) tcell.Color {
	if value == "" {
		return tcell.ColorDefault
	}
	return tcell.GetColor(value)
}
