package config

import (
	"github.com/b/tabdeck/pkg/paths"
)

type Config struct {
	Theme   string  `yaml:"theme"`
	Shell   string  `yaml:"shell"`
	Tabs    Tabs    `yaml:"tabs"`
	Pinned  Pinned  `yaml:"pinned"`
	Labels  Labels  `yaml:"labels"`
	Wheel   Wheel   `yaml:"wheel"`
	Sidebar Sidebar `yaml:"sidebar"`
	Daemon  Daemon  `yaml:"daemon"`
	LLM     LLM     `yaml:"llm"`
}

type Tabs struct {
	MinWidth    int  `yaml:"min_width"`    // Minimum tab width in cells (default: 8)
	MaxWidth    int  `yaml:"max_width"`    // Maximum tab width in cells (default: 24)
	CloseButton bool `yaml:"close_button"` // Show a close glyph on hover targets (default: true)
	Wrap        bool `yaml:"wrap"`         // Allow tabs to wrap onto multiple rows (default: false)
	WrapRows    int  `yaml:"wrap_rows"`    // Row budget when wrapping (default: 2)
}

type Pinned struct {
	Sizing string `yaml:"sizing"` // normal | compact | shrink (default: normal)
}

type Labels struct {
	Verbosity         string `yaml:"verbosity"`          // short | medium | long (default: short)
	ShortenDuplicates bool   `yaml:"shorten_duplicates"` // Dedup descriptions across same-name tabs (default: true)
}

type Wheel struct {
	SwitchTabs bool   `yaml:"switch_tabs"` // Wheel over the strip switches tabs (default: true)
	Modifier   string `yaml:"modifier"`    // none | ctrl: modifier required for wheel switching
	DebounceMS int    `yaml:"debounce_ms"` // Base debounce between wheel switches (default: 120)
	Threshold  int    `yaml:"threshold"`   // Combined delta needed to register a switch (default: 3)
}

type Sidebar struct {
	Visible bool `yaml:"visible"` // Show the file sidebar on start (default: true)
	Width   int  `yaml:"width"`   // Sidebar width in cells (default: 24)
}

type Daemon struct {
	Session string `yaml:"session"` // Socket discriminator for the daemon (default: "default")
}

type LLM struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// Default returns a config with every field at its documented default.
// Load unmarshals user yaml over this so absent keys keep their defaults.
func Default() *Config {
	return &Config{
		Theme: "dark",
		Shell: "",
		Tabs: Tabs{
			MinWidth:    8,
			MaxWidth:    24,
			CloseButton: true,
			Wrap:        false,
			WrapRows:    2,
		},
		Pinned: Pinned{
			Sizing: "normal",
		},
		Labels: Labels{
			Verbosity:         "short",
			ShortenDuplicates: true,
		},
		Wheel: Wheel{
			SwitchTabs: true,
			Modifier:   "none",
			DebounceMS: 120,
			Threshold:  3,
		},
		Sidebar: Sidebar{
			Visible: true,
			Width:   24,
		},
		Daemon: Daemon{
			Session: "default",
		},
		LLM: LLM{},
	}
}

func DefaultConfigPath() string {
	return paths.ConfigPath()
}
