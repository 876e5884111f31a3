package theme

// Theme represents a complete color theme for the tab strip and its chrome
type Theme struct {
	Name        string
	Description string
	Dark        bool // Is this a dark theme?

	// Strip
	StripBg       string
	TabActiveBg   string
	TabActiveFg   string
	TabInactiveBg string
	TabInactiveFg string
	PinFg         string
	DirtyFg       string
	SavingFg      string
	OverflowFg    string
	DropBg        string
	DropFg        string

	// Sidebar
	SidebarBg       string
	SidebarFg       string
	SidebarActiveFg string

	// Document view
	ViewBg   string
	ViewFg   string
	BorderFg string

	// Prompt
	PromptFg string
	PromptBg string
}

// Built-in themes
var Themes = map[string]Theme{
	"rose-pine": {
		Name:        "Rose Pine",
		Description: "Elegant dark theme with muted colors",
		Dark:        true,

		StripBg:       "#191724",
		TabActiveBg:   "#26233a",
		TabActiveFg:   "#e0def4",
		TabInactiveBg: "#1f1d2e",
		TabInactiveFg: "#6e6a86",
		PinFg:         "#908caa",
		DirtyFg:       "#ebbcba",
		SavingFg:      "#f6c177",
		OverflowFg:    "#908caa",
		DropBg:        "#31748f",
		DropFg:        "#e0def4",

		SidebarBg:       "#191724",
		SidebarFg:       "#6e6a86",
		SidebarActiveFg: "#e0def4",

		ViewBg:   "#191724",
		ViewFg:   "#e0def4",
		BorderFg: "#403d52",

		PromptFg: "#e0def4",
		PromptBg: "#26233a",
	},

	"rose-pine-dawn": {
		Name:        "Rose Pine Dawn",
		Description: "Soft light theme with warm colors",
		Dark:        false,

		StripBg:       "#faf4ed",
		TabActiveBg:   "#f2e9e1",
		TabActiveFg:   "#575279",
		TabInactiveBg: "#fffaf3",
		TabInactiveFg: "#9893a5",
		PinFg:         "#797593",
		DirtyFg:       "#d7827e",
		SavingFg:      "#ea9d34",
		OverflowFg:    "#797593",
		DropBg:        "#286983",
		DropFg:        "#faf4ed",

		SidebarBg:       "#faf4ed",
		SidebarFg:       "#9893a5",
		SidebarActiveFg: "#575279",

		ViewBg:   "#faf4ed",
		ViewFg:   "#575279",
		BorderFg: "#dfdad9",

		PromptFg: "#575279",
		PromptBg: "#f2e9e1",
	},

	"catppuccin-mocha": {
		Name:        "Catppuccin Mocha",
		Description: "Soothing dark theme",
		Dark:        true,

		StripBg:       "#1e1e2e",
		TabActiveBg:   "#313244",
		TabActiveFg:   "#cdd6f4",
		TabInactiveBg: "#181825",
		TabInactiveFg: "#6c7086",
		PinFg:         "#9399b2",
		DirtyFg:       "#f38ba8",
		SavingFg:      "#f9e2af",
		OverflowFg:    "#9399b2",
		DropBg:        "#89b4fa",
		DropFg:        "#1e1e2e",

		SidebarBg:       "#1e1e2e",
		SidebarFg:       "#6c7086",
		SidebarActiveFg: "#cdd6f4",

		ViewBg:   "#1e1e2e",
		ViewFg:   "#cdd6f4",
		BorderFg: "#45475a",

		PromptFg: "#cdd6f4",
		PromptBg: "#313244",
	},

	"nord": {
		Name:        "Nord",
		Description: "Arctic, north-bluish color palette",
		Dark:        true,

		StripBg:       "#2e3440",
		TabActiveBg:   "#3b4252",
		TabActiveFg:   "#eceff4",
		TabInactiveBg: "#2e3440",
		TabInactiveFg: "#4c566a",
		PinFg:         "#d8dee9",
		DirtyFg:       "#bf616a",
		SavingFg:      "#ebcb8b",
		OverflowFg:    "#d8dee9",
		DropBg:        "#88c0d0",
		DropFg:        "#2e3440",

		SidebarBg:       "#2e3440",
		SidebarFg:       "#4c566a",
		SidebarActiveFg: "#eceff4",

		ViewBg:   "#2e3440",
		ViewFg:   "#eceff4",
		BorderFg: "#4c566a",

		PromptFg: "#eceff4",
		PromptBg: "#3b4252",
	},

	"solarized-light": {
		Name:        "Solarized Light",
		Description: "Light variant of Solarized",
		Dark:        false,

		StripBg:       "#fdf6e3",
		TabActiveBg:   "#eee8d5",
		TabActiveFg:   "#586e75",
		TabInactiveBg: "#fdf6e3",
		TabInactiveFg: "#93a1a1",
		PinFg:         "#839496",
		DirtyFg:       "#cb4b16",
		SavingFg:      "#b58900",
		OverflowFg:    "#839496",
		DropBg:        "#268bd2",
		DropFg:        "#fdf6e3",

		SidebarBg:       "#fdf6e3",
		SidebarFg:       "#93a1a1",
		SidebarActiveFg: "#586e75",

		ViewBg:   "#fdf6e3",
		ViewFg:   "#586e75",
		BorderFg: "#eee8d5",

		PromptFg: "#586e75",
		PromptBg: "#eee8d5",
	},

	"tokyo-night": {
		Name:        "Tokyo Night",
		Description: "A dark theme inspired by Tokyo at night",
		Dark:        true,

		StripBg:       "#1a1b26",
		TabActiveBg:   "#24283b",
		TabActiveFg:   "#c0caf5",
		TabInactiveBg: "#1a1b26",
		TabInactiveFg: "#565f89",
		PinFg:         "#9aa5ce",
		DirtyFg:       "#f7768e",
		SavingFg:      "#e0af68",
		OverflowFg:    "#9aa5ce",
		DropBg:        "#7aa2f7",
		DropFg:        "#1a1b26",

		SidebarBg:       "#1a1b26",
		SidebarFg:       "#565f89",
		SidebarActiveFg: "#c0caf5",

		ViewBg:   "#1a1b26",
		ViewFg:   "#c0caf5",
		BorderFg: "#414868",

		PromptFg: "#c0caf5",
		PromptBg: "#24283b",
	},

	// Default theme that respects terminal colors (transparent)
	"default": {
		Name:        "Default",
		Description: "Uses terminal default colors (transparent)",
		Dark:        true, // Assumption, mostly for contrast calculation

		StripBg:       "",
		TabActiveBg:   "",
		TabActiveFg:   "",
		TabInactiveBg: "",
		TabInactiveFg: "",
		PinFg:         "",
		DirtyFg:       "",
		SavingFg:      "",
		OverflowFg:    "",
		DropBg:        "",
		DropFg:        "",

		SidebarBg:       "",
		SidebarFg:       "",
		SidebarActiveFg: "",

		ViewBg:   "",
		ViewFg:   "",
		BorderFg: "",

		PromptFg: "",
		PromptBg: "",
	},

	// Default dark theme (backward compatible)
	"dark": {
		Name:        "Dark",
		Description: "Default dark theme",
		Dark:        true,

		StripBg:       "#1a1a2e",
		TabActiveBg:   "#3498db",
		TabActiveFg:   "#ffffff",
		TabInactiveBg: "#333333",
		TabInactiveFg: "#cccccc",
		PinFg:         "#e8e8e8",
		DirtyFg:       "#f39c12",
		SavingFg:      "#26c6da",
		OverflowFg:    "#888888",
		DropBg:        "#2980b9",
		DropFg:        "#ffffff",

		SidebarBg:       "#1a1a2e",
		SidebarFg:       "#888888",
		SidebarActiveFg: "#ffffff",

		ViewBg:   "#1e1e1e",
		ViewFg:   "#cccccc",
		BorderFg: "#444444",

		PromptFg: "#000000",
		PromptBg: "#f0f0f0",
	},
}

// GetTheme returns a theme by name, or the default dark theme if not found
func GetTheme(name string) Theme {
	if theme, ok := Themes[name]; ok {
		return theme
	}
	return Themes["dark"]
}

// ListThemes returns all available theme names
func ListThemes() []string {
	names := make([]string, 0, len(Themes))
	for name := range Themes {
		names = append(names, name)
	}
	return names
}
