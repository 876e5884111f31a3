package theme

// Color keys accepted by ResolveColor. Renderers look colors up by key at
// draw time instead of holding Theme fields, so a theme switch only has to
// swap the Theme value.
const (
	KeyStripBg       = "strip.bg"
	KeyTabActiveBg   = "tab.active_bg"
	KeyTabActiveFg   = "tab.active_fg"
	KeyTabInactiveBg = "tab.inactive_bg"
	KeyTabInactiveFg = "tab.inactive_fg"
	KeyPinFg         = "tab.pin_fg"
	KeyDirtyFg       = "tab.dirty_fg"
	KeySavingFg      = "tab.saving_fg"
	KeyOverflowFg    = "strip.overflow_fg"
	KeyDropBg        = "strip.drop_bg"
	KeyDropFg        = "strip.drop_fg"
	KeySidebarBg     = "sidebar.bg"
	KeySidebarFg     = "sidebar.fg"
	KeySidebarSelFg  = "sidebar.active_fg"
	KeyViewBg        = "view.bg"
	KeyViewFg        = "view.fg"
	KeyBorderFg      = "border.fg"
	KeyPromptFg      = "prompt.fg"
	KeyPromptBg      = "prompt.bg"
)

// ResolveColor looks up a color by key. The second return is false for an
// unknown key. An empty color with ok=true means "terminal default" (the
// transparent built-in theme uses this for every key).
func ResolveColor(t Theme, key string) (string, bool) {
	switch key {
	case KeyStripBg:
		return t.StripBg, true
	case KeyTabActiveBg:
		return t.TabActiveBg, true
	case KeyTabActiveFg:
		return t.TabActiveFg, true
	case KeyTabInactiveBg:
		return t.TabInactiveBg, true
	case KeyTabInactiveFg:
		return t.TabInactiveFg, true
	case KeyPinFg:
		return t.PinFg, true
	case KeyDirtyFg:
		return t.DirtyFg, true
	case KeySavingFg:
		return t.SavingFg, true
	case KeyOverflowFg:
		return t.OverflowFg, true
	case KeyDropBg:
		return t.DropBg, true
	case KeyDropFg:
		return t.DropFg, true
	case KeySidebarBg:
		return t.SidebarBg, true
	case KeySidebarFg:
		return t.SidebarFg, true
	case KeySidebarSelFg:
		return t.SidebarActiveFg, true
	case KeyViewBg:
		return t.ViewBg, true
	case KeyViewFg:
		return t.ViewFg, true
	case KeyBorderFg:
		return t.BorderFg, true
	case KeyPromptFg:
		return t.PromptFg, true
	case KeyPromptBg:
		return t.PromptBg, true
	}
	return "", false
}
