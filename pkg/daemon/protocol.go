// Package daemon carries the unix-socket protocol between the headless
// workspace host and its renderer clients. Messages are JSON lines; frames
// are pre-rendered so renderers stay dumb terminals with hit testing.
package daemon

import "fmt"

// MessageType identifies the type of message
type MessageType string

const (
	MsgSubscribe   MessageType = "subscribe"
	MsgUnsubscribe MessageType = "unsubscribe"
	MsgRender      MessageType = "render"       // Daemon -> Renderer: full frame
	MsgStripUpdate MessageType = "strip_update" // Daemon -> Renderer: strip rows only
	MsgInput       MessageType = "input"
	MsgResize      MessageType = "resize"
	MsgPing        MessageType = "ping"
	MsgPong        MessageType = "pong"
)

// Message is the base structure for daemon<->renderer communication
type Message struct {
	Type     MessageType `json:"type"`
	ClientID string      `json:"client_id,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
}

// Region defines a clickable area in the rendered frame. Renderers resolve
// pointer events against these, first match wins, and report the semantic
// action back.
type Region struct {
	StartLine int    `json:"start"`     // First line of the region (0-indexed)
	EndLine   int    `json:"end"`       // Last line (inclusive)
	StartCol  int    `json:"start_col"` // First column
	EndCol    int    `json:"end_col"`   // Last column (inclusive)
	Action    string `json:"action"`    // "activate_tab", "close_tab", "new_tab", "strip_row", "focus_pane", "sidebar_open"
	Target    string `json:"target"`    // "<pane>:<index>" for tab actions, pane id, or path
}

// RenderPayload is one pre-rendered frame for a renderer
type RenderPayload struct {
	SequenceNum uint64   `json:"seq"`     // Monotonic sequence for race detection
	Content     string   `json:"content"` // Full frame, newline-joined rows
	Width       int      `json:"width"`   // Rendered for this width
	Height      int      `json:"height"`  // Rendered for this height
	Regions     []Region `json:"regions"` // Hit-test regions for this frame
}

// StripUpdatePayload replaces just the strip rows of the previous frame,
// cheaper than a full render when only tab state changed.
type StripUpdatePayload struct {
	SequenceNum uint64   `json:"seq"`
	Pane        string   `json:"pane"`
	Line        int      `json:"line"` // Screen row where the strip starts
	Content     string   `json:"content"`
	Regions     []Region `json:"regions"` // Regions for the replaced rows, absolute lines
}

// InputPayload carries input events from a renderer
type InputPayload struct {
	SequenceNum uint64 `json:"seq"`               // Render frame this input references
	Type        string `json:"type"`              // "mouse" or "key"
	MouseX      int    `json:"mouse_x,omitempty"` // Screen cell coordinates
	MouseY      int    `json:"mouse_y,omitempty"`
	Button      string `json:"button,omitempty"` // "left", "middle", "wheelup", "wheeldown"
	Action      string `json:"action,omitempty"` // "press", "motion", "release"
	Key         string `json:"key,omitempty"`    // Key string for keyboard events
	Ctrl        bool   `json:"ctrl,omitempty"`   // Modifier state at the event
	Alt         bool   `json:"alt,omitempty"`
	// Semantic action resolved by the renderer from the frame's regions.
	ResolvedAction string `json:"resolved_action,omitempty"`
	ResolvedTarget string `json:"resolved_target,omitempty"`
}

// ResizePayload carries terminal dimensions and capabilities
type ResizePayload struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ColorProfile string `json:"color_profile,omitempty"` // "Ascii", "ANSI", "ANSI256", "TrueColor"
}

// SocketPath returns the daemon socket path for a session
func SocketPath(sessionID string) string {
	if sessionID == "" {
		sessionID = "default"
	}
	return fmt.Sprintf("/tmp/tabdeck-daemon-%s.sock", sessionID)
}

// PidPath returns the pidfile path for a session
func PidPath(sessionID string) string {
	if sessionID == "" {
		sessionID = "default"
	}
	return fmt.Sprintf("/tmp/tabdeck-daemon-%s.pid", sessionID)
}
