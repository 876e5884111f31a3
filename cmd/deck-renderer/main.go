// deck-renderer is a thin terminal client for tabdeck-daemon. It never
// lays anything out itself: the daemon sends pre-rendered frames plus hit
// regions, the renderer paints them and reports input back with the
// region resolution already attached.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/b/tabdeck/pkg/daemon"
)

var (
	sessionID = flag.String("session", "default", "daemon session to attach to")
	clientID  = flag.String("id", "", "client id, defaults to deck-<pid>")
	debug     = flag.Bool("debug", false, "enable debug logging to /tmp")
)

var debugLog *log.Logger

// daemonClient owns the socket. It sits behind a pointer so the bubbletea
// model can be copied freely without copying the send mutex.
type daemonClient struct {
	conn net.Conn
	id   string
	mu   sync.Mutex
}

func (c *daemonClient) send(msg daemon.Message) {
	if c == nil || c.conn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	c.conn.Write(append(data, '\n'))
}

// receiveLoop reads daemon messages and forwards them into the program.
func (c *daemonClient) receiveLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg daemon.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		switch msg.Type {
		case daemon.MsgRender:
			payloadBytes, _ := json.Marshal(msg.Payload)
			var payload daemon.RenderPayload
			if json.Unmarshal(payloadBytes, &payload) == nil && globalProgram != nil {
				globalProgram.Send(renderMsg{payload: &payload})
			}
		case daemon.MsgStripUpdate:
			payloadBytes, _ := json.Marshal(msg.Payload)
			var payload daemon.StripUpdatePayload
			if json.Unmarshal(payloadBytes, &payload) == nil && globalProgram != nil {
				globalProgram.Send(stripMsg{payload: &payload})
			}
		case daemon.MsgPong:
			// keep-alive response
		}
	}

	if globalProgram != nil {
		globalProgram.Send(disconnectedMsg{})
	}
}

type rendererModel struct {
	client    *daemonClient
	connected bool
	width     int
	height    int

	content     string
	regions     []daemon.Region
	sequenceNum uint64
}

type connectedMsg struct {
	client *daemonClient
}

type disconnectedMsg struct{}

type renderMsg struct {
	payload *daemon.RenderPayload
}

type stripMsg struct {
	payload *daemon.StripUpdatePayload
}

type tickMsg time.Time

func (m rendererModel) Init() tea.Cmd {
	return tea.Batch(connectCmd(), tickCmd())
}

func connectCmd() tea.Cmd {
	return func() tea.Msg {
		sockPath := daemon.SocketPath(*sessionID)

		var conn net.Conn
		var err error
		for i := 0; i < 10; i++ {
			conn, err = net.Dial("unix", sockPath)
			if err == nil {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if err != nil {
			debugLog.Printf("failed to connect to daemon: %v", err)
			return disconnectedMsg{}
		}

		id := *clientID
		if id == "" {
			id = fmt.Sprintf("deck-%d", os.Getpid())
		}
		return connectedMsg{client: &daemonClient{conn: conn, id: id}}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func colorProfileName() string {
	switch termenv.ColorProfile() {
	case termenv.TrueColor:
		return "TrueColor"
	case termenv.ANSI:
		return "ANSI"
	case termenv.Ascii:
		return "Ascii"
	}
	return "ANSI256"
}

func (m rendererModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		m.client = msg.client
		m.connected = true
		debugLog.Printf("connected as %s", m.client.id)

		go m.client.receiveLoop()

		m.client.send(daemon.Message{
			Type:     daemon.MsgSubscribe,
			ClientID: m.client.id,
			Payload: daemon.ResizePayload{
				Width:        m.width,
				Height:       m.height,
				ColorProfile: colorProfileName(),
			},
		})
		return m, nil

	case disconnectedMsg:
		m.connected = false
		debugLog.Printf("disconnected from daemon")
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg {
			return connectCmd()()
		})

	case renderMsg:
		m.content = msg.payload.Content
		m.regions = msg.payload.Regions
		m.sequenceNum = msg.payload.SequenceNum
		return m, nil

	case stripMsg:
		m.spliceStrip(msg.payload)
		m.sequenceNum = msg.payload.SequenceNum
		return m, nil

	case tickMsg:
		if m.connected {
			m.client.send(daemon.Message{Type: daemon.MsgPing, ClientID: m.client.id})
		}
		return m, tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.connected {
				m.client.send(daemon.Message{Type: daemon.MsgUnsubscribe, ClientID: m.client.id})
			}
			return m, tea.Quit
		case "left", "right", "home", "end":
			m.sendInput(daemon.InputPayload{Type: "key", Key: msg.String()})
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.connected {
			m.client.send(daemon.Message{
				Type:     daemon.MsgResize,
				ClientID: m.client.id,
				Payload: daemon.ResizePayload{
					Width:        m.width,
					Height:       m.height,
					ColorProfile: colorProfileName(),
				},
			})
		}
		return m, nil
	}

	return m, nil
}

// spliceStrip replaces just the strip rows of the current frame and swaps
// the hit regions covering those lines.
func (m *rendererModel) spliceStrip(p *daemon.StripUpdatePayload) {
	if m.content == "" {
		return
	}
	lines := strings.Split(m.content, "\n")
	rows := strings.Split(p.Content, "\n")
	for i, row := range rows {
		if p.Line+i >= 0 && p.Line+i < len(lines) {
			lines[p.Line+i] = row
		}
	}
	m.content = strings.Join(lines, "\n")

	lastLine := p.Line + len(rows) - 1
	kept := m.regions[:0]
	for _, r := range m.regions {
		if r.EndLine < p.Line || r.StartLine > lastLine {
			kept = append(kept, r)
		}
	}
	m.regions = append(kept, p.Regions...)
}

// resolveRegion finds the first region under the pointer. Ordering comes
// from the daemon, so nested regions resolve to the innermost action.
func (m rendererModel) resolveRegion(x, y int) (string, string) {
	for _, r := range m.regions {
		if y >= r.StartLine && y <= r.EndLine && x >= r.StartCol && x <= r.EndCol {
			return r.Action, r.Target
		}
	}
	return "", ""
}

func (m rendererModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.connected {
		return m, nil
	}

	var button string
	switch msg.Button {
	case tea.MouseButtonLeft:
		button = "left"
	case tea.MouseButtonMiddle:
		button = "middle"
	case tea.MouseButtonRight:
		button = "right"
	case tea.MouseButtonWheelUp:
		button = "wheelup"
	case tea.MouseButtonWheelDown:
		button = "wheeldown"
	}

	var action string
	switch msg.Action {
	case tea.MouseActionPress:
		action = "press"
	case tea.MouseActionMotion:
		action = "motion"
	case tea.MouseActionRelease:
		action = "release"
	}
	if action == "" {
		return m, nil
	}

	resolvedAction, resolvedTarget := m.resolveRegion(msg.X, msg.Y)
	m.sendInput(daemon.InputPayload{
		Type:           "mouse",
		MouseX:         msg.X,
		MouseY:         msg.Y,
		Button:         button,
		Action:         action,
		Ctrl:           msg.Ctrl,
		Alt:            msg.Alt,
		ResolvedAction: resolvedAction,
		ResolvedTarget: resolvedTarget,
	})
	return m, nil
}

func (m rendererModel) sendInput(input daemon.InputPayload) {
	input.SequenceNum = m.sequenceNum
	m.client.send(daemon.Message{
		Type:     daemon.MsgInput,
		ClientID: m.client.id,
		Payload:  input,
	})
}

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

func (m rendererModel) View() string {
	if !m.connected {
		frame := spinnerFrames[int(time.Now().UnixMilli()/100)%len(spinnerFrames)]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		return style.Render(fmt.Sprintf(" %s connecting to tabdeck-daemon...", frame))
	}

	lines := strings.Split(m.content, "\n")
	if len(lines) > m.height {
		lines = lines[:m.height]
	}
	for len(lines) < m.height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// Global program reference so receiveLoop can push messages.
var globalProgram *tea.Program

func main() {
	flag.Parse()

	if *debug {
		logPath := fmt.Sprintf("/tmp/deck-renderer-%d.log", os.Getpid())
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			debugLog = log.New(os.Stderr, "[renderer] ", log.LstdFlags|log.Lmicroseconds)
		} else {
			debugLog = log.New(logFile, "[renderer] ", log.LstdFlags|log.Lmicroseconds)
		}
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}

	width, height := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && h > 0 {
		width, height = w, h
	}

	model := rendererModel{width: width, height: height}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	globalProgram = p

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
