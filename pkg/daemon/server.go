package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ClientInfo tracks per-client state for renderers
type ClientInfo struct {
	Conn         net.Conn
	Width        int
	Height       int
	ColorProfile string // "Ascii", "ANSI", "ANSI256", "TrueColor"
}

// Server manages connected renderers over the session's unix socket.
type Server struct {
	socketPath string
	pidPath    string
	listener   net.Listener
	clients    map[string]*ClientInfo
	clientsMu  sync.RWMutex
	done       chan struct{}

	sequenceNum uint64
	seqMu       sync.Mutex

	// OnRenderNeeded produces the frame for a client at its dimensions.
	// Returning nil skips the send.
	OnRenderNeeded func(clientID string, width, height int) *RenderPayload

	// OnInput handles input events forwarded by a renderer.
	OnInput func(clientID string, input *InputPayload)

	// OnResize fires after a client's dimensions changed, before the
	// re-render that follows.
	OnResize func(clientID string, width, height int)

	// OnConnect and OnDisconnect track renderer lifecycle.
	OnConnect    func(clientID string)
	OnDisconnect func(clientID string)
}

// NewServer creates a daemon server for the given session discriminator.
func NewServer(sessionID string) *Server {
	return &Server{
		socketPath:  SocketPath(sessionID),
		pidPath:     PidPath(sessionID),
		clients:     make(map[string]*ClientInfo),
		done:        make(chan struct{}),
		sequenceNum: 1,
	}
}

// Start claims the session pidfile and begins accepting connections.
func (s *Server) Start() error {
	if err := s.checkAndClaimPid(); err != nil {
		return err
	}

	// Safe now that we own the pidfile.
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		os.Remove(s.pidPath)
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	go s.acceptLoop()

	return nil
}

// checkAndClaimPid refuses to start while another live daemon holds the
// session, then writes our pid.
func (s *Server) checkAndClaimPid() error {
	if data, err := os.ReadFile(s.pidPath); err == nil {
		pidStr := strings.TrimSpace(string(data))
		if pid, err := strconv.Atoi(pidStr); err == nil && pid > 0 {
			if process, err := os.FindProcess(pid); err == nil {
				// FindProcess always succeeds on Unix; signal 0 probes
				// whether the process is actually alive.
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("daemon already running with pid %d", pid)
				}
			}
		}
		// Stale pidfile from a dead daemon.
		os.Remove(s.pidPath)
	}

	if err := os.WriteFile(s.pidPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write pidfile: %w", err)
	}
	return nil
}

// Stop shuts down the server and removes socket and pidfile.
func (s *Server) Stop() {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.clientsMu.Lock()
	for id, client := range s.clients {
		client.Conn.Close()
		delete(s.clients, id)
	}
	s.clientsMu.Unlock()
	os.Remove(s.socketPath)
	os.Remove(s.pidPath)
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// GetSocketPath returns the socket path
func (s *Server) GetSocketPath() string {
	return s.socketPath
}

func (s *Server) acceptLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		go s.handleClient(conn)
	}
}

// handleClient processes one renderer connection until it unsubscribes or
// drops.
func (s *Server) handleClient(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	// Frames can be large; grow the line buffer well past the default.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var clientID string

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		switch msg.Type {
		case MsgSubscribe:
			clientID = msg.ClientID
			width, height := 80, 24
			colorProfile := "ANSI256"
			if resize, ok := decodePayload[ResizePayload](msg.Payload); ok {
				if resize.Width > 0 {
					width = resize.Width
				}
				if resize.Height > 0 {
					height = resize.Height
				}
				if resize.ColorProfile != "" {
					colorProfile = resize.ColorProfile
				}
			}
			s.clientsMu.Lock()
			s.clients[clientID] = &ClientInfo{
				Conn:         conn,
				Width:        width,
				Height:       height,
				ColorProfile: colorProfile,
			}
			s.clientsMu.Unlock()
			if s.OnConnect != nil {
				s.OnConnect(clientID)
			}
			s.sendRenderToClient(clientID)

		case MsgUnsubscribe:
			s.dropClient(clientID)
			return

		case MsgResize:
			if resize, ok := decodePayload[ResizePayload](msg.Payload); ok {
				s.clientsMu.Lock()
				if client, ok := s.clients[clientID]; ok {
					client.Width = resize.Width
					client.Height = resize.Height
				}
				s.clientsMu.Unlock()
				if s.OnResize != nil {
					s.OnResize(clientID, resize.Width, resize.Height)
				}
				s.sendRenderToClient(clientID)
			}

		case MsgInput:
			if input, ok := decodePayload[InputPayload](msg.Payload); ok {
				if s.OnInput != nil {
					s.OnInput(clientID, &input)
				}
			}

		case MsgPing:
			s.sendMessage(conn, Message{Type: MsgPong})
		}
	}

	s.dropClient(clientID)
}

func (s *Server) dropClient(clientID string) {
	if clientID == "" {
		return
	}
	s.clientsMu.Lock()
	_, known := s.clients[clientID]
	delete(s.clients, clientID)
	s.clientsMu.Unlock()
	if known && s.OnDisconnect != nil {
		s.OnDisconnect(clientID)
	}
}

// decodePayload re-marshals the generic payload field into a concrete
// payload type.
func decodePayload[T any](payload interface{}) (T, bool) {
	var out T
	if payload == nil {
		return out, false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// BroadcastRender sends a fresh full frame to every connected renderer.
func (s *Server) BroadcastRender() {
	for _, id := range s.clientIDs() {
		s.sendRenderToClient(id)
	}
}

// BroadcastStrip sends a strip-only update to every connected renderer.
// The payload's sequence number is stamped per send.
func (s *Server) BroadcastStrip(strip StripUpdatePayload) {
	for _, id := range s.clientIDs() {
		s.clientsMu.RLock()
		client, ok := s.clients[id]
		s.clientsMu.RUnlock()
		if !ok {
			continue
		}
		strip.SequenceNum = s.nextSeq()
		s.sendMessage(client.Conn, Message{Type: MsgStripUpdate, ClientID: id, Payload: strip})
	}
}

func (s *Server) clientIDs() []string {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) nextSeq() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := s.sequenceNum
	s.sequenceNum++
	return seq
}

// sendRenderToClient generates and sends a frame to one client.
func (s *Server) sendRenderToClient(clientID string) {
	s.clientsMu.RLock()
	client, ok := s.clients[clientID]
	if !ok {
		s.clientsMu.RUnlock()
		return
	}
	conn := client.Conn
	width := client.Width
	height := client.Height
	s.clientsMu.RUnlock()

	if s.OnRenderNeeded == nil {
		return
	}

	render := s.OnRenderNeeded(clientID, width, height)
	if render == nil {
		return
	}
	render.SequenceNum = s.nextSeq()

	s.sendMessage(conn, Message{
		Type:     MsgRender,
		ClientID: clientID,
		Payload:  render,
	})
}

// colorProfileOrder is the capability order, lowest first.
var colorProfileOrder = map[string]int{
	"Ascii":     0,
	"ANSI":      1,
	"ANSI256":   2,
	"TrueColor": 3,
}

// GetMinColorProfile returns the weakest color profile among connected
// clients, so broadcast frames degrade to what every terminal can show.
func (s *Server) GetMinColorProfile() string {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	if len(s.clients) == 0 {
		return "ANSI256"
	}

	minProfile := "TrueColor"
	minOrder := colorProfileOrder[minProfile]

	for _, client := range s.clients {
		profile := client.ColorProfile
		if profile == "" {
			profile = "ANSI256"
		}
		order, ok := colorProfileOrder[profile]
		if !ok {
			order = 2
		}
		if order < minOrder {
			minOrder = order
			minProfile = profile
		}
	}

	return minProfile
}

func (s *Server) sendMessage(conn net.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err = conn.Write(append(data, '\n'))
	return err
}
