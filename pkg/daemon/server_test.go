package daemon

import (
	"bufio"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSocketPaths(t *testing.T) {
	if got := SocketPath("work"); got != "/tmp/tabdeck-daemon-work.sock" {
		t.Errorf("SocketPath = %q", got)
	}
	if got := SocketPath(""); got != "/tmp/tabdeck-daemon-default.sock" {
		t.Errorf("SocketPath(\"\") = %q", got)
	}
	if got := PidPath("work"); got != "/tmp/tabdeck-daemon-work.pid" {
		t.Errorf("PidPath = %q", got)
	}
}

// testClient drives one renderer connection by hand.
type testClient struct {
	t    *testing.T
	conn net.Conn
	scan *bufio.Scanner
}

func dialServer(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("unix", srv.GetSocketPath())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	scan := bufio.NewScanner(conn)
	scan.Buffer(make([]byte, 64*1024), 1024*1024)
	return &testClient{t: t, conn: conn, scan: scan}
}

func (c *testClient) send(msg Message) {
	c.t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testClient) expect(want MessageType) Message {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if !c.scan.Scan() {
		c.t.Fatalf("connection closed waiting for %s: %v", want, c.scan.Err())
	}
	var msg Message
	if err := json.Unmarshal(c.scan.Bytes(), &msg); err != nil {
		c.t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != want {
		c.t.Fatalf("got message %s, want %s", msg.Type, want)
	}
	return msg
}

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer("test-" + uuid.NewString()[:8])
	srv.OnRenderNeeded = func(clientID string, width, height int) *RenderPayload {
		return &RenderPayload{
			Content: "frame",
			Width:   width,
			Height:  height,
			Regions: []Region{{StartLine: 0, EndLine: 0, StartCol: 0, EndCol: width - 1, Action: "activate_tab", Target: "p1:0"}},
		}
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestServer_SubscribeRenderInput(t *testing.T) {
	srv := startServer(t)
	inputs := make(chan *InputPayload, 1)
	srv.OnInput = func(_ string, in *InputPayload) { inputs <- in }

	c := dialServer(t, srv)
	c.send(Message{Type: MsgSubscribe, ClientID: "deck-1", Payload: ResizePayload{Width: 100, Height: 30, ColorProfile: "TrueColor"}})

	msg := c.expect(MsgRender)
	render, ok := decodePayload[RenderPayload](msg.Payload)
	if !ok {
		t.Fatal("render payload did not decode")
	}
	if render.Content != "frame" || render.Width != 100 || render.Height != 30 {
		t.Errorf("render = %q %dx%d, want frame 100x30", render.Content, render.Width, render.Height)
	}
	if render.SequenceNum == 0 {
		t.Error("frames must carry a sequence number")
	}
	if len(render.Regions) != 1 || render.Regions[0].Action != "activate_tab" {
		t.Errorf("regions = %+v", render.Regions)
	}

	c.send(Message{Type: MsgInput, Payload: InputPayload{Type: "mouse", MouseX: 4, MouseY: 0, Button: "left", Action: "press", ResolvedAction: "activate_tab", ResolvedTarget: "p1:0"}})
	select {
	case in := <-inputs:
		if in.ResolvedAction != "activate_tab" || in.ResolvedTarget != "p1:0" {
			t.Errorf("input = %+v", in)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("input never reached the callback")
	}

	c.send(Message{Type: MsgPing})
	c.expect(MsgPong)
}

func TestServer_ResizeRerenders(t *testing.T) {
	srv := startServer(t)
	c := dialServer(t, srv)
	c.send(Message{Type: MsgSubscribe, ClientID: "deck-1", Payload: ResizePayload{Width: 80, Height: 24}})
	first, _ := decodePayload[RenderPayload](c.expect(MsgRender).Payload)

	c.send(Message{Type: MsgResize, Payload: ResizePayload{Width: 120, Height: 40}})
	second, _ := decodePayload[RenderPayload](c.expect(MsgRender).Payload)

	if second.Width != 120 || second.Height != 40 {
		t.Errorf("re-render = %dx%d, want 120x40", second.Width, second.Height)
	}
	if second.SequenceNum <= first.SequenceNum {
		t.Errorf("sequence did not advance: %d then %d", first.SequenceNum, second.SequenceNum)
	}
}

func TestServer_BroadcastStrip(t *testing.T) {
	srv := startServer(t)
	c := dialServer(t, srv)
	c.send(Message{Type: MsgSubscribe, ClientID: "deck-1", Payload: ResizePayload{Width: 80, Height: 24}})
	c.expect(MsgRender)

	srv.BroadcastStrip(StripUpdatePayload{Pane: "p1", Line: 2, Content: "tabs row"})

	msg := c.expect(MsgStripUpdate)
	strip, ok := decodePayload[StripUpdatePayload](msg.Payload)
	if !ok {
		t.Fatal("strip payload did not decode")
	}
	if strip.Pane != "p1" || strip.Line != 2 || strip.Content != "tabs row" {
		t.Errorf("strip = %+v", strip)
	}
	if strip.SequenceNum == 0 {
		t.Error("strip updates must carry a sequence number")
	}
}

func TestServer_ConnectDisconnectCallbacks(t *testing.T) {
	srv := startServer(t)
	events := make(chan string, 2)
	srv.OnConnect = func(id string) { events <- "connect:" + id }
	srv.OnDisconnect = func(id string) { events <- "disconnect:" + id }

	c := dialServer(t, srv)
	c.send(Message{Type: MsgSubscribe, ClientID: "deck-9", Payload: ResizePayload{Width: 80, Height: 24}})
	c.expect(MsgRender)

	select {
	case ev := <-events:
		if ev != "connect:deck-9" {
			t.Fatalf("event = %q", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no connect callback")
	}

	c.conn.Close()
	select {
	case ev := <-events:
		if ev != "disconnect:deck-9" {
			t.Fatalf("event = %q", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect callback")
	}

	if srv.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after disconnect", srv.ClientCount())
	}
}

func TestServer_RefusesSecondInstance(t *testing.T) {
	session := "test-" + uuid.NewString()[:8]
	srv := NewServer(session)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)

	dup := NewServer(session)
	err := dup.Start()
	if err == nil {
		dup.Stop()
		t.Fatal("second daemon on the same session should refuse to start")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("err = %v", err)
	}
}

func TestServer_MinColorProfile(t *testing.T) {
	srv := startServer(t)
	if got := srv.GetMinColorProfile(); got != "ANSI256" {
		t.Errorf("no clients: profile = %q, want ANSI256", got)
	}

	a := dialServer(t, srv)
	a.send(Message{Type: MsgSubscribe, ClientID: "a", Payload: ResizePayload{Width: 80, Height: 24, ColorProfile: "TrueColor"}})
	a.expect(MsgRender)
	b := dialServer(t, srv)
	b.send(Message{Type: MsgSubscribe, ClientID: "b", Payload: ResizePayload{Width: 80, Height: 24, ColorProfile: "ANSI"}})
	b.expect(MsgRender)

	if got := srv.GetMinColorProfile(); got != "ANSI" {
		t.Errorf("profile = %q, want the weakest client's ANSI", got)
	}
}
