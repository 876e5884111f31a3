// tabdeck-daemon hosts the workspace state for one session: panes, tabs,
// shell sessions and the sidebar listing. Renderer clients subscribe over
// a unix socket and receive pre-rendered frames plus hit regions; input
// flows back as resolved semantic actions.
//
// Run one daemon per session:
//
//	tabdeck-daemon -session work -root ~/src/project
//
// Crash and event logs land in /tmp/tabdeck-daemon-<session>-*.log.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/b/tabdeck/pkg/config"
	"github.com/b/tabdeck/pkg/daemon"
	"github.com/b/tabdeck/pkg/paths"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/termenv"
)

var (
	crashLogger *log.Logger
	eventLogger *log.Logger
	debugMode   bool
)

func initCrashLog(sessionID string) {
	path := fmt.Sprintf("/tmp/tabdeck-daemon-%s-crash.log", sessionID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	crashLogger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
}

func initEventLog(sessionID string) {
	path := fmt.Sprintf("/tmp/tabdeck-daemon-%s-events.log", sessionID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	eventLogger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
}

func logEvent(event, details string) {
	if eventLogger != nil {
		eventLogger.Printf("[%s] %s", event, details)
	}
	if debugMode {
		log.Printf("[%s] %s", event, details)
	}
}

func logCrash(context string, r interface{}) {
	if crashLogger != nil {
		crashLogger.Printf("PANIC in %s: %v\n%s", context, r, debug.Stack())
	}
	logEvent("PANIC", fmt.Sprintf("%s: %v", context, r))
}

func recoverAndLog(context string) {
	if r := recover(); r != nil {
		logCrash(context, r)
	}
}

// profileFor maps the protocol's profile names onto termenv profiles.
func profileFor(name string) termenv.Profile {
	switch name {
	case "TrueColor":
		return termenv.TrueColor
	case "ANSI":
		return termenv.ANSI
	case "Ascii":
		return termenv.Ascii
	}
	return termenv.ANSI256
}

// applyMinProfile degrades rendering to the weakest connected terminal so
// broadcast frames stay legible everywhere.
func applyMinProfile(server *daemon.Server) {
	lipgloss.SetColorProfile(profileFor(server.GetMinColorProfile()))
}

func watchConfig(coordinator *Coordinator, configPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	_ = watcher.Add(configPath)
	go func() {
		defer recoverAndLog("watchConfig")
		for {
			select {
			case event := <-watcher.Events:
				if event.Op&fsnotify.Write == fsnotify.Write {
					cfg, err := config.LoadConfig(configPath)
					if err != nil {
						logEvent("CONFIG_ERROR", err.Error())
						continue
					}
					coordinator.SetConfig(cfg)
					logEvent("CONFIG_RELOADED", configPath)
				}
			case <-watcher.Errors:
				return
			}
		}
	}()
}

func main() {
	sessionFlag := flag.String("session", "default", "session id, discriminates the daemon socket")
	rootFlag := flag.String("root", ".", "workspace root for the sidebar listing and trust gate")
	debugFlag := flag.Bool("debug", false, "mirror the event log to stderr")
	flag.Parse()
	debugMode = *debugFlag

	initCrashLog(*sessionFlag)
	initEventLog(*sessionFlag)
	defer recoverAndLog("main")

	logEvent("STARTUP", fmt.Sprintf("session=%s root=%s pid=%d", *sessionFlag, *rootFlag, os.Getpid()))

	coordinator := NewCoordinator(*sessionFlag, *rootFlag)
	server := daemon.NewServer(*sessionFlag)

	server.OnRenderNeeded = func(clientID string, width, height int) (result *daemon.RenderPayload) {
		defer func() {
			if r := recover(); r != nil {
				logCrash("OnRenderNeeded", r)
				result = nil
			}
		}()
		return coordinator.RenderForClient(clientID, width, height)
	}
	server.OnInput = func(clientID string, input *daemon.InputPayload) {
		defer func() {
			if r := recover(); r != nil {
				logCrash("OnInput", r)
			}
		}()
		coordinator.HandleInput(clientID, *input)
	}
	server.OnResize = func(clientID string, width, height int) {
		logEvent("CLIENT_RESIZE", fmt.Sprintf("%s %dx%d", clientID, width, height))
		applyMinProfile(server)
	}
	server.OnConnect = func(clientID string) {
		logEvent("CLIENT_CONNECT", clientID)
		applyMinProfile(server)
	}
	server.OnDisconnect = func(clientID string) {
		logEvent("CLIENT_DISCONNECT", clientID)
		applyMinProfile(server)
	}

	if err := server.Start(); err != nil {
		logEvent("STARTUP_FAILED", err.Error())
		log.Fatalf("failed to start daemon: %v", err)
	}
	logEvent("READY", server.GetSocketPath())

	watchConfig(coordinator, paths.ConfigPath())

	// SIGUSR1 forces a full broadcast, e.g. after an external tool edits
	// state behind the daemon's back.
	refreshCh := make(chan struct{}, 10)
	usrCh := make(chan os.Signal, 1)
	signal.Notify(usrCh, syscall.SIGUSR1)
	go func() {
		for range usrCh {
			select {
			case refreshCh <- struct{}{}:
			default:
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	stop := make(chan struct{})

	// Broadcast loop: coalesced state changes become full frames or
	// strip-only updates; the spinner ticker drives the saving animation.
	go func() {
		defer recoverAndLog("broadcastLoop")
		spinnerTicker := time.NewTicker(100 * time.Millisecond)
		defer spinnerTicker.Stop()
		for {
			select {
			case <-coordinator.Changed():
				full, strips := coordinator.FlushPending()
				if full {
					server.BroadcastRender()
				} else {
					for _, s := range strips {
						server.BroadcastStrip(s)
					}
				}
			case <-refreshCh:
				logEvent("REFRESH", "SIGUSR1")
				server.BroadcastRender()
			case <-spinnerTicker.C:
				coordinator.TickSpinner()
			case <-stop:
				return
			}
		}
	}()

	// Idle monitor: quit when the socket disappears, when another daemon
	// claims the pidfile, or after 30s with no clients.
	go func() {
		defer recoverAndLog("idleMonitor")
		socketTicker := time.NewTicker(3 * time.Second)
		defer socketTicker.Stop()
		idleTicker := time.NewTicker(10 * time.Second)
		defer idleTicker.Stop()
		lastClient := time.Now()
		for {
			select {
			case <-socketTicker.C:
				if _, err := os.Stat(server.GetSocketPath()); os.IsNotExist(err) {
					logEvent("SOCKET_GONE", "shutting down")
					sigCh <- syscall.SIGTERM
					return
				}
				if data, err := os.ReadFile(daemon.PidPath(*sessionFlag)); err == nil {
					var pid int
					if _, err := fmt.Sscanf(string(data), "%d", &pid); err == nil && pid != os.Getpid() {
						logEvent("PID_REPLACED", fmt.Sprintf("pidfile now owned by %d", pid))
						sigCh <- syscall.SIGTERM
						return
					}
				}
			case <-idleTicker.C:
				if server.ClientCount() > 0 {
					lastClient = time.Now()
				} else if time.Since(lastClient) > 30*time.Second {
					logEvent("IDLE_TIMEOUT", "no clients for 30s")
					sigCh <- syscall.SIGTERM
					return
				}
			case <-stop:
				return
			}
		}
	}()

	sig := <-sigCh
	logEvent("SHUTDOWN", sig.String())
	close(stop)
	coordinator.Shutdown()
	server.Stop()
}
