package main

import (
	gocontext "context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/b/tabdeck/pkg/config"
	"github.com/b/tabdeck/pkg/paths"
	"github.com/b/tabdeck/pkg/workspace"
	"github.com/teilomillet/gollm"
	"github.com/teilomillet/gollm/llm"
)

// namer generates short pane nicknames from the names of the open tabs.
// Results persist in the state dir keyed by the tab set, so a restart
// does not re-bill the same panes. A nil client disables the whole
// feature; every entry point checks it.
type namer struct {
	client llm.LLM
	onName func(workspace.PaneID, string)

	mu       sync.Mutex
	names    map[string]string
	inflight map[string]bool
	path     string
}

// newNamer builds the namer from the llm config block. Missing provider
// or key just disables generation, the daemon runs fine without it.
func newNamer(cfg config.LLM, onName func(workspace.PaneID, string)) *namer {
	n := &namer{
		onName:   onName,
		names:    make(map[string]string),
		inflight: make(map[string]bool),
		path:     paths.StatePath("pane-names.json"),
	}
	n.load()

	provider := cfg.Provider
	if provider == "" {
		return n
	}
	model := cfg.Model
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-3-haiku-20240307"
		case "openai":
			model = "gpt-3.5-turbo"
		case "ollama":
			model = "llama3"
		}
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		switch provider {
		case "anthropic":
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			apiKey = os.Getenv("OPENAI_API_KEY")
		case "ollama":
			apiKey = "ollama"
		}
	}
	if apiKey == "" && provider != "ollama" {
		logEvent("LLM_DISABLED", "no API key for provider "+provider)
		return n
	}

	// GoLLM reads credentials from the environment.
	switch provider {
	case "anthropic":
		os.Setenv("ANTHROPIC_API_KEY", apiKey)
	case "openai":
		os.Setenv("OPENAI_API_KEY", apiKey)
	}

	client, err := gollm.NewLLM(
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(60),
		gollm.SetTemperature(0.4),
	)
	if err != nil {
		logEvent("LLM_ERROR", err.Error())
		return n
	}
	n.client = client
	return n
}

func (n *namer) enabled() bool { return n != nil && n.client != nil }

// Request asks for a nickname for the pane's current tab set. Cached and
// generated names both arrive through onName on a separate goroutine, so
// callers may hold coordinator state locks.
func (n *namer) Request(id workspace.PaneID, items []string) {
	if !n.enabled() {
		return
	}
	if len(items) == 0 {
		go n.onName(id, "")
		return
	}
	key := strings.Join(items, "\x1f")

	n.mu.Lock()
	if name, ok := n.names[key]; ok {
		n.mu.Unlock()
		go n.onName(id, name)
		return
	}
	if n.inflight[key] {
		n.mu.Unlock()
		return
	}
	n.inflight[key] = true
	n.mu.Unlock()

	go n.generate(id, key, items)
}

func (n *namer) generate(id workspace.PaneID, key string, items []string) {
	defer func() {
		n.mu.Lock()
		delete(n.inflight, key)
		n.mu.Unlock()
	}()

	prompt := fmt.Sprintf(`These tabs are open in one editor pane: %s.

Suggest a nickname for the pane, at most two lowercase words, that captures
what the user is working on. Output ONLY the nickname, no quotes, no
explanation.`, strings.Join(items, ", "))

	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), 15*time.Second)
	defer cancel()

	resp, err := n.client.Generate(ctx, gollm.NewPrompt(prompt))
	if err != nil {
		logEvent("LLM_ERROR", err.Error())
		return
	}

	name := cleanNickname(resp)
	if name == "" {
		return
	}

	n.mu.Lock()
	n.names[key] = name
	n.mu.Unlock()
	n.save()

	n.onName(id, name)
}

// cleanNickname reduces a model response to something strip-sized.
func cleanNickname(resp string) string {
	line := resp
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.Trim(strings.TrimSpace(line), "\"'`")
	line = strings.ToLower(line)

	words := strings.Fields(line)
	if len(words) > 2 {
		words = words[:2]
	}
	name := strings.Join(words, " ")
	runes := []rune(name)
	if len(runes) > 24 {
		name = string(runes[:24])
	}
	return name
}

func (n *namer) load() {
	data, err := os.ReadFile(n.path)
	if err != nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := json.Unmarshal(data, &n.names); err != nil {
		n.names = make(map[string]string)
	}
}

func (n *namer) save() {
	n.mu.Lock()
	data, err := json.MarshalIndent(n.names, "", "  ")
	n.mu.Unlock()
	if err != nil {
		return
	}
	if _, err := paths.EnsureStateDir(); err != nil {
		return
	}
	os.WriteFile(n.path, data, 0644)
}
