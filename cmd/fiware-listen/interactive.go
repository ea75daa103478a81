package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/fabianspitzer/fiwarenet-go/pkg/contract"
	"github.com/fabianspitzer/fiwarenet-go/pkg/encoding"
	"github.com/fabianspitzer/fiwarenet-go/pkg/subscription"
	"github.com/fabianspitzer/fiwarenet-go/pkg/transport"
)

// Shell is the interactive command loop. Notification events arrive on
// listener goroutines and are printed through the readline writer so
// they do not mangle the prompt.
type Shell struct {
	listener transport.Listener
	registry *subscription.Registry
	rl       *readline.Instance

	mu   sync.Mutex
	subs map[string]string // id -> mode label shown by "subs"
}

// NewShell creates the shell around a configured listener and registry.
func NewShell(listener transport.Listener, registry *subscription.Registry) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fiware> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("creating readline: %w", err)
	}
	return &Shell{
		listener: listener,
		registry: registry,
		rl:       rl,
		subs:     make(map[string]string),
	}, nil
}

// Run reads commands until quit or EOF.
func (s *Shell) Run() {
	defer s.rl.Close()
	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "status":
			s.cmdStatus()

		case "subs":
			s.cmdSubs()

		case "sub":
			s.cmdSub(args)

		case "unsub":
			s.cmdUnsub(args)

		case "encode":
			s.cmdCodec(args, true)

		case "decode":
			s.cmdCodec(args, false)

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
Commands:
  status              - Listener state and subscription count
  subs                - List registered subscriptions
  sub <id> [diff]     - Register a subscription (full delivery unless "diff")
  unsub <id>          - Remove a subscription
  encode field|value <text> - Apply the percent encoder
  decode field|value <text> - Reverse it (lenient)
  quit                - Exit`)
}

// handleNotification feeds a complete notification body to the registry.
// Runs on a listener goroutine.
func (s *Shell) handleNotification(body []byte) {
	if err := s.registry.Dispatch(body); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "! dispatch: %v\n", err)
	}
}

// handleFault reports a fatal listener fault.
func (s *Shell) handleFault(err error) {
	fmt.Fprintf(s.rl.Stdout(), "! listener fault: %v\n", err)
}

// register adds a dynamic-entity subscription that prints every event.
func (s *Shell) register(id string, diff bool) error {
	mode := subscription.DeliverFull
	label := "full"
	if diff {
		mode = subscription.DeliverDiff
		label = "diff"
	}

	err := s.registry.Register(subscription.Config{
		ID:       id,
		Target:   contract.DynamicEntity{},
		Mode:     mode,
		Callback: func(ev subscription.Event) { s.printEvent(id, ev) },
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.subs[id] = label
	s.mu.Unlock()
	return nil
}

func (s *Shell) printEvent(subID string, ev subscription.Event) {
	w := s.rl.Stdout()
	if ev.Changes != nil {
		fmt.Fprintf(w, "< [%s] entity %s changed:\n", subID, ev.EntityID)
		for _, name := range sortedKeys(ev.Changes) {
			fmt.Fprintf(w, "    %s = %v\n", name, ev.Changes[name])
		}
		return
	}

	entity, ok := ev.Entity.(*contract.DynamicEntity)
	if !ok {
		fmt.Fprintf(w, "< [%s] entity %s\n", subID, ev.EntityID)
		return
	}
	fmt.Fprintf(w, "< [%s] entity %s (%s):\n", subID, entity.ID, entity.Type)
	for _, name := range sortedAttrs(entity) {
		attr := entity.Attributes[name]
		fmt.Fprintf(w, "    %s (%s) = %s\n", name, attr.Type, compactJSON(attr.Value))
	}
}

func (s *Shell) cmdStatus() {
	state := "stopped"
	if s.listener.IsStarted() {
		state = "listening"
	}
	fmt.Fprintf(s.rl.Stdout(), "Listener: %s, %d subscription(s)\n", state, s.registry.Count())
}

func (s *Shell) cmdSubs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No subscriptions")
		return
	}
	for _, id := range sortedKeys(s.subs) {
		fmt.Fprintf(s.rl.Stdout(), "  %s (%s)\n", id, s.subs[id])
	}
}

func (s *Shell) cmdSub(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: sub <id> [diff]")
		return
	}
	diff := len(args) > 1 && args[1] == "diff"
	if err := s.register(args[0], diff); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "! %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Registered %s\n", args[0])
}

func (s *Shell) cmdUnsub(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: unsub <id>")
		return
	}
	s.registry.Unregister(args[0])
	s.mu.Lock()
	delete(s.subs, args[0])
	s.mu.Unlock()
	fmt.Fprintf(s.rl.Stdout(), "Removed %s\n", args[0])
}

func (s *Shell) cmdCodec(args []string, encode bool) {
	if len(args) < 2 || (args[0] != "field" && args[0] != "value") {
		fmt.Fprintln(s.rl.Stdout(), "Usage: encode|decode field|value <text>")
		return
	}
	text := strings.Join(args[1:], " ")

	var out string
	switch {
	case encode && args[0] == "field":
		out = encoding.Percent.EncodeField(text)
	case encode:
		out = encoding.Percent.EncodeValue(text)
	case args[0] == "field":
		out = encoding.Percent.DecodeField(text)
	default:
		out = encoding.Percent.DecodeValue(text)
	}
	fmt.Fprintf(s.rl.Stdout(), "%s\n", out)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAttrs(e *contract.DynamicEntity) []string {
	return sortedKeys(e.Attributes)
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
