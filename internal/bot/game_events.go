package bot

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/actuation"
	"jordanella.com/gamebot-go/internal/events"
)

// maxGameEvents bounds the in-memory game event log; the oldest go first
const maxGameEvents = 1000

// GameEventKind is one kind of event the game can report, with the
// arguments every occurrence must carry
type GameEventKind struct {
	Name        string
	Description string
	Parameters  []actions.Parameter
}

var messageParameters = []actions.Parameter{
	{Name: "username", Description: "Who said the message.", Type: actions.TypeString},
	{Name: "message", Description: "The message that was said.", Type: actions.TypeString},
}

// GameEventKinds lists the game events a bot accepts
var GameEventKinds = []GameEventKind{
	{Name: "chat", Description: "A player chats publicly.", Parameters: messageParameters},
	{Name: "whisper", Description: "A player chats to you privately.", Parameters: messageParameters},
}

func gameEventKind(name string) (GameEventKind, bool) {
	for _, k := range GameEventKinds {
		if k.Name == name {
			return k, true
		}
	}
	return GameEventKind{}, false
}

// GameEvent is one recorded occurrence
type GameEvent struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Args        []actions.Arg `json:"args"`
	Updated     time.Time     `json:"updated"`
}

// RecordGameEvent validates args against the kind's parameters, appends
// the event to the log and publishes it
func (b *Bot) RecordGameEvent(name string, args []actions.Arg) (GameEvent, error) {
	kind, ok := gameEventKind(name)
	if !ok {
		return GameEvent{}, fmt.Errorf("%w: unknown game event '%s'", actions.ErrValidation, name)
	}
	if err := actions.ValidateArgs(args, kind.Parameters); err != nil {
		return GameEvent{}, fmt.Errorf("game event '%s': %w", name, err)
	}

	ev := GameEvent{
		ID:          uuid.NewString(),
		Name:        kind.Name,
		Description: kind.Description,
		Args:        actions.CloneArgs(args),
	}
	b.mu.Lock()
	ev.Updated = time.Now()
	b.gameEvents = append(b.gameEvents, ev)
	if len(b.gameEvents) > maxGameEvents {
		b.gameEvents = append([]GameEvent(nil), b.gameEvents[len(b.gameEvents)-maxGameEvents:]...)
	}
	b.mu.Unlock()

	b.publish(events.NewGameEvent(b.name, ev.ID, ev.Name, ev.Args))
	return ev, nil
}

// GameEventsSince returns the recorded events newer than since, oldest first
func (b *Bot) GameEventsSince(since time.Time) []GameEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := sort.Search(len(b.gameEvents), func(i int) bool {
		return b.gameEvents[i].Updated.After(since)
	})
	out := make([]GameEvent, len(b.gameEvents)-i)
	copy(out, b.gameEvents[i:])
	return out
}

// ConsumeGameEvents records every event from src until src closes or the
// bot is closed. Invalid events are logged and skipped.
func (b *Bot) ConsumeGameEvents(src <-chan actuation.GameEvent) {
	b.relays.Add(1)
	go func() {
		defer b.relays.Done()
		for {
			select {
			case e, ok := <-src:
				if !ok {
					return
				}
				if _, err := b.RecordGameEvent(e.Name, argsOf(e)); err != nil {
					b.logger.WarnWithContext("Dropped game event", map[string]interface{}{
						"event": e.Name,
						"error": err.Error(),
					})
				}
			case <-b.relayCtx.Done():
				return
			}
		}
	}()
}

// argsOf orders a game event's args by the kind's parameters, followed by
// any undeclared names in sorted order
func argsOf(e actuation.GameEvent) []actions.Arg {
	args := make([]actions.Arg, 0, len(e.Args))
	seen := make(map[string]bool, len(e.Args))
	if kind, ok := gameEventKind(e.Name); ok {
		for _, p := range kind.Parameters {
			if v, ok := e.Args[p.Name]; ok {
				args = append(args, actions.Arg{Name: p.Name, Value: v})
				seen[p.Name] = true
			}
		}
	}
	var extra []string
	for name := range e.Args {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		args = append(args, actions.Arg{Name: name, Value: e.Args[name]})
	}
	return args
}
