package actuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// ErrBridgeClosed is returned for calls made after the connection dropped
var ErrBridgeClosed = errors.New("actuator bridge closed")

type bridgeRequest struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

type bridgeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// bridgeResponse answers a request. A message without an id whose event
// is set is a game event notification instead.
type bridgeResponse struct {
	ID     uint64                 `json:"id"`
	Result json.RawMessage        `json:"result,omitempty"`
	Error  *bridgeError           `json:"error,omitempty"`
	Event  string                 `json:"event,omitempty"`
	Args   map[string]interface{} `json:"args,omitempty"`
}

// Bridge is an Actuator that forwards every call over a websocket to a
// game client process. Requests carry an id; the peer answers each id
// once. A canceled call sends a best-effort "stop" for its id.
type Bridge struct {
	conn   *websocket.Conn
	nextID atomic.Uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan bridgeResponse
	err     error

	events chan GameEvent
	done   chan struct{}
}

// Dial connects to a bridge endpoint such as ws://localhost:3001/bridge
func Dial(ctx context.Context, url string) (*Bridge, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial actuator bridge: %w", err)
	}
	b := &Bridge{
		conn:    conn,
		pending: make(map[uint64]chan bridgeResponse),
		events:  make(chan GameEvent, gameEventBuffer),
		done:    make(chan struct{}),
	}
	go b.readLoop()
	return b, nil
}

// Done is closed when the connection is lost or closed
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Err returns why the bridge stopped, once Done is closed
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Close shuts the connection down
func (b *Bridge) Close() error {
	b.writeMu.Lock()
	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.writeMu.Unlock()
	return b.conn.Close()
}

func (b *Bridge) readLoop() {
	var loopErr error
	for {
		var rsp bridgeResponse
		if err := b.conn.ReadJSON(&rsp); err != nil {
			loopErr = err
			break
		}
		if rsp.ID == 0 && rsp.Event != "" {
			select {
			case b.events <- GameEvent{Name: rsp.Event, Args: rsp.Args}:
			default:
			}
			continue
		}
		b.mu.Lock()
		ch, ok := b.pending[rsp.ID]
		delete(b.pending, rsp.ID)
		b.mu.Unlock()
		if ok {
			ch <- rsp
		}
	}

	b.mu.Lock()
	b.err = fmt.Errorf("%w: %v", ErrBridgeClosed, loopErr)
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
	b.mu.Unlock()
	close(b.events)
	close(b.done)
}

// GameEvents implements EventSource. The channel closes with the connection.
func (b *Bridge) GameEvents() <-chan GameEvent {
	return b.events
}

func (b *Bridge) write(req bridgeRequest) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(req)
}

func (b *Bridge) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	id := b.nextID.Add(1)
	ch := make(chan bridgeResponse, 1)

	b.mu.Lock()
	if b.err != nil {
		err := b.err
		b.mu.Unlock()
		return err
	}
	b.pending[id] = ch
	b.mu.Unlock()

	if err := b.write(bridgeRequest{ID: id, Method: method, Params: params}); err != nil {
		b.forget(id)
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case rsp, ok := <-ch:
		if !ok {
			return b.Err()
		}
		if rsp.Error != nil {
			return errors.New(rsp.Error.Message)
		}
		if result != nil && len(rsp.Result) > 0 {
			if err := json.Unmarshal(rsp.Result, result); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		b.forget(id)
		_ = b.write(bridgeRequest{ID: b.nextID.Add(1), Method: "stop", Params: map[string]uint64{"id": id}})
		return ctx.Err()
	}
}

func (b *Bridge) forget(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
}

func (b *Bridge) Position(ctx context.Context) (Position, error) {
	var pos Position
	err := b.call(ctx, "position", nil, &pos)
	return pos, err
}

func (b *Bridge) MoveTo(ctx context.Context, target Position) error {
	return b.call(ctx, "moveTo", target, nil)
}

func (b *Bridge) Attack(ctx context.Context, mobID int) error {
	return b.call(ctx, "attack", map[string]int{"mobId": mobID}, nil)
}

func (b *Bridge) PlaceBlock(ctx context.Context, at Position, block string) error {
	return b.call(ctx, "placeBlock", map[string]interface{}{"position": at, "block": block}, nil)
}

func (b *Bridge) Smelt(ctx context.Context, furnace Position, input, fuel ItemStack) error {
	return b.call(ctx, "smelt", map[string]interface{}{"furnace": furnace, "input": input, "fuel": fuel}, nil)
}

func (b *Bridge) TakeFromFurnace(ctx context.Context, furnace Position, slot FurnaceSlot) error {
	return b.call(ctx, "takeFromFurnace", map[string]interface{}{"furnace": furnace, "slot": slot}, nil)
}

func (b *Bridge) Craft(ctx context.Context, item string, count int, table Position) error {
	return b.call(ctx, "craft", map[string]interface{}{"item": item, "count": count, "craftingTable": table}, nil)
}
