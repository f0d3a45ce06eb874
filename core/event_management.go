package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Event represents a ledger anchored notification emitted by various modules.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Data      []byte `json:"data"`
	Height    uint64 `json:"height"`
	Timestamp int64  `json:"ts"`
}

// EventManager persists events in the ledger state and fans them out to any
// in-process subscribers (RPC/WebSocket handlers registered via Subscribe).
type EventManager struct {
	mu     sync.RWMutex
	ledger StateRW
	subs   map[string][]chan Event
}

// NewEventManager constructs a manager backed by the given ledger. Unlike
// the reference tree's sync.Once singleton, the manager is an owned value
// threaded through the chain façade explicitly — there is no hidden
// process-wide global to initialise.
func NewEventManager(l StateRW) *EventManager {
	return &EventManager{ledger: l, subs: make(map[string][]chan Event)}
}

// Subscribe registers a channel that receives every future event of typ.
// The channel is never closed by the manager; callers own its lifecycle.
func (m *EventManager) Subscribe(typ string, ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[typ] = append(m.subs[typ], ch)
}

func (m *EventManager) publish(typ string, ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs[typ] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Emit records an event under a deterministic key and broadcasts it. The returned
// ID can be used to retrieve the event later.
func (m *EventManager) Emit(ctx *Context, typ string, data []byte) (string, error) {
	if m == nil || m.ledger == nil {
		return "", fmt.Errorf("event manager not initialised")
	}
	h := sha256.Sum256(append([]byte(typ), data...))
	id := hex.EncodeToString(h[:])
	ev := Event{ID: id, Type: typ, Data: data, Height: ctx.BlockHeight, Timestamp: time.Now().Unix()}
	blob, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	key := []byte(fmt.Sprintf("event:%s:%s", typ, id))
	if err := m.ledger.SetState(key, blob); err != nil {
		return "", err
	}
	m.publish(typ, ev)
	return id, nil
}

// List returns up to limit events of the given type in arbitrary order. Pass
// limit <=0 to fetch all available entries.
func (m *EventManager) List(typ string, limit int) ([]Event, error) {
	if m == nil || m.ledger == nil {
		return nil, fmt.Errorf("event manager not initialised")
	}
	it := m.ledger.PrefixIterator([]byte("event:" + typ + ":"))
	var out []Event
	for it.Next() {
		var ev Event
		if err := json.Unmarshal(it.Value(), &ev); err == nil {
			out = append(out, ev)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, it.Error()
}

// Get retrieves a single event by type and ID.
func (m *EventManager) Get(typ, id string) (Event, error) {
	if m == nil || m.ledger == nil {
		return Event{}, fmt.Errorf("event manager not initialised")
	}
	key := []byte(fmt.Sprintf("event:%s:%s", typ, id))
	raw, err := m.ledger.GetState(key)
	if err != nil {
		return Event{}, err
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
