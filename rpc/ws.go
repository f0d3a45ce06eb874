package rpc

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ghostchain/auth"
	"ghostchain/core"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscribeParams names the one WebSocket-only pseudo-method that layers
// event streaming on top of the same dispatch table every HTTP call uses.
type subscribeParams struct {
	EventType string `json:"event_type"`
}

const methodSubscribe = "subscribe"

// handleWS upgrades the connection and serves the same method table as
// handleHTTP, plus a "subscribe" pseudo-method that pushes Event records as
// they are emitted. One connection may issue any number of requests and
// subscribe to any number of event types; all events arrive on the same
// connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("rpc: websocket upgrade failed")
		return
	}
	defer conn.Close()

	bearer := r.Header.Get("Authorization")
	apiKey := r.Header.Get("X-Api-Key")

	var writeMu sync.Mutex
	eventCh := make(chan core.Event, 64)
	subCtx, cancelSub := context.WithCancel(r.Context())
	defer cancelSub()

	go s.pumpEvents(subCtx, conn, &writeMu, eventCh)

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if env.Method == methodSubscribe {
			var p subscribeParams
			if err := decodeParams(env.Params, &p); err != nil {
				s.wsWrite(conn, &writeMu, response{ID: env.ID, Error: &wireError{Code: CodeParseError, Message: err.Error()}})
				continue
			}
			if err := s.authorize(bearer, apiKey, permissionForEventType(p.EventType)); err != nil {
				s.wsWrite(conn, &writeMu, response{ID: env.ID, Error: newWireError(err)})
				continue
			}
			s.chain.Events.Subscribe(p.EventType, eventCh)
			s.wsWrite(conn, &writeMu, response{ID: env.ID, Result: map[string]string{"subscribed": p.EventType}})
			continue
		}
		resp := s.dispatch(r.Context(), env, bearer, apiKey)
		s.wsWrite(conn, &writeMu, resp)
	}
}

func (s *Server) pumpEvents(ctx context.Context, conn *websocket.Conn, mu *sync.Mutex, ch <-chan core.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			s.wsWrite(conn, mu, response{Result: map[string]interface{}{"event": ev}})
		}
	}
}

func (s *Server) wsWrite(conn *websocket.Conn, mu *sync.Mutex, resp response) {
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.WithError(err).Debug("rpc: websocket write failed")
	}
}

// permissionForEventType maps a subscribed event type onto the read
// permission that would have governed fetching it via its owning RPC
// method, so "subscribe" never grants broader access than the equivalent
// poll would have.
func permissionForEventType(typ string) auth.Permission {
	switch typ {
	case "DomainRegistered", "DomainTransferred", "RecordUpdated":
		return auth.ReadDomains
	case "ContractDeployed":
		return auth.ReadContracts
	default:
		return auth.ReadBlockchain
	}
}
