package messenger

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsEnvelope is the JSON payload pushed down one connection.
type wsEnvelope struct {
	MessageID string   `json:"message_id"`
	SignalID  int64    `json:"signal_id"`
	Ticker    string   `json:"ticker"`
	FrontDate string   `json:"front_date"`
	BackDate  string   `json:"back_date"`
	FFValue   float64  `json:"ff_value"`
	Threshold float64  `json:"threshold"`
	AsOf      string   `json:"as_of"`
	Message   string   `json:"message"`
	Actions   []string `json:"actions"`
}

// wsInbound is the shape of a client's decision callback.
type wsInbound struct {
	SignalID int64  `json:"signal_id"`
	Action   string `json:"action"`
}

// WSMessenger is a gorilla/websocket-based Messenger: one HTTP handler
// accepts inbound connections keyed by chat_id (one live connection per
// user), and outbound Send calls push a JSON envelope down the matching
// socket. Inbound frames are translated into Callback events.
type WSMessenger struct {
	token       string
	mu          sync.RWMutex
	conns       map[string]*websocket.Conn
	writeMu     map[string]*sync.Mutex
	callbacks   chan Callback
	sendTimeout time.Duration
}

// NewWSMessenger creates a WSMessenger. When token is non-empty, every
// connecting client must present it in the "token" query parameter; an
// empty token disables the check.
func NewWSMessenger(token string) *WSMessenger {
	return &WSMessenger{
		token:       token,
		conns:       make(map[string]*websocket.Conn),
		writeMu:     make(map[string]*sync.Mutex),
		callbacks:   make(chan Callback, 256),
		sendTimeout: 15 * time.Second,
	}
}

// Handler upgrades one HTTP request to a websocket connection for the
// chat_id present in the "chat_id" query parameter, and reads its callback
// stream until the connection drops.
func (m *WSMessenger) Handler(w http.ResponseWriter, r *http.Request) {
	if m.token != "" && r.URL.Query().Get("token") != m.token {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️  websocket upgrade failed for %s: %v", chatID, err)
		return
	}

	m.mu.Lock()
	if old, ok := m.conns[chatID]; ok {
		_ = old.Close()
	}
	m.conns[chatID] = conn
	m.writeMu[chatID] = &sync.Mutex{}
	m.mu.Unlock()

	log.Printf("🔌 messenger connection established for chat %s", chatID)
	m.readLoop(chatID, conn)
}

func (m *WSMessenger) readLoop(chatID string, conn *websocket.Conn) {
	defer func() {
		m.mu.Lock()
		if m.conns[chatID] == conn {
			delete(m.conns, chatID)
			delete(m.writeMu, chatID)
		}
		m.mu.Unlock()
		_ = conn.Close()
		log.Printf("🔌 messenger connection closed for chat %s", chatID)
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		action := Action(in.Action)
		if action != ActionPlaced && action != ActionIgnored {
			log.Printf("⚠️  ignoring unrecognized action %q from chat %s", in.Action, chatID)
			continue
		}
		m.callbacks <- Callback{ChatID: chatID, SignalID: in.SignalID, Action: action}
	}
}

// Send delivers payload to chatID. Returns ErrRecipientUnreachable if no
// connection is currently live for chatID.
func (m *WSMessenger) Send(ctx context.Context, chatID string, payload Payload) (string, error) {
	m.mu.RLock()
	conn, ok := m.conns[chatID]
	mu := m.writeMu[chatID]
	m.mu.RUnlock()
	if !ok {
		return "", ErrRecipientUnreachable
	}

	envelope := wsEnvelope{
		MessageID: uuid.NewString(),
		SignalID:  payload.SignalID,
		Ticker:    payload.Ticker,
		FrontDate: payload.FrontDate,
		BackDate:  payload.BackDate,
		FFValue:   payload.FFValue,
		Threshold: payload.Threshold,
		AsOf:      payload.AsOf,
		Message:   payload.Message,
		Actions:   []string{"Place", "Ignore"},
	}

	mu.Lock()
	defer mu.Unlock()
	deadline, _ := ctx.Deadline()
	if deadline.IsZero() {
		deadline = time.Now().Add(m.sendTimeout)
	}
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(envelope); err != nil {
		return "", fmt.Errorf("messenger send to %s: %w", chatID, err)
	}
	return envelope.MessageID, nil
}

// Callbacks returns the inbound decision stream.
func (m *WSMessenger) Callbacks() <-chan Callback { return m.callbacks }

// connectedFor is a test/health helper reporting whether chatID currently
// has a live connection.
func (m *WSMessenger) connectedFor(chatID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.conns[chatID]
	return ok
}
