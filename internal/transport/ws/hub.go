package ws

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/newsletter-gateway/internal/domain"
)

// Dispatcher routes a parsed-from-the-wire command sequence into the
// subscription flow.
type Dispatcher interface {
	Dispatch(userID, username string, args []string) error
}

// Hub owns the bidirectional wire channel. Each connected downstream server
// declares which user it speaks for; the last connection per user wins the
// association. Outbound delivery is fire-and-forget: no destination, no
// retry, no acknowledgement.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*conn // userID -> current destination

	dispatcher     Dispatcher
	allowedOrigins []string
	log            *slog.Logger
}

func NewHub(dispatcher Dispatcher, allowedOrigins []string, log *slog.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		conns:          make(map[string]*conn),
		dispatcher:     dispatcher,
		allowedOrigins: allowedOrigins,
		log:            log,
	}
}

// EmitStatus sends the raw status token to the user's current destination.
// A missing destination or a saturated connection drops the frame silently.
func (h *Hub) EmitStatus(userID string, status domain.Status) {
	h.mu.RLock()
	c := h.conns[userID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if !c.trySend(status.Bytes()) {
		h.log.Warn("destination unavailable, dropping status",
			"user_id", userID, "status", status.Token())
	}
}

// Handler upgrades an HTTP request into a wire-channel connection. The
// destination identifies its user via the user_id and username query
// parameters.
func (h *Hub) Handler() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		username := r.URL.Query().Get("username")
		if userID == "" {
			http.Error(w, `{"error":"user_id is required"}`, http.StatusBadRequest)
			return
		}
		if username == "" {
			username = userID
		}

		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Error("wire channel upgrade failed", "err", err, "remote", r.RemoteAddr)
			return
		}

		c := newConn(h, sock, userID, username)
		h.associate(c)

		go c.writePump()
		go c.readPump()
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// associate makes c the user's current destination, displacing any prior
// connection for the same user.
func (h *Hub) associate(c *conn) {
	h.mu.Lock()
	prev := h.conns[c.userID]
	h.conns[c.userID] = c
	h.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	h.log.Info("destination associated", "user_id", c.userID)
}

// dissociate removes c if it is still the user's current destination.
func (h *Hub) dissociate(c *conn) {
	h.mu.Lock()
	if h.conns[c.userID] == c {
		delete(h.conns, c.userID)
	}
	h.mu.Unlock()
	h.log.Info("destination dissociated", "user_id", c.userID)
}

// Destinations returns how many users currently have a destination.
func (h *Hub) Destinations() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close tears down every connection. Called once at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}
