package realtime

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"krypto_store/internal/ledger"
	"krypto_store/internal/models"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
	clientBuffer   = 16
)

// LedgerHub pushes committed ledger events to the websocket clients of the
// account they belong to.
type LedgerHub struct {
	clients   map[string]map[*client]bool
	broadcast chan ledger.Event
	mu        sync.Mutex
}

type client struct {
	conn    *websocket.Conn
	account string
	role    models.Role
	userID  string
	send    chan ledger.Event
	once    sync.Once
}

// wants reports whether the client should see ev. Students only hear about
// changes to their own balance and account-wide resets.
func (c *client) wants(ev ledger.Event) bool {
	if c.role != models.RoleStudent {
		return true
	}
	switch ev.Kind {
	case ledger.EventFactoryReset, ledger.EventRestored, ledger.EventRateUpdated:
		return true
	}
	return slices.Contains(ev.UserIDs, c.userID)
}

func NewLedgerHub() *LedgerHub {
	return &LedgerHub{
		clients:   make(map[string]map[*client]bool),
		broadcast: make(chan ledger.Event, 100),
	}
}

// Run fans events out until ctx is done, then closes every connection.
func (h *LedgerHub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

func (h *LedgerHub) fanOut(ev ledger.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[ev.Account] {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.send <- ev:
		default:
			logrus.WithFields(logrus.Fields{
				"account":  ev.Account,
				"conn_ptr": fmt.Sprintf("%p", c.conn),
			}).Warn("Client send buffer full, dropping ledger event.")
		}
	}
}

// Publish queues ev for delivery. It never blocks; it matches ledger.Listener.
func (h *LedgerHub) Publish(ev ledger.Event) {
	select {
	case h.broadcast <- ev:
	default:
		logrus.Warn("Ledger broadcast channel full, dropping event.")
	}
}

// Serve registers conn and blocks until the client goes away.
func (h *LedgerHub) Serve(conn *websocket.Conn, account string, role models.Role, userID string) {
	c := &client{
		conn:    conn,
		account: account,
		role:    role,
		userID:  userID,
		send:    make(chan ledger.Event, clientBuffer),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()

	conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("account", account).Warn("Ledger websocket closed unexpectedly.")
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			logrus.WithError(err).WithField("account", c.account).Debug("Failed to send ledger event to client.")
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func (h *LedgerHub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.account]; !ok {
		h.clients[c.account] = make(map[*client]bool)
	}
	h.clients[c.account][c] = true
	logrus.WithFields(logrus.Fields{
		"account":  c.account,
		"role":     c.role,
		"conn_ptr": fmt.Sprintf("%p", c.conn),
	}).Info("Client registered with LedgerHub.")
}

func (h *LedgerHub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[c.account]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.clients, c.account)
		}
	}
	c.close()
	logrus.WithField("account", c.account).Debug("Client unregistered from LedgerHub.")
}

func (h *LedgerHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for account, clients := range h.clients {
		for c := range clients {
			c.close()
		}
		delete(h.clients, account)
	}
}

// Clients returns how many connections are open for account.
func (h *LedgerHub) Clients(account string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[account])
}
