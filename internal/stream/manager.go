package stream

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// manager tracks connected viewers and fans frames out to them.
type manager struct {
	mu      sync.RWMutex
	clients map[string]*client
	log     *zap.Logger
}

func newManager(log *zap.Logger) *manager {
	return &manager{
		clients: make(map[string]*client),
		log:     log,
	}
}

func (m *manager) add(conn *websocket.Conn) *client {
	c := &client{id: uuid.NewString(), conn: conn}
	m.mu.Lock()
	m.clients[c.id] = c
	n := len(m.clients)
	m.mu.Unlock()
	m.log.Info("viewer connected", zap.String("client_id", c.id), zap.String("remote", conn.RemoteAddr().String()), zap.Int("viewers", n))
	return c
}

func (m *manager) remove(id string) {
	m.mu.Lock()
	c, ok := m.clients[id]
	delete(m.clients, id)
	n := len(m.clients)
	m.mu.Unlock()
	if !ok {
		return
	}
	_ = c.conn.Close()
	m.log.Info("viewer disconnected", zap.String("client_id", id), zap.Int("viewers", n))
}

func (m *manager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// broadcast writes msg to every viewer. A viewer whose write fails is
// dropped.
func (m *manager) broadcast(msg []byte) {
	m.mu.RLock()
	clients := make([]*client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			m.log.Warn("failed to send frame", zap.String("client_id", c.id), zap.Error(err))
			m.remove(c.id)
		}
	}
}

func (m *manager) closeAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*client)
	m.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}
