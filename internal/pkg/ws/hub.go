package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/metrics"
)

const writeWait = 5 * time.Second

// Hub 在线广告主的连接表，用于推送审核、支付和到期通知
type Hub struct {
	// 同一广告主可能开着多个标签页
	clients map[int64]map[*Client]struct{}
	mu      sync.RWMutex
	log     *logger.Logger
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	mu     sync.Mutex // 写锁
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.clients[client.UserID]
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
	metrics.WSConnections.Inc()

	h.log.Debug("ws client connected", "user_id", client.UserID, "user_conns", len(conns))
}

// Unregister 可重复调用，只有第一次会关闭连接
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	conns, ok := h.clients[client.UserID]
	if ok {
		_, ok = conns[client]
	}
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
	h.mu.Unlock()

	metrics.WSConnections.Dec()
	client.Conn.Close()
	h.log.Debug("ws client disconnected", "user_id", client.UserID)
}

// SendToUser 向广告主的所有连接推送，写失败的连接直接摘除。用户不在线不算错误。
func (h *Hub) SendToUser(userID int64, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	for _, c := range h.snapshot(userID) {
		if err := c.write(data); err != nil {
			h.log.Warn("ws write failed, dropping connection", err, "user_id", userID, "type", msg.Type)
			h.Unregister(c)
		}
	}
	return nil
}

func (h *Hub) snapshot(userID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.clients[userID]
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	return clients
}

// IsOnline 广告主是否有在线连接
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// ConnectionCount 在线连接总数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
