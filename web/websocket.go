package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/sink"
)

// WSMessage WebSocket消息结构
type WSMessage struct {
	Type        string      `json:"type"`
	MessageType string      `json:"message_type,omitempty"`
	EventID     string      `json:"event_id,omitempty"`
	SportID     string      `json:"sport_id,omitempty"`
	ProductID   int         `json:"product_id,omitempty"`
	Timestamp   int64       `json:"timestamp,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

// Client WebSocket客户端
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	closed   bool
	filters  map[string]bool // 消息类型过滤器
	eventIDs map[string]bool // 赛事ID过滤器
}

// Hub 把分发后的消息推送给 WebSocket 客户端
type Hub struct {
	logger     common.Logger
	clients    map[*Client]bool
	broadcast  chan *WSMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub 创建新的Hub
func NewHub(logger common.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run 运行Hub，ctx 取消后断开全部客户端
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("[WebSocket] Client registered. Total clients: %d", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("[WebSocket] Client unregistered. Total clients: %d", total)

		case message := <-h.broadcast:
			data := h.marshalMessage(message)
			var slow []*Client
			h.mu.RLock()
			for client := range h.clients {
				if !client.shouldReceive(message) {
					continue
				}
				if !client.trySend(data) {
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, client := range slow {
					delete(h.clients, client)
					client.close()
				}
				h.mu.Unlock()
				h.logger.Warn("[WebSocket] Dropped %d slow clients", len(slow))
			}
		}
	}
}

// Handle 作为会话订阅者接收映射后的消息
func (h *Hub) Handle(ctx context.Context, msg entities.Message) error {
	env := sink.NewEnvelope(msg)
	wsMsg := &WSMessage{
		Type:        "message",
		MessageType: string(env.Kind),
		EventID:     env.EventID,
		SportID:     env.SportID,
		ProductID:   env.Producer,
		Timestamp:   env.Timestamps.Created,
		Data:        env.Payload,
	}
	select {
	case h.broadcast <- wsMsg:
	case <-h.done:
	default:
		h.logger.Warn("[WebSocket] Broadcast queue full, %s dropped", msg.Kind())
	}
	return nil
}

// ClientCount 当前客户端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) serve(conn *websocket.Conn) {
	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		filters:  make(map[string]bool),
		eventIDs: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// 发送欢迎消息
	client.trySend(h.marshalMessage(&WSMessage{
		Type: "connected",
		Data: map[string]interface{}{
			"message": "Connected to UOF WebSocket",
			"time":    time.Now().Unix(),
		},
	}))

	go client.writePump()
	go client.readPump()
}

// marshalMessage 序列化消息
func (h *Hub) marshalMessage(message *WSMessage) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("[WebSocket] Failed to marshal message: %v", err)
		return []byte("{}")
	}
	return data
}

func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// shouldReceive 检查客户端是否应该接收消息
func (c *Client) shouldReceive(message *WSMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 如果没有设置过滤器,接收所有消息
	if len(c.filters) == 0 && len(c.eventIDs) == 0 {
		return true
	}

	// 检查消息类型过滤器
	if len(c.filters) > 0 && !c.filters[message.MessageType] {
		return false
	}

	// 检查赛事ID过滤器
	if len(c.eventIDs) > 0 && (message.EventID == "" || !c.eventIDs[message.EventID]) {
		return false
	}

	return true
}

// readPump 读取客户端消息
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("[WebSocket] Read error: %v", err)
			}
			break
		}

		// 处理客户端消息(设置过滤器等)
		c.handleMessage(message)
	}
}

// writePump 向客户端写入消息
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

type clientRequest struct {
	Type         string   `json:"type"`
	MessageTypes []string `json:"message_types"`
	EventIDs     []string `json:"event_ids"`
}

// handleMessage 处理客户端发送的消息
func (c *Client) handleMessage(message []byte) {
	var req clientRequest
	if err := json.Unmarshal(message, &req); err != nil {
		c.hub.logger.Debug("[WebSocket] Failed to unmarshal client message: %v", err)
		return
	}

	c.mu.Lock()
	switch req.Type {
	case "subscribe":
		c.filters = toSet(req.MessageTypes)
		c.eventIDs = toSet(req.EventIDs)
	case "unsubscribe":
		c.filters = make(map[string]bool)
		c.eventIDs = make(map[string]bool)
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.trySend(c.hub.marshalMessage(&WSMessage{
		Type: req.Type + "d",
		Data: map[string]interface{}{
			"message_types": req.MessageTypes,
			"event_ids":     req.EventIDs,
		},
	}))
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
