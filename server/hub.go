package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const clientBuffer = 16 // 每个客户端待发送消息的缓冲数量，写满即断开

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub websocket广播中心
// 功能：将每个tick的快照推送给所有已连接的客户端，发送不阻塞运行循环
type Hub struct {
	mtx     sync.Mutex
	clients map[string]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Publish 实现task.IPublisher，序列化一次后投递给所有客户端
func (h *Hub) Publish(v any) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if len(h.clients) == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal snapshot: %v", err)
		return
	}
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warnf("websocket client %s too slow, dropped", id)
			h.removeLocked(id)
		}
	}
}

// Clients 当前连接数
func (h *Hub) Clients() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.clients)
}

// serve 接管一个已升级的连接，直到连接关闭
func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}
	h.mtx.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mtx.Unlock()
	log.Infof("websocket client %s connected, total clients: %d", c.id, total)

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop 丢弃客户端消息，仅用于感知断开
func (h *Hub) readLoop(c *client) {
	defer h.remove(c.id)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("websocket client %s error: %v", c.id, err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warnf("websocket client %s write error: %v", c.id, err)
			h.remove(c.id)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(id string) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
	log.Infof("websocket client %s disconnected, remaining clients: %d", id, len(h.clients))
}
