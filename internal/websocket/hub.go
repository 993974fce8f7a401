package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rzzdr/options-risk-engine/internal/kafka"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Stream topics a client can subscribe to
const (
	TopicValuations = "valuations"
	TopicRisk       = "risk"
)

// Hub fans valuation and risk events out to websocket clients. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	direct     chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logger.Logger
}

type envelope struct {
	client *Client // nil for broadcasts
	topic  string
	data   []byte
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	id            string
	subscriptions map[string]bool
	mu            sync.RWMutex
}

// Message represents a WebSocket message
type Message struct {
	Type  string      `json:"type"`
	Topic string      `json:"topic,omitempty"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	ID    string      `json:"id,omitempty"`
}

// SubscriptionMessage is sent by clients to manage their topics
type SubscriptionMessage struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
	ID     string   `json:"id,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		direct:     make(chan envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger.GetLogger("websocket.hub"),
	}
}

// Run serves the hub until ctx is done
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Starting WebSocket hub")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			h.log.Info("WebSocket hub shutting down")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Debugf("Client %s registered", client.id)

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.log.Debugf("Client %s unregistered", client.id)
			}

		case env := <-h.direct:
			if h.clients[env.client] {
				h.deliver(env.client, env.data)
			}

		case env := <-h.broadcast:
			for client := range h.clients {
				if client.subscribed(env.topic) {
					h.deliver(client, env.data)
				}
			}
		}
	}
}

// deliver queues data for a client, dropping clients that cannot keep up
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warnf("Client %s is too slow, disconnecting", client.id)
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

// HandleWebSocket upgrades the request and attaches the client to the hub
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		id:            uuid.NewString(),
		subscriptions: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// PublishValuation implements kafka.Publisher
func (h *Hub) PublishValuation(ctx context.Context, c models.Contract, v *models.Valuation) error {
	if c == nil || v == nil {
		return nil
	}
	return h.publish(ctx, TopicValuations, Message{Type: "valuation", Topic: TopicValuations, Data: kafka.NewValuationEvent(c, v)})
}

// PublishRiskReport implements kafka.Publisher
func (h *Hub) PublishRiskReport(ctx context.Context, r *models.RiskReport) error {
	if r == nil {
		return nil
	}
	return h.publish(ctx, TopicRisk, Message{Type: "risk_report", Topic: TopicRisk, Data: kafka.NewRiskEvent(r)})
}

// Close implements kafka.Publisher; the hub stops with the context given to Run
func (h *Hub) Close() error {
	return nil
}

func (h *Hub) publish(ctx context.Context, topic string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- envelope{topic: topic, data: data}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		h.log.Warnf("Broadcast queue full, dropping %s event", topic)
		return nil
	}
}

func (c *Client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[topic]
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(messageData)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(messageData []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(messageData, &msg); err != nil {
		c.sendError("invalid message format", "")
		return
	}

	switch msg.Type {
	case "subscribe", "unsubscribe":
		for _, topic := range msg.Topics {
			if topic != TopicValuations && topic != TopicRisk {
				c.sendError("unknown topic "+topic, msg.ID)
				return
			}
		}
		c.mu.Lock()
		for _, topic := range msg.Topics {
			if msg.Type == "subscribe" {
				c.subscriptions[topic] = true
			} else {
				delete(c.subscriptions, topic)
			}
		}
		c.mu.Unlock()
		c.sendMessage(Message{Type: msg.Type + "d", Data: map[string]interface{}{"topics": msg.Topics}, ID: msg.ID})
	case "ping":
		c.sendMessage(Message{Type: "pong", ID: msg.ID})
	default:
		c.sendError("unknown message type", msg.ID)
	}
}

// sendMessage routes a reply through the hub so only Run touches c.send
func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorf("Failed to marshal message: %v", err)
		return
	}

	select {
	case c.hub.direct <- envelope{client: c, data: data}:
	case <-c.hub.done:
	}
}

func (c *Client) sendError(errorMsg, id string) {
	c.sendMessage(Message{Type: "error", Error: errorMsg, ID: id})
}
