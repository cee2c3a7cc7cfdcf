package lavalink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// ErrNoNodes is returned when no Lavalink node is ready
var ErrNoNodes = errors.New("no available Lavalink nodes")

// Node represents a Lavalink node connection: a websocket for events and
// the REST API for everything else.
type Node struct {
	config       NodeConfig
	conn         *websocket.Conn
	client       *LavalinkClient
	httpClient   *http.Client
	sessionID    string
	connected    bool
	reconnecting bool
	closed       bool
	mu           sync.RWMutex
}

func newNode(config NodeConfig, client *LavalinkClient) *Node {
	return &Node{
		config:     config,
		client:     client,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Node) baseURL(ws bool) string {
	scheme := "http"
	if ws {
		scheme = "ws"
	}
	if n.config.Secure {
		scheme += "s"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, n.config.Host, n.config.Port)
}

// ready reports whether the node has a session and can take REST calls
func (n *Node) ready() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.connected && n.sessionID != ""
}

// connect establishes the websocket connection, retrying every 5 seconds
func (n *Node) connect(userID string) {
	n.mu.Lock()
	if n.connected || n.reconnecting || n.closed {
		n.mu.Unlock()
		return
	}
	n.reconnecting = true
	n.mu.Unlock()

	headers := http.Header{}
	headers.Set("Authorization", n.config.Password)
	headers.Set("User-Id", userID)
	headers.Set("Client-Name", "UselessBot-Go/1.0")

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(n.baseURL(true)+"/v4/websocket", headers)
	if err != nil {
		logger.Error(fmt.Sprintf("Error al conectar con Lavalink %s: %v", n.config.Name, err), "Lavalink")
		n.mu.Lock()
		n.reconnecting = false
		n.mu.Unlock()

		time.AfterFunc(5*time.Second, func() { n.connect(userID) })
		return
	}

	n.mu.Lock()
	n.conn = conn
	n.connected = true
	n.reconnecting = false
	n.mu.Unlock()

	logger.Success(fmt.Sprintf("Conectado con Lavalink server: %s", n.config.Name), "Lavalink")

	go n.readMessages(conn, userID)
}

func (n *Node) readMessages(conn *websocket.Conn, userID string) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			logger.Warn(fmt.Sprintf("Error leyendo mensaje de Lavalink: %v", err), "Lavalink")
			n.handleDisconnect(userID)
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		n.handleMessage(&msg)
	}
}

func (n *Node) handleMessage(msg *wsMessage) {
	switch msg.Op {
	case "ready":
		n.mu.Lock()
		n.sessionID = msg.SessionID
		n.mu.Unlock()
		logger.Info(fmt.Sprintf("Lavalink %s listo (sesión %s)", n.config.Name, msg.SessionID), "Lavalink")
	case "playerUpdate":
		n.client.handlePlayerUpdate(msg.GuildID, msg.State.Position)
	case "event":
		n.client.handleEvent(msg)
	case "stats":
	}
}

func (n *Node) handleDisconnect(userID string) {
	n.mu.Lock()
	n.connected = false
	n.sessionID = ""
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	closed := n.closed
	n.mu.Unlock()

	if closed {
		return
	}

	logger.Warn(fmt.Sprintf("Desconectado de Lavalink: %s. Reintentando...", n.config.Name), "Lavalink")
	time.AfterFunc(5*time.Second, func() { n.connect(userID) })
}

func (n *Node) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.connected = false
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
}

// rest performs a REST call and decodes the JSON response into out
func (n *Node) rest(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.baseURL(false)+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", n.config.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lavalink %s %s: %d %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// updatePlayer PATCHes the node's player for a guild
func (n *Node) updatePlayer(guildID string, update playerUpdate) error {
	n.mu.RLock()
	sessionID := n.sessionID
	n.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return n.rest(ctx, http.MethodPatch, fmt.Sprintf("/v4/sessions/%s/players/%s", sessionID, guildID), update, nil)
}

func (n *Node) destroyPlayer(guildID string) error {
	n.mu.RLock()
	sessionID := n.sessionID
	n.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return n.rest(ctx, http.MethodDelete, fmt.Sprintf("/v4/sessions/%s/players/%s", sessionID, guildID), nil, nil)
}
