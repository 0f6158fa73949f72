package server

import (
	"bytes"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// errMalformedMessage marks a message that is not a JSON request envelope.
// The session answers it and keeps reading.
var errMalformedMessage = errors.New("message must be a JSON object with a string \"type\"")

// wsRequest is one request read off a WebSocket session.
type wsRequest struct {
	ID      string
	Type    string
	Payload []byte
}

// wsReply answers one request. Error replies carry Stage and the partial
// Result the same way the HTTP API does.
type wsReply struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Stage  string `json:"stage,omitempty"`
}

// WebSocketClient wraps a WebSocket connection speaking the request/reply
// envelope {"type", "id", "payload"}.
type WebSocketClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewWebSocketClient wraps conn, rejecting messages over maxMessageSize bytes.
func NewWebSocketClient(conn *websocket.Conn, maxMessageSize int64) *WebSocketClient {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &WebSocketClient{conn: conn}
}

// ReadRequest blocks for the next non-blank message. The type and id are
// peeked without decoding the payload; a request without an id gets a UUID.
// A malformed message returns the partial request (with its id) and an error
// wrapping errMalformedMessage; any other error means the session is over.
func (c *WebSocketClient) ReadRequest() (wsRequest, error) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return wsRequest{}, err
		}
		if len(bytes.TrimSpace(message)) == 0 {
			continue
		}
		return parseRequest(message)
	}
}

func parseRequest(message []byte) (wsRequest, error) {
	req := wsRequest{ID: uuid.NewString()}
	if !gjson.ValidBytes(message) {
		return req, errMalformedMessage
	}

	fields := gjson.GetManyBytes(message, "type", "id", "payload")
	if id := fields[1]; id.Exists() && id.String() != "" {
		req.ID = id.String()
	}
	if fields[0].Type != gjson.String || fields[0].Str == "" {
		return req, errMalformedMessage
	}
	req.Type = fields[0].Str
	if fields[2].Exists() {
		req.Payload = []byte(fields[2].Raw)
	}
	return req, nil
}

// WriteReply sends reply as a JSON text message. Safe for concurrent use.
func (c *WebSocketClient) WriteReply(reply wsReply) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(reply)
}

// CloseWithReason sends a close frame carrying reason before closing.
func (c *WebSocketClient) CloseWithReason(code int, reason string) error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Close closes the connection.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
