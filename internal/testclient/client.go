// Package testclient drives a running advisor over its WebSocket channel and
// HTTP API for integration tests.
package testclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Reply is one message received from the server.
type Reply struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Stage  string          `json:"stage,omitempty"`
}

// Decode unmarshals the reply result into v.
func (r Reply) Decode(v any) error {
	if len(r.Result) == 0 {
		return fmt.Errorf("reply %s has no result", r.ID)
	}
	return json.Unmarshal(r.Result, v)
}

// TestClient represents a test client connection to the advisor
type TestClient struct {
	Name    string
	BaseURL string
	conn    *websocket.Conn
	http    *http.Client
	replies []Reply
	mu      sync.Mutex
	writeMu sync.Mutex
	done    chan struct{}
	nextID  atomic.Uint64
}

// WebSocketURL converts an http(s) base URL into the advisor's ws(s) endpoint.
func WebSocketURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// NewTestClient connects to the advisor at baseURL (http://host:port).
func NewTestClient(name, baseURL string) (*TestClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(WebSocketURL(baseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name:    name,
		BaseURL: strings.TrimRight(baseURL, "/"),
		conn:    conn,
		http:    &http.Client{Timeout: 30 * time.Second},
		replies: make([]Reply, 0),
		done:    make(chan struct{}),
	}

	// Start reading messages in background
	go client.readMessages()

	return client, nil
}

// NewHTTPClient returns a client for the HTTP API only.
func NewHTTPClient(baseURL string) *TestClient {
	return &TestClient{
		Name:    "http",
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// readMessages continuously reads replies from the server
func (c *TestClient) readMessages() {
	defer close(c.done)
	for {
		var reply Reply
		if err := c.conn.ReadJSON(&reply); err != nil {
			return
		}
		c.mu.Lock()
		c.replies = append(c.replies, reply)
		c.mu.Unlock()
	}
}

// Send writes a request and returns its id.
func (c *TestClient) Send(requestType string, payload any) (string, error) {
	id := fmt.Sprintf("%s-%d", c.Name, c.nextID.Add(1))
	return id, c.SendRaw(map[string]any{"type": requestType, "id": id, "payload": payload})
}

// SendRaw writes v as a single JSON message.
func (c *TestClient) SendRaw(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Request sends a request and waits for its reply.
func (c *TestClient) Request(requestType string, payload any, timeout time.Duration) (Reply, error) {
	id, err := c.Send(requestType, payload)
	if err != nil {
		return Reply{}, err
	}
	reply, ok := c.WaitForReply(id, timeout)
	if !ok {
		return Reply{}, fmt.Errorf("no reply to %s %s within %v", requestType, id, timeout)
	}
	return reply, nil
}

// GetReplies returns all replies received so far
func (c *TestClient) GetReplies() []Reply {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]Reply, len(c.replies))
	copy(result, c.replies)
	return result
}

// ClearReplies clears the reply buffer
func (c *TestClient) ClearReplies() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = make([]Reply, 0)
}

// WaitForReply waits for the reply with the given id (with timeout)
func (c *TestClient) WaitForReply(id string, timeout time.Duration) (Reply, bool) {
	return c.waitFor(func(r Reply) bool { return r.ID == id }, timeout)
}

// WaitForType waits for any reply of the given type (with timeout)
func (c *TestClient) WaitForType(replyType string, timeout time.Duration) (Reply, bool) {
	return c.waitFor(func(r Reply) bool { return r.Type == replyType }, timeout)
}

func (c *TestClient) waitFor(match func(Reply) bool, timeout time.Duration) (Reply, bool) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		for _, r := range c.GetReplies() {
			if match(r) {
				return r, true
			}
		}
		select {
		case <-c.done:
			// connection gone, one last look
			for _, r := range c.GetReplies() {
				if match(r) {
					return r, true
				}
			}
			return Reply{}, false
		case <-time.After(20 * time.Millisecond):
		}
	}

	return Reply{}, false
}

// Closed reports whether the server has closed the connection.
func (c *TestClient) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close closes the client connection
func (c *TestClient) Close() error {
	if c.conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// HTTPResponse is a decoded API response.
type HTTPResponse struct {
	Status int
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r HTTPResponse) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Do sends an HTTP request to the advisor API. A non-empty username adds
// basic credentials.
func (c *TestClient) Do(method, path string, body any, username, password string) (HTTPResponse, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return HTTPResponse{}, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return HTTPResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if username != "" {
		req.SetBasicAuth(username, password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return HTTPResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTTPResponse{}, err
	}
	return HTTPResponse{Status: resp.StatusCode, Body: raw}, nil
}

// PrintReplies prints all replies (for debugging)
func (c *TestClient) PrintReplies() {
	fmt.Printf("\n=== Replies for %s ===\n", c.Name)
	for i, r := range c.GetReplies() {
		fmt.Printf("[%d] %s %s error=%q %s\n", i, r.ID, r.Type, r.Error, r.Result)
	}
	fmt.Println("======================")
}
