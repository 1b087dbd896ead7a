package socket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/variant64/client/internal/entity"
)

// State of the single connection a Client owns.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ErrUnavailable is returned by Send while the connection is not open.
var ErrUnavailable = errors.New("socket: connection is not open")

// Listener receives every decoded inbound message. Listeners inspect
// the update's channel themselves and ignore messages they do not own.
type Listener func(entity.Update)

type namedListener struct {
	name string
	fn   Listener
}

// Client owns exactly one websocket connection. It starts connecting as
// soon as it is created; a closed connection stays closed until the
// owning session builds a new Client.
type Client struct {
	url   string
	state atomic.Int32

	mu        sync.Mutex
	conn      *websocket.Conn
	listeners []namedListener

	ready chan struct{}
}

// New creates a Client and immediately begins connecting to url in the
// background.
func New(url string) *Client {
	c := &Client{
		url:   url,
		ready: make(chan struct{}),
	}
	go c.connect()
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Ready is closed once the connect attempt has finished, whether it
// ended up open or closed.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

func (c *Client) connect() {
	defer close(c.ready)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	klog.V(1).Infof("SocketClient: connecting to %s", c.url)
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		klog.Errorf("SocketClient: dial %s failed: %v", c.url, err)
		c.state.Store(int32(StateClosed))
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.state.Store(int32(StateOpen))
	klog.Infof("SocketClient: connection established")

	go c.readLoop(conn)
}

// Send serializes the command to a single text frame. It is valid only
// while the connection is open; otherwise it reports ErrUnavailable
// without transmitting anything, since callers may race the handshake.
func (c *Client) Send(cmd entity.Command) error {
	if c.State() != StateOpen {
		klog.V(1).Infof("SocketClient: dropping %s %s command, connection is %s", cmd.Channel, cmd.Command, c.State())
		return ErrUnavailable
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to marshal command")
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	klog.V(1).Infof("[WEB_SOCKET_COMMAND] %s %s", cmd.Channel, cmd.Command)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return errors.Wrap(err, "failed to write command")
	}
	return nil
}

// Subscribe registers a named listener for all inbound messages.
// Registering under an existing name replaces that listener in place;
// delivery order follows first registration order.
func (c *Client) Subscribe(name string, fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, l := range c.listeners {
		if l.name == name {
			c.listeners[i].fn = fn
			return
		}
	}
	c.listeners = append(c.listeners, namedListener{name: name, fn: fn})
}

func (c *Client) readLoop(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				klog.Infof("SocketClient: connection closed cleanly")
			default:
				klog.Errorf("SocketClient: read error: %v", err)
			}
			c.state.Store(int32(StateClosed))
			return
		}

		update := entity.Update{}
		if err := json.Unmarshal(data, &update); err != nil {
			// A corrupt frame must not reach listeners or kill the
			// connection.
			klog.Errorf("SocketClient: dropping malformed frame: %v", err)
			continue
		}

		c.mu.Lock()
		listeners := make([]namedListener, len(c.listeners))
		copy(listeners, c.listeners)
		c.mu.Unlock()

		for _, l := range listeners {
			l.fn(update)
		}
	}
}

// Close tears the connection down. The client is not reusable after.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	c.state.Store(int32(StateClosed))
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "bye")
}
