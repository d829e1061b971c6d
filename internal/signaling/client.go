package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PingInterval is how often the client sends an application heartbeat.
	PingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

// ErrClientClosed is returned by sends after Close.
var ErrClientClosed = errors.New("signaling client closed")

// Handler callbacks for incoming signaling messages.
type Handler struct {
	OnRegistered        func()
	OnOffer             func(from string, payload json.RawMessage)
	OnAnswer            func(from string, payload json.RawMessage)
	OnICECandidate      func(from string, payload json.RawMessage)
	OnPublishersUpdated func(list []PublisherInfo)
	OnPublisherGone     func(publisherID string)
	OnError             func(msg string)
	// OnDisconnected runs once when the connection drops or is closed.
	OnDisconnected func(err error)
}

// Client is a WebSocket signaling client.
type Client struct {
	url     string
	id      string
	role    string
	handler Handler
	logger  *zap.Logger

	writeMu   sync.Mutex
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a signaling client.
func NewClient(url, id, role string, handler Handler, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:     url,
		id:      id,
		role:    role,
		handler: handler,
		logger:  logger.Named("signaling").With(zap.String("id", id)),
		done:    make(chan struct{}),
	}
}

// ID returns the id the client registers with.
func (c *Client) ID() string { return c.id }

// Connect dials the signaling server, registers and starts reading messages.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("signaling dial: %w", err)
	}
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	if err := c.send(Message{Type: TypeRegister, ID: c.id, Role: c.role}); err != nil {
		conn.Close()
		return fmt.Errorf("signaling register: %w", err)
	}
	c.logger.Info("connected", zap.String("url", c.url), zap.String("role", c.role))

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Close shuts down the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// Done is closed once the client shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

// SendOffer sends an SDP offer to target.
func (c *Client) SendOffer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeOffer, Target: target, Payload: payload})
}

// SendAnswer sends an SDP answer to target.
func (c *Client) SendAnswer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeAnswer, Target: target, Payload: payload})
}

// SendICECandidate sends an ICE candidate to target.
func (c *Client) SendICECandidate(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeICECandidate, Target: target, Payload: payload})
}

// RequestPublishers asks the server for the online publishers.
func (c *Client) RequestPublishers() error {
	return c.send(Message{Type: TypeListPublishers})
}

func (c *Client) send(msg Message) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errors.New("signaling client not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	var readErr error
	defer func() {
		c.Close()
		if c.handler.OnDisconnected != nil {
			c.handler.OnDisconnected(readErr)
		}
	}()
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("signaling read error", zap.Error(err))
				readErr = err
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	h := c.handler
	switch msg.Type {
	case TypeRegistered:
		if h.OnRegistered != nil {
			h.OnRegistered()
		}
	case TypeOffer:
		relay(h.OnOffer, msg)
	case TypeAnswer:
		relay(h.OnAnswer, msg)
	case TypeICECandidate:
		relay(h.OnICECandidate, msg)
	case TypePublishers, TypePublishersUpdated:
		if h.OnPublishersUpdated != nil {
			h.OnPublishersUpdated(msg.List)
		}
	case TypePublisherGone:
		if h.OnPublisherGone != nil {
			h.OnPublisherGone(msg.Publisher)
		}
	case TypeError:
		c.logger.Warn("server error", zap.String("message", msg.Msg))
		if h.OnError != nil {
			h.OnError(msg.Msg)
		}
	case TypePong:
	default:
		c.logger.Debug("ignoring signaling message", zap.String("type", msg.Type))
	}
}

// relay hands a peer-to-peer message to its callback.
func relay(fn func(from string, payload json.RawMessage), msg Message) {
	if fn != nil {
		fn(msg.From, msg.Payload)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.send(Message{Type: TypePing, Timestamp: time.Now().UnixMilli()}); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
			}
		}
	}
}
