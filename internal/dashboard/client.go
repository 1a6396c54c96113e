// Package dashboard is a minimal Socket.IO v4 client used to push attendance
// events to the dashboard server. Only the websocket transport is supported.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/face-attendance/internal/logger"
)

const defaultWriteTimeout = 5 * time.Second

// Client is a connected Socket.IO client. Emit is safe for concurrent use;
// frames are written in call order.
type Client struct {
	conn         *websocket.Conn
	namespace    string
	writeTimeout time.Duration
	logger       *slog.Logger

	// Read deadline extension after each server packet.
	keepalive time.Duration
	sid       string

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	readDone  chan struct{}
}

// Dial connects to the dashboard and completes the Engine.IO and Socket.IO
// handshakes. The context bounds the whole connection attempt.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	c := &Client{
		namespace:    "/",
		writeTimeout: defaultWriteTimeout,
		done:         make(chan struct{}),
		readDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrDiscard(c.logger)

	endpoint, err := websocketURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	c.conn = conn

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	go c.readLoop()
	c.logger.Info("dashboard connected", "url", rawURL, "sid", c.sid)
	return c, nil
}

func (c *Client) handshake() error {
	// Engine.IO open.
	msg, err := c.readText()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if len(msg) == 0 || msg[0] != eioOpen {
		return fmt.Errorf("%w: expected open packet, got %q", ErrHandshake, msg)
	}
	var open openPayload
	if err := json.Unmarshal(msg[1:], &open); err != nil {
		return fmt.Errorf("%w: invalid open packet: %v", ErrHandshake, err)
	}
	c.sid = open.SID
	if open.PingInterval > 0 {
		c.keepalive = time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
	}

	// Namespace connect.
	if err := c.write(connectFrame(c.namespace)); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	prefix := nsPrefix(c.namespace)
	for {
		msg, err := c.readText()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		switch {
		case len(msg) == 1 && msg[0] == eioPing:
			if err := c.write([]byte{eioPong}); err != nil {
				return fmt.Errorf("%w: %v", ErrHandshake, err)
			}
		case bytes.HasPrefix(msg, append([]byte{eioMessage, sioConnect}, prefix...)):
			c.extendDeadline()
			return nil
		case bytes.HasPrefix(msg, append([]byte{eioMessage, sioConnectError}, prefix...)):
			return fmt.Errorf("%w: namespace %s refused: %s", ErrHandshake, c.namespace, msg[2+len(prefix):])
		default:
			c.logger.Debug("ignoring packet during handshake", "packet", string(msg))
		}
	}
}

// readLoop answers pings and watches for server-side disconnects until the
// connection is closed.
func (c *Client) readLoop() {
	defer close(c.readDone)
	defer c.shutdown()

	for {
		msg, err := c.readText()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("dashboard connection lost", "error", err)
			}
			return
		}
		c.extendDeadline()

		if len(msg) == 0 {
			continue
		}
		switch msg[0] {
		case eioPing:
			if err := c.write([]byte{eioPong}); err != nil {
				c.logger.Warn("failed to answer ping", "error", err)
				return
			}
		case eioClose:
			c.logger.Info("dashboard closed the connection")
			return
		case eioMessage:
			if len(msg) > 1 && msg[1] == sioDisconnect {
				c.logger.Info("dashboard disconnected the namespace", "namespace", c.namespace)
				return
			}
		}
	}
}

// Emit sends a Socket.IO event. It does not wait for an acknowledgement.
func (c *Client) Emit(event string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	frame, err := encodeEvent(c.namespace, event, payload)
	if err != nil {
		return err
	}
	if err := c.write(frame); err != nil {
		return fmt.Errorf("failed to emit %s: %w", event, err)
	}
	return nil
}

// Close disconnects from the namespace and closes the websocket. Closing a
// connection the server already dropped is not an error.
func (c *Client) Close() error {
	select {
	case <-c.done:
		<-c.readDone
		return nil
	default:
	}

	err := c.write(disconnectFrame(c.namespace))
	c.writeMu.Lock()
	ctrlErr := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.shutdown()
	<-c.readDone

	if err == nil {
		err = ctrlErr
	}
	if err != nil && !isClosed(err) {
		return fmt.Errorf("closing dashboard connection: %w", err)
	}
	return nil
}

// isClosed reports errors caused by the connection already being torn down.
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent)
}

// Done is closed once the connection is no longer usable.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) readText() ([]byte, error) {
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage {
			return msg, nil
		}
	}
}

func (c *Client) extendDeadline() {
	if c.keepalive > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.keepalive))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}
}
