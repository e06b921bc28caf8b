// Package livefeed maintains a single persistent WebSocket subscription and
// hands every text frame to a Handler. Lost connections are re-dialed after a
// fixed delay for as long as the channel runs.
package livefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrStopped is returned by Start once the channel has been stopped.
var ErrStopped = errors.New("live channel stopped")

// State is the connection state of a Channel.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handler processes one text frame. A returned error drops the frame only.
type Handler interface {
	HandleMessage(msg []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg []byte) error

// HandleMessage calls f(msg).
func (f HandlerFunc) HandleMessage(msg []byte) error { return f(msg) }

// Config configures a Channel.
type Config struct {
	// URL is the ws:// or wss:// endpoint.
	URL string
	// Subscribe frames are written after every successful dial.
	Subscribe [][]byte
	// ReconnectDelay is the fixed wait between a failure and the next dial.
	ReconnectDelay time.Duration
	// PingInterval is the keepalive period.
	PingInterval time.Duration
	// ReadTimeout is how long the connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the production timings for url.
func DefaultConfig(url string, subscribe ...[]byte) Config {
	return Config{
		URL:              url,
		Subscribe:        subscribe,
		ReconnectDelay:   30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

func (c *Config) withDefaults() {
	d := DefaultConfig(c.URL)
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
}

// Channel owns at most one live connection at a time.
type Channel struct {
	cfg     Config
	handler Handler
	logger  logrus.FieldLogger
	dialer  *websocket.Dialer

	state   atomic.Int32
	dials   atomic.Int64
	onState func(State)

	mu      sync.Mutex
	conn    *websocket.Conn
	started bool
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a stopped channel. A nil logger uses the logrus standard logger.
func New(cfg Config, handler Handler, logger logrus.FieldLogger) *Channel {
	cfg.withDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Channel{
		cfg:     cfg,
		handler: handler,
		logger:  logger.WithField("component", "livefeed"),
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		done:    make(chan struct{}),
	}
}

// OnStateChange registers fn to be called on every transition.
// It must be called before Start.
func (c *Channel) OnStateChange(fn func(State)) {
	c.onState = fn
}

// State returns the current connection state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Dials returns the number of connection attempts made so far.
func (c *Channel) Dials() int64 {
	return c.dials.Load()
}

// Start launches the connection loop. Calling Start on a running channel is a
// no-op; calling it after Stop returns ErrStopped. Cancelling ctx stops the channel.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return nil
	}
	c.started = true

	c.wg.Add(1)
	go c.run()

	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-c.done:
		}
	}()
	return nil
}

// Stop closes the live connection, cancels a pending reconnect and waits for
// the loop to exit. It is safe to call more than once.
func (c *Channel) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.wg.Wait()
		return
	}
	c.stopped = true
	close(c.done)
	if c.conn != nil {
		deadline := time.Now().Add(c.cfg.WriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.conn.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.setState(StateDisconnected)
}

func (c *Channel) run() {
	defer c.wg.Done()

	for {
		if c.isStopped() {
			return
		}

		c.setState(StateConnecting)
		conn, err := c.dial()
		if err != nil {
			c.logger.Warnf("dial %s failed: %v", c.cfg.URL, err)
		} else {
			c.serve(conn)
		}

		c.setState(StateDisconnected)
		if c.isStopped() {
			return
		}
		c.logger.Infof("reconnecting in %s", c.cfg.ReconnectDelay)

		timer := time.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Channel) dial() (*websocket.Conn, error) {
	c.dials.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		_ = conn.Close()
		return nil, ErrStopped
	}
	c.conn = conn
	return conn, nil
}

// serve subscribes and reads until the connection fails or is closed by Stop.
func (c *Channel) serve(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for _, frame := range c.cfg.Subscribe {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.logger.Warnf("write subscribe frame: %v", err)
			return
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	c.setState(StateConnected)
	c.logger.Infof("connected to %s", c.cfg.URL)

	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.ping(conn, pingDone)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !c.isStopped() {
				c.logger.Warnf("connection lost: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		if msgType != websocket.TextMessage {
			continue
		}
		if err := c.handler.HandleMessage(msg); err != nil {
			c.logger.Warnf("drop frame: %v", err)
		}
	}
}

func (c *Channel) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debugf("ping failed: %v", err)
				return
			}
		}
	}
}

func (c *Channel) isStopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Channel) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.onState != nil {
		c.onState(s)
	}
}
