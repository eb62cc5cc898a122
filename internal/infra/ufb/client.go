package ufb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// ErrNotConnected is returned when a frame is sent while the socket is down
var ErrNotConnected = errors.New("ufb: not connected")

// State is the connection state of the sync socket
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSyncing:
		return "syncing"
	}
	return "unknown"
}

// PushHandler receives documents pushed by the remote peer
type PushHandler func(ctx context.Context, payload []byte)

// ConnectHandler runs after every successful connect, before frames are read
type ConnectHandler func(ctx context.Context)

const maxReconnectDelay = 60 * time.Second

// Client keeps a websocket open to the sync server.
// A down socket is a normal state: pushes are skipped until it reconnects.
type Client struct {
	url            string
	token          string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	log            *zap.Logger

	state atomic.Int32
	// documents being read or written; the state is Syncing while non-zero
	syncing atomic.Int32

	// connMu guards conn and serializes writes
	connMu sync.Mutex
	conn   *websocket.Conn

	onPush    PushHandler
	onConnect ConnectHandler
}

// Option configures a Client
type Option func(*Client)

// WithReconnectDelay sets the initial reconnect backoff
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// WithDialer replaces the websocket dialer
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// NewClient creates a sync client. The URL is normalized to a ws(s) scheme.
func NewClient(serverURL, token string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		url:            NormalizeURL(serverURL),
		token:          token,
		reconnectDelay: 5 * time.Second,
		dialer:         websocket.DefaultDialer,
		log:            log.Named("ufb"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeURL maps http(s) and bare host URLs onto websocket schemes
func NormalizeURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "ws://"), strings.HasPrefix(raw, "wss://"):
		return raw
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimPrefix(raw, "http://")
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://")
	}
	return "wss://" + raw
}

// OnPush sets the handler for remote pushes
func (c *Client) OnPush(h PushHandler) {
	c.onPush = h
}

// OnConnect sets the handler run on every (re)connect
func (c *Client) OnConnect(h ConnectHandler) {
	c.onConnect = h
}

// State returns the current connection state
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	if prev := State(c.state.Swap(int32(s))); prev != s {
		c.log.Debug("state changed", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// transition moves from one state to another, a no-op when the state has moved on
func (c *Client) transition(from, to State) {
	if c.state.CompareAndSwap(int32(from), int32(to)) {
		c.log.Debug("state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	}
}

func (c *Client) beginSync() {
	if c.syncing.Add(1) == 1 {
		c.transition(StateConnected, StateSyncing)
	}
}

func (c *Client) endSync() {
	if c.syncing.Add(-1) == 0 {
		c.transition(StateSyncing, StateConnected)
	}
}

// IsConnected reports whether frames can be written
func (c *Client) IsConnected() bool {
	s := c.State()
	return s == StateConnected || s == StateSyncing
}

// Start connects and serves the socket until ctx is done, reconnecting with backoff
func (c *Client) Start(ctx context.Context) error {
	delay := c.reconnectDelay
	for {
		err := c.connect(ctx)
		if err == nil {
			delay = c.reconnectDelay
			if c.onConnect != nil {
				c.onConnect(ctx)
			}
			err = c.readLoop(ctx)
		}
		c.closeConn()
		c.setState(StateDisconnected)

		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("connection lost", zap.Error(err), zap.Duration("retry_in", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if delay *= 2; delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.setState(StateConnected)
	c.log.Info("connected", zap.String("url", c.url))
	return nil
}

func (c *Client) readLoop(ctx context.Context) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !isConfigPush(payload) {
			c.log.Debug("ignoring frame", zap.Int("bytes", len(payload)))
			continue
		}
		if c.onPush == nil {
			continue
		}

		c.beginSync()
		c.onPush(ctx, payload)
		c.endSync()
	}
}

// isConfigPush reports whether a frame carries a configuration document
func isConfigPush(payload []byte) bool {
	if !gjson.ValidBytes(payload) {
		return false
	}
	if gjson.GetBytes(payload, "additional_info").String() == "to_server" {
		return false
	}
	return gjson.GetBytes(payload, "userConfig").Exists() || gjson.GetBytes(payload, "globalConfig").Exists()
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Send writes one text frame
func (c *Client) Send(ctx context.Context, frame []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil || !c.IsConnected() {
		return ErrNotConnected
	}

	c.beginSync()
	defer c.endSync()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// PushUpdate sends the full document as an update frame
func (c *Client) PushUpdate(ctx context.Context, doc []byte) error {
	frame, err := UpdateFrame(doc)
	if err != nil {
		return err
	}
	return c.Send(ctx, frame)
}

// UpdateFrame wraps a document into the outbound update frame
func UpdateFrame(doc []byte) ([]byte, error) {
	frame, err := sjson.SetBytes(doc, "additional_info", "to_server")
	if err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}
	if frame, err = sjson.SetBytes(frame, "type", "update"); err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}
	return frame, nil
}

// Stop closes the socket
func (c *Client) Stop() {
	c.closeConn()
	c.setState(StateDisconnected)
}
