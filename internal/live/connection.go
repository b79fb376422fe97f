// Package live owns the single real-time connection a session keeps to the
// chat backend and the ordering of its frames against room history.
package live

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"chat-app/internal/client"
	"chat-app/internal/dto"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	default:
		return "CLOSED"
	}
}

const (
	readLimit        = 512 * 1024
	defaultKeepAlive = 30 * time.Second
	writeWait        = 10 * time.Second
)

type Config struct {
	// URL is the live endpoint, e.g. ws://localhost:8080/ws.
	URL              string
	HandshakeTimeout time.Duration
	// QueryToken also places the token in the query string for backends
	// that cannot read handshake headers.
	QueryToken bool
	KeepAlive  time.Duration
	Metrics    *client.Metrics
}

// DropFunc is called when the current connection ends without Close being
// called. err is nil for a normal close from the server.
type DropFunc func(roomID int64, err error)

// Connection is at most one live socket. Every Open starts a new generation;
// frames, state changes and drop callbacks from older generations are ignored.
type Connection struct {
	cfg    Config
	sink   Sink
	onDrop DropFunc
	dialer *websocket.Dialer

	mu    sync.Mutex
	state State
	gen   uint64
	cur   *conn
}

type conn struct {
	ws     *websocket.Conn
	roomID int64
	gen    uint64

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(cfg Config, sink Sink, onDrop DropFunc) *Connection {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = defaultKeepAlive
	}

	return &Connection{
		cfg:    cfg,
		sink:   sink,
		onDrop: onDrop,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation is the number of the most recent Open or Close.
func (c *Connection) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// RoomID is the room of the current socket, or 0 when none is open.
func (c *Connection) RoomID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return 0
	}
	return c.cur.roomID
}

// Open replaces any existing socket with one scoped to roomID. It returns the
// generation of the new socket.
func (c *Connection) Open(ctx context.Context, roomID int64, token string) (uint64, error) {
	const op = "live.open"

	target, err := c.dialURL(roomID, token)
	if err != nil {
		return 0, client.NewError(client.ErrorCodeValidation, op, "invalid live url", err)
	}

	c.mu.Lock()
	prev := c.cur
	c.cur = nil
	c.gen++
	gen := c.gen
	c.setState(StateConnecting)
	c.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := c.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.setState(StateClosed)
		}
		c.mu.Unlock()
		return gen, dialError(op, resp, err)
	}

	cn := &conn{ws: ws, roomID: roomID, gen: gen, done: make(chan struct{})}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		cn.close()
		return gen, client.NewError(client.ErrorCodeTransport, op, "superseded by a newer connection", nil)
	}
	c.cur = cn
	c.setState(StateOpen)
	c.mu.Unlock()

	log.Debug().Int64("room_id", roomID).Uint64("generation", gen).Msg("live connection open")

	go c.readLoop(cn)
	go c.keepAlive(cn)
	return gen, nil
}

// Send writes one outbound message on the open socket.
func (c *Connection) Send(ctx context.Context, content string) error {
	const op = "live.send"

	c.mu.Lock()
	cn := c.cur
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || cn == nil {
		return client.NewError(client.ErrorCodeProtocol, op, "live connection is not open", nil)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	cn.writeMu.Lock()
	defer cn.writeMu.Unlock()

	if err := cn.ws.SetWriteDeadline(deadline); err != nil {
		return client.NewError(client.ErrorCodeTransport, op, "set write deadline", err)
	}
	if err := cn.ws.WriteJSON(dto.OutboundFrame{Content: content}); err != nil {
		return client.NewError(client.ErrorCodeTransport, op, "write failed", err)
	}
	return nil
}

// Close ends the current socket, if any. It does not trigger the drop callback.
func (c *Connection) Close() {
	c.mu.Lock()
	cn := c.cur
	c.cur = nil
	c.gen++
	c.setState(StateClosed)
	c.mu.Unlock()

	if cn != nil {
		cn.close()
	}
}

func (c *Connection) readLoop(cn *conn) {
	defer cn.shutdown()

	cn.ws.SetReadLimit(readLimit)

	for {
		_, data, err := cn.ws.ReadMessage()
		if err != nil {
			c.finish(cn, err)
			return
		}

		payload, err := DecodeFrame(data)
		if err != nil {
			log.Warn().Err(err).Int64("room_id", cn.roomID).Msg("dropping live frame")
			c.cfg.Metrics.FrameReceived("dropped")
			continue
		}

		c.cfg.Metrics.FrameReceived("accepted")
		c.sink.Deliver(Frame{
			Generation: cn.gen,
			RoomID:     cn.roomID,
			Payload:    payload,
			ReceivedAt: time.Now(),
		})
	}
}

func (c *Connection) finish(cn *conn, err error) {
	c.mu.Lock()
	current := c.cur == cn
	if current {
		c.cur = nil
		c.setState(StateClosed)
	}
	c.mu.Unlock()

	if !current {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = nil
	}
	if err != nil {
		err = client.NewError(client.ErrorCodeTransport, "live.read", "connection lost", err)
	}

	log.Debug().Err(err).Int64("room_id", cn.roomID).Uint64("generation", cn.gen).Msg("live connection ended")
	if c.onDrop != nil {
		c.onDrop(cn.roomID, err)
	}
}

func (c *Connection) keepAlive(cn *conn) {
	ticker := time.NewTicker(c.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-cn.done:
			return
		case <-ticker.C:
			if err := cn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Int64("room_id", cn.roomID).Msg("ping failed")
				return
			}
		}
	}
}

// setState must be called with c.mu held.
func (c *Connection) setState(s State) {
	c.state = s
	c.cfg.Metrics.SetLiveState(int(s))
}

func (c *Connection) dialURL(roomID int64, token string) (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", errors.New("live url must be ws or wss")
	}

	q := u.Query()
	q.Set("chatroom_id", strconv.FormatInt(roomID, 10))
	if c.cfg.QueryToken {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func dialError(op string, resp *http.Response, err error) error {
	if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
		ce := client.NewError(client.ErrorCodeRejected, op, "handshake rejected", err)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			ce.Code = client.ErrorCodeUnauthorized
		}
		ce.StatusCode = resp.StatusCode
		return ce
	}
	return client.NewError(client.ErrorCodeTransport, op, "dial failed", err)
}

func (cn *conn) close() {
	cn.writeMu.Lock()
	_ = cn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	cn.writeMu.Unlock()
	cn.shutdown()
}

func (cn *conn) shutdown() {
	cn.closeOnce.Do(func() {
		close(cn.done)
		cn.ws.Close()
	})
}
