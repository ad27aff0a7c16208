// Package transport is a framed request/response client for talking to a
// document host, with server-pushed events.
//
// Messages use Content-Length framing. Bodies are JSON or msgpack, named by
// the Content-Type header of each frame.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowedit/logging"
)

// DefaultTimeout bounds every Call unless overridden with WithTimeout.
const DefaultTimeout = 30 * time.Second

var (
	ErrTimeout = errors.New("transport: call timed out")
	ErrClosed  = errors.New("transport: connection closed")
)

// Error is an error payload returned by the host.
type Error struct {
	Code    int    `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport error %d: %s", e.Code, e.Message)
}

// Params is the still-encoded payload of an event.
type Params struct {
	codec Codec
	raw   []byte
}

// Decode unmarshals the payload into v.
func (p Params) Decode(v any) error {
	if len(p.raw) == 0 {
		return nil
	}
	return p.codec.Unmarshal(p.raw, v)
}

// Handler receives a pushed event. Handlers run on the read loop and must
// not block.
type Handler func(Params)

// Option configures a Client.
type Option func(*Client)

// WithCodec sets the codec used for outgoing messages.
func WithCodec(codec Codec) Option {
	return func(c *Client) { c.codec = codec }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

type reply struct {
	codec Codec
	frame frame
}

// Client sends calls and dispatches events over one connection. Run must
// be running for calls to complete.
type Client struct {
	conn    io.ReadWriteCloser
	reader  *bufio.Reader
	codec   Codec
	timeout time.Duration
	logger  *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan reply
	handlers map[string]Handler
	closed   bool
}

// NewClient wraps an established connection.
func NewClient(conn io.ReadWriteCloser, opts ...Option) *Client {
	c := &Client{
		conn:     conn,
		reader:   bufio.NewReader(conn),
		codec:    JSON,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.DiscardHandler),
		pending:  make(map[string]chan reply),
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to addr. Addresses starting with "unix:" name a socket
// path; anything else is a TCP host:port.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	network := "tcp"
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		network, addr = "unix", path
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn, opts...), nil
}

// On registers the handler for an event. A later registration for the same
// event replaces the earlier one.
func (c *Client) On(event string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// Call sends a request and waits for its response. result may be nil. On
// timeout the request is forgotten and ErrTimeout returned; a late response
// is dropped.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	id := uuid.New().String()
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.send(outgoing{ID: id, Method: method, Params: params}); err != nil {
		c.forget(id)
		return fmt.Errorf("%s: %w", method, err)
	}
	logging.LogWith(ctx, c.logger).Debug("call sent", "method", method, "id", id)

	select {
	case r, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if r.frame.err != nil {
			return r.frame.err
		}
		if result == nil || len(r.frame.result) == 0 {
			return nil
		}
		if err := r.codec.Unmarshal(r.frame.result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		c.forget(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", method, ErrTimeout)
		}
		return ctx.Err()
	}
}

// Run reads messages until the connection fails or ctx is cancelled. It
// closes the client on return. A clean end of stream returns nil.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()
	defer c.Close()

	for {
		payload, contentType, err := readMessage(c.reader)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		codec, ok := codecForContentType(contentType)
		if !ok {
			codec = c.codec
		}
		f, err := codec.decodeFrame(payload)
		if err != nil {
			c.logger.Warn("dropping undecodable message", "error", err)
			continue
		}
		c.dispatch(codec, f)
	}
}

// Close closes the connection and fails pending calls with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]chan reply)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	return c.conn.Close()
}

func (c *Client) dispatch(codec Codec, f frame) {
	if f.id != "" && f.method == "" {
		c.mu.Lock()
		ch, ok := c.pending[f.id]
		delete(c.pending, f.id)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("dropping response for unknown call", "id", f.id)
			return
		}
		ch <- reply{codec: codec, frame: f}
		return
	}

	c.mu.Lock()
	handler, ok := c.handlers[f.method]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("no handler for event", "event", f.method)
		return
	}
	handler(Params{codec: codec, raw: f.params})
}

func (c *Client) send(msg outgoing) error {
	payload, err := c.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeMessage(c.conn, c.codec.ContentType(), payload)
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
