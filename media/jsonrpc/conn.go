// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go.kurento.org/media/interop"
	"go.kurento.org/media/invariant"
	"go.kurento.org/media/mediaerror"
)

// Options tune the websocket keepalive.
type Options struct {
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	Header       http.Header
}

// DefaultOptions ...
func DefaultOptions() Options {
	return Options{
		PingInterval: 20 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
	}
}

// Conn is an interop.Transport over one websocket connection. Inbound
// frames are handled on a single read goroutine, in wire order.
type Conn struct {
	ws   *websocket.Conn
	opts Options

	writeMu sync.Mutex

	mutex     sync.Mutex
	receiver  interop.Receiver
	sessionID string

	group   *errgroup.Group
	cancel  context.CancelFunc
	closing atomic.Bool
	once    sync.Once
}

var _ interop.Transport = (*Conn)(nil)

// Dial opens a websocket to url.
func Dial(ctx context.Context, url string, opts Options) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, opts.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewConn(ws, opts), nil
}

// NewConn wraps an established websocket.
func NewConn(ws *websocket.Conn, opts Options) *Conn {
	defaults := DefaultOptions()
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaults.PingInterval
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaults.PongWait
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaults.WriteWait
	}
	return &Conn{ws: ws, opts: opts}
}

// SessionID is the media server session learned from the first response.
func (c *Conn) SessionID() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.sessionID
}

// Bind starts the read and keepalive loops, feeding receiver.
func (c *Conn) Bind(receiver interop.Receiver) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.receiver != nil {
		return interop.ErrAlreadyBound
	}
	if c.closing.Load() {
		return interop.ErrTransportClosed
	}
	c.receiver = receiver

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(receiver) })
	g.Go(func() error { return c.pingLoop(ctx) })
	c.group = g
	return nil
}

// Send writes op as request id. It does not wait for the answer.
func (c *Conn) Send(ctx context.Context, id interop.RequestID, op interop.Operation) error {
	if c.closing.Load() {
		return interop.ErrTransportClosed
	}

	params, err := c.stampParams(op)
	if err != nil {
		return fmt.Errorf("encode %s params: %w", op.Method, err)
	}
	rid := uint64(id)
	req := &Request{JSONRPC: Version, ID: &rid, Method: string(op.Method), Params: params}

	deadline := time.Now().Add(c.opts.WriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.ws.WriteJSON(req); err != nil {
		return fmt.Errorf("write %s: %w", op.Method, err)
	}
	return nil
}

func (c *Conn) stampParams(op interop.Operation) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if op.Params != nil {
		raw, err := json.Marshal(op.Params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	if sessionID := c.SessionID(); sessionID != "" && op.Method != interop.MethodPing {
		raw, _ := json.Marshal(sessionID)
		fields["sessionId"] = raw
	}
	return json.Marshal(fields)
}

func (c *Conn) readLoop(receiver interop.Receiver) error {
	c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if c.closing.Load() {
				return nil
			}
			log.WithError(err).Warn("Media server connection lost")
			receiver.ConnectionLost(err)
			return err
		}
		c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		c.handle(receiver, msg)
	}
}

func (c *Conn) handle(receiver interop.Receiver, msg []byte) {
	frame, err := ParseFrame(msg)
	if err != nil {
		invariant.Violatef(mediaerror.MalformedMessage, "discarding frame: %v", err)
		return
	}

	switch {
	case frame.Method == MethodOnEvent:
		var notification interop.EventNotification
		if err := json.Unmarshal(frame.Params, &notification); err != nil {
			invariant.Violatef(mediaerror.MalformedMessage, "discarding event: %v", err)
			return
		}
		receiver.Dispatch(notification.AsEvent())
	case frame.Method != "":
		log.WithField("method", frame.Method).Debug("Ignoring request from media server")
	case frame.Error != nil:
		receiver.Resolve(interop.RequestID(*frame.ID), nil, frame.Error)
	default:
		var value interop.ValueResult
		if err := json.Unmarshal(frame.Result, &value); err != nil {
			invariant.Violatef(mediaerror.MalformedMessage, "malformed result for request %d: %v", *frame.ID, err)
			receiver.Resolve(interop.RequestID(*frame.ID), nil, fmt.Errorf("malformed result: %w", err))
			return
		}
		c.learnSession(value.SessionID)
		receiver.Resolve(interop.RequestID(*frame.ID), interop.Result(value.Value), nil)
	}
}

func (c *Conn) learnSession(sessionID string) {
	if sessionID == "" {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.sessionID == "" {
		log.WithField("sessionId", sessionID).Debug("Media server session established")
		c.sessionID = sessionID
	}
}

func (c *Conn) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteWait)); err != nil {
				if c.closing.Load() || errors.Is(err, websocket.ErrCloseSent) {
					return nil
				}
				log.WithError(err).Debug("Websocket ping failed")
			}
		}
	}
}

// Close shuts the websocket and waits for the loops to exit. Requests in
// flight are not resolved here; the receiver's owner does that. It must not
// be called from a Receiver callback.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.closing.Store(true)
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.opts.WriteWait))
		err = c.ws.Close()

		c.mutex.Lock()
		group, cancel := c.group, c.cancel
		c.mutex.Unlock()
		if cancel != nil {
			cancel()
		}
		if group != nil {
			group.Wait()
		}
	})
	return err
}
