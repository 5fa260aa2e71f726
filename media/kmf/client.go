// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package kmf

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"go.kurento.org/media/config"
	"go.kurento.org/media/continuation"
	"go.kurento.org/media/core/statejson"
	"go.kurento.org/media/events"
	"go.kurento.org/media/interop"
	"go.kurento.org/media/invariant"
	"go.kurento.org/media/jsonrpc"
)

// ErrClientClosed fails requests still in flight when the client is closed
var ErrClientClosed = errors.New("client closed")

const shutdownTimeout = 5 * time.Second

// Options ...
type Options struct {
	// RequestTimeout bounds the synchronous helpers when the caller's
	// context carries no deadline.
	RequestTimeout  time.Duration
	EventQueueSize  int
	ResolvedHistory int
	TracerProvider  trace.TracerProvider
}

// DefaultOptions ...
func DefaultOptions() Options {
	return Options{
		RequestTimeout:  10 * time.Second,
		EventQueueSize:  64,
		ResolvedHistory: 1000,
	}
}

// OptionsFromConfig ...
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RequestTimeout:  cfg.Client.RequestTimeout,
		EventQueueSize:  cfg.Client.EventQueueSize,
		ResolvedHistory: cfg.Client.ResolvedHistory,
	}
}

// Client is the entry point to a media server. It owns the continuation
// scheduler and the event channel, and receives everything the transport
// reads.
type Client struct {
	transport interop.Transport
	scheduler *continuation.Scheduler
	events    *events.Channel
	timeout   time.Duration

	closeOnce sync.Once
	done      chan struct{}
	mutex     sync.Mutex
	closeErr  error
}

var _ interop.Receiver = (*Client)(nil)

// NewClient binds transport to a new client.
func NewClient(transport interop.Transport, opts Options) (*Client, error) {
	defaults := DefaultOptions()
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaults.RequestTimeout
	}

	var schedulerOpts []continuation.Option
	if opts.TracerProvider != nil {
		schedulerOpts = append(schedulerOpts, continuation.WithTracerProvider(opts.TracerProvider))
	}
	if opts.ResolvedHistory > 0 {
		schedulerOpts = append(schedulerOpts, continuation.WithResolvedHistory(opts.ResolvedHistory))
	}

	scheduler := continuation.NewScheduler(transport, schedulerOpts...)
	c := &Client{
		transport: transport,
		scheduler: scheduler,
		events:    events.NewChannel(scheduler, opts.EventQueueSize),
		timeout:   opts.RequestTimeout,
		done:      make(chan struct{}),
	}
	if err := transport.Bind(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Dial connects to the media server at cfg.URL.
func Dial(ctx context.Context, cfg *config.Config) (*Client, error) {
	conn, err := jsonrpc.Dial(ctx, cfg.URL, jsonrpc.Options{
		PingInterval: cfg.Connection.PingInterval,
		PongWait:     cfg.Connection.PongWait,
		WriteWait:    cfg.Connection.WriteWait,
	})
	if err != nil {
		return nil, err
	}
	client, err := NewClient(conn, OptionsFromConfig(cfg))
	if err != nil {
		conn.Close()
		return nil, err
	}
	log.WithField("url", cfg.URL).Info("Connected to media server")
	return client, nil
}

// Resolve implements interop.Receiver
func (c *Client) Resolve(id interop.RequestID, result interop.Result, err error) {
	c.scheduler.Resolve(id, result, err)
}

// Dispatch implements interop.Receiver
func (c *Client) Dispatch(event interop.Event) {
	c.events.Dispatch(event)
}

// ConnectionLost implements interop.Receiver
func (c *Client) ConnectionLost(err error) {
	log.WithError(err).Warn("Media server connection lost, failing pending requests")
	go c.shutdown(err)
}

// Close fails every pending request, releases every object locally and
// closes the transport. It must not be called from a continuation or
// listener.
func (c *Client) Close() error {
	c.shutdown(ErrClientClosed)
	<-c.done
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closeErr
}

// Done is closed once the client has shut down, by Close or because the
// connection was lost.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		defer close(c.done)
		err := c.transport.Close()
		c.scheduler.Close(cause)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if drainErr := c.events.Close(ctx); drainErr != nil {
			log.WithError(drainErr).Warn("Listeners still running at shutdown")
		}

		c.mutex.Lock()
		c.closeErr = err
		c.mutex.Unlock()
	})
}

// Ping checks the media server is answering.
func (c *Client) Ping(ctx context.Context) (*continuation.Future[struct{}], error) {
	req, err := c.scheduler.Submit(ctx, interop.Operation{
		Method: interop.MethodPing,
		Params: map[string]int64{"interval": c.timeout.Milliseconds()},
	}, nil)
	if err != nil {
		return nil, err
	}
	return continuation.Map(req.Future(), "ping", func(interop.Result) (struct{}, error) {
		return struct{}{}, nil
	}), nil
}

// Describe returns the client's internal state for debugging purposes.
func (c *Client) Describe() statejson.InternalStateDescription {
	desc := statejson.InternalStateDescription{
		Objects:         c.events.Objects().Describe(),
		PendingRequests: c.scheduler.PendingCount(),
		Violations:      invariant.Count(),
	}
	if s, ok := c.transport.(interface{ SessionID() string }); ok {
		desc.SessionID = s.SessionID()
	}
	return desc
}

// bounded applies the client's request timeout to ctx unless ctx already
// has a deadline.
func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func await[T any](ctx context.Context, c *Client, f *continuation.Future[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return f.Await(ctx)
}
