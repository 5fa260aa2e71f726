// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package continuation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go.kurento.org/media/interop"
	"go.kurento.org/media/invariant"
	"go.kurento.org/media/mediaerror"
	"go.kurento.org/media/recent"
)

const tracerName = "go.kurento.org/media/continuation"

// ErrSchedulerClosed is returned by Submit after Close.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Hook runs on the resolving goroutine before the request's future is
// completed, so state it changes is visible to every continuation and to
// anything the transport delivers afterwards. The returned error replaces the
// outcome.
type Hook func(result interop.Result, err error) error

// PendingRequest is an in-flight request. It leaves the pending table on its
// single resolution.
type PendingRequest struct {
	ID        interop.RequestID
	Operation interop.Operation

	hook   Hook
	future *Future[interop.Result]
	span   trace.Span
	start  time.Time
}

// Future is resolved with the raw result of the request.
func (r *PendingRequest) Future() *Future[interop.Result] {
	return r.future
}

func (r *PendingRequest) complete(result interop.Result, err error) {
	if r.hook != nil {
		err = r.hook(result, err)
	}
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
		result = nil
	}
	r.span.End()

	log.WithField("request", r.ID).WithField("op", r.Operation).
		WithField("elapsed", time.Since(r.start)).WithError(err).Debug("Request resolved")
	r.future.Complete(result, err)
}

// Scheduler owns the table of pending requests and guarantees that each of
// them is completed exactly once.
type Scheduler struct {
	transport interop.Transport
	tracer    trace.Tracer

	pending  cmap.ConcurrentMap
	resolved *recent.Cache[interop.RequestID]
	nextID   atomic.Uint64

	mutex  sync.RWMutex
	closed bool

	wg sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTracerProvider sets the provider request spans are created with.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(s *Scheduler) {
		s.tracer = provider.Tracer(tracerName)
	}
}

// WithResolvedHistory sets how many resolved request ids are remembered for
// telling duplicate resolutions from unknown ones.
func WithResolvedHistory(size int) Option {
	return func(s *Scheduler) {
		s.resolved = recent.NewCache[interop.RequestID]("resolved-requests", size)
	}
}

// NewScheduler returns a scheduler sending through transport. The transport
// is not bound here; whoever owns the Receiver binds it.
func NewScheduler(transport interop.Transport, opts ...Option) *Scheduler {
	s := &Scheduler{
		transport: transport,
		tracer:    otel.Tracer(tracerName),
		pending:   cmap.New(),
		resolved:  recent.NewCache[interop.RequestID]("resolved-requests", recent.DefaultSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Go runs fn on its own goroutine, tracked until Close returns.
func (s *Scheduler) Go(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Submit registers a pending request for op and hands it to the transport.
// It never waits for the result. A failed send completes the request with
// that failure like any other outcome.
func (s *Scheduler) Submit(ctx context.Context, op interop.Operation, hook Hook) (*PendingRequest, error) {
	s.mutex.RLock()
	if s.closed {
		s.mutex.RUnlock()
		return nil, &mediaerror.ConnectionError{Err: ErrSchedulerClosed}
	}

	id := interop.RequestID(s.nextID.Add(1))
	spanCtx, span := s.tracer.Start(ctx, "kms."+string(op.Method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int64("kms.request_id", int64(id)),
			attribute.String("kms.object", string(op.Object)),
		))

	req := &PendingRequest{
		ID:        id,
		Operation: op,
		hook:      hook,
		future:    NewFuture[interop.Result](op.String(), s),
		span:      span,
		start:     time.Now(),
	}
	s.pending.Set(id.String(), req)
	s.mutex.RUnlock()

	log.WithField("request", id).WithField("op", op).Debug("Submitting request")
	if err := s.transport.Send(spanCtx, id, op); err != nil {
		var connErr *mediaerror.ConnectionError
		if !errors.As(err, &connErr) {
			err = &mediaerror.ConnectionError{Err: err}
		}
		s.Resolve(id, nil, err)
	}
	return req, nil
}

// Resolve completes the pending request id. Resolutions for ids that are not
// pending are reported as protocol violations and otherwise ignored.
func (s *Scheduler) Resolve(id interop.RequestID, result interop.Result, err error) {
	v, ok := s.pending.Pop(id.String())
	if !ok {
		if s.resolved.Contains(id) {
			invariant.Violatef(mediaerror.DuplicateResolution, "request %s resolved twice", id)
		} else {
			invariant.Violatef(mediaerror.UnknownRequest, "resolution for unknown request %s", id)
		}
		return
	}
	s.resolved.Register(id)
	v.(*PendingRequest).complete(result, err)
}

// PendingCount returns the number of requests still waiting for resolution.
func (s *Scheduler) PendingCount() int {
	return s.pending.Count()
}

// Close fails every pending request with a ConnectionError wrapping cause,
// refuses new submissions and waits for running continuations. It must not be
// called from a continuation.
func (s *Scheduler) Close(cause error) {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()

	if cause == nil {
		cause = ErrSchedulerClosed
	}
	for _, key := range s.pending.Keys() {
		v, ok := s.pending.Pop(key)
		if !ok {
			continue
		}
		req := v.(*PendingRequest)
		s.resolved.Register(req.ID)
		req.complete(nil, &mediaerror.ConnectionError{Err: cause})
	}
	s.wg.Wait()
}
