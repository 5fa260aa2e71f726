// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fakekms is an in-process stand-in for the media server. It speaks
// the same request vocabulary, keeps a table of objects and subscriptions,
// and raises the events a real server would when its HTTP endpoints are
// played. It serves both as an interop.Transport and as a websocket
// JSON-RPC endpoint.
package fakekms

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/interop"
	"go.kurento.org/media/mediaerror"
)

// Error codes returned by the fake, taken from the media server's own set.
const (
	CodeInvalidParams  = -32602
	CodeTypeNotFound   = 40100
	CodeObjectNotFound = 40101
	CodeMethodNotFound = 40105
	CodeIllegalParam   = 40107
)

type peer interface {
	resolve(id uint64, value json.RawMessage, sessionID string, err *mediaerror.RemoteError)
	notify(event interop.Event)
}

type receiverPeer struct {
	receiver interop.Receiver
}

func (p *receiverPeer) resolve(id uint64, value json.RawMessage, _ string, err *mediaerror.RemoteError) {
	if err != nil {
		p.receiver.Resolve(interop.RequestID(id), nil, err)
		return
	}
	p.receiver.Resolve(interop.RequestID(id), interop.Result(value), nil)
}

func (p *receiverPeer) notify(event interop.Event) {
	p.receiver.Dispatch(event)
}

// Server is the fake media server. All requests and emitted events are
// processed by one worker goroutine, in submission order.
type Server struct {
	sessionID string

	mutex         sync.Mutex
	baseURL       string
	objects       map[interop.ObjectID]*object
	tokens        map[string]interop.ObjectID
	subscriptions map[string]subscription
	failures      map[interop.Method][]*mediaerror.RemoteError
	held          map[interop.Method]bool
	heldResponses []func()
	duplicates    int
	requests      []interop.Method
	sessionIDs    []string
	peer          peer

	queueMu sync.Mutex
	queue   []func()
	cond    *sync.Cond
	closed  bool
	stopped chan struct{}
}

var _ interop.Transport = (*Server)(nil)

// New starts a fake server. baseURL prefixes the URLs handed out by getUrl
// and can be changed later with SetBaseURL.
func New(baseURL string) *Server {
	s := &Server{
		sessionID:     uuid.New().String(),
		baseURL:       baseURL,
		objects:       make(map[interop.ObjectID]*object),
		tokens:        make(map[string]interop.ObjectID),
		subscriptions: make(map[string]subscription),
		failures:      make(map[interop.Method][]*mediaerror.RemoteError),
		held:          make(map[interop.Method]bool),
		stopped:       make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.queueMu)
	go s.work()
	return s
}

func (s *Server) work() {
	defer close(s.stopped)
	for {
		s.queueMu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.queueMu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.queueMu.Unlock()
		fn()
	}
}

func (s *Server) enqueue(fn func()) bool {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.closed {
		return false
	}
	s.queue = append(s.queue, fn)
	s.cond.Signal()
	return true
}

// SessionID is the session id reported in responses.
func (s *Server) SessionID() string { return s.sessionID }

// SetBaseURL changes the prefix of media URLs handed out from now on.
func (s *Server) SetBaseURL(baseURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.baseURL = baseURL
}

// Bind makes receiver the peer that gets responses and events.
func (s *Server) Bind(receiver interop.Receiver) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.peer.(*receiverPeer); ok {
		return interop.ErrAlreadyBound
	}
	s.peer = &receiverPeer{receiver: receiver}
	return nil
}

// Send queues op for processing.
func (s *Server) Send(_ context.Context, id interop.RequestID, op interop.Operation) error {
	params, err := json.Marshal(op.Params)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	p := s.peer
	s.mutex.Unlock()
	if !s.enqueue(func() { s.handle(p, uint64(id), op.Method, params) }) {
		return interop.ErrTransportClosed
	}
	return nil
}

// Close stops the worker after the queued work is done.
func (s *Server) Close() error {
	s.queueMu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.queueMu.Unlock()
	<-s.stopped
	return nil
}

// Sync waits until everything queued so far has been processed.
func (s *Server) Sync() {
	done := make(chan struct{})
	if !s.enqueue(func() { close(done) }) {
		return
	}
	<-done
}

func (s *Server) handle(p peer, id uint64, method interop.Method, params json.RawMessage) {
	s.mutex.Lock()
	s.requests = append(s.requests, method)
	s.recordSession(params)

	var (
		value  json.RawMessage
		events []interop.Event
		err    *mediaerror.RemoteError
	)
	if fails := s.failures[method]; len(fails) > 0 {
		err = fails[0]
		s.failures[method] = fails[1:]
	} else {
		value, events, err = s.apply(method, params)
	}
	duplicate := s.duplicates > 0
	if duplicate {
		s.duplicates--
	}
	sessionID := s.sessionID

	respond := func() {
		if p == nil {
			return
		}
		p.resolve(id, value, sessionID, err)
		if duplicate {
			p.resolve(id, value, sessionID, err)
		}
	}
	if s.held[method] {
		s.heldResponses = append(s.heldResponses, func() {
			respond()
			s.emit(events)
		})
		s.mutex.Unlock()
		log.WithField("request", id).WithField("method", method).Debug("fakekms: holding response")
		return
	}
	s.mutex.Unlock()

	respond()
	s.emit(events)
}

func (s *Server) recordSession(params json.RawMessage) {
	var fields struct {
		SessionID string `json:"sessionId"`
	}
	if json.Unmarshal(params, &fields) == nil && fields.SessionID != "" {
		s.sessionIDs = append(s.sessionIDs, fields.SessionID)
	}
}

// emit delivers events whose object has a matching subscription. Called
// from the worker only.
func (s *Server) emit(events []interop.Event) {
	for _, event := range events {
		s.mutex.Lock()
		subscribed := s.subscribedUnsafe(event.Source, event.Type)
		p := s.peer
		s.mutex.Unlock()
		if subscribed && p != nil {
			p.notify(event)
		}
	}
}

// Emit raises an event on objectID as the server would, delivered only if
// someone subscribed to it.
func (s *Server) Emit(objectID interop.ObjectID, eventType interop.EventType) {
	event := newEvent(objectID, eventType)
	s.enqueue(func() { s.emit([]interop.Event{event}) })
}

// EmitRaw pushes event to the peer whether or not anyone subscribed.
func (s *Server) EmitRaw(event interop.Event) {
	s.enqueue(func() {
		s.mutex.Lock()
		p := s.peer
		s.mutex.Unlock()
		if p != nil {
			p.notify(event)
		}
	})
}

// FailNext makes the next request of method fail with err.
func (s *Server) FailNext(method interop.Method, err *mediaerror.RemoteError) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failures[method] = append(s.failures[method], err)
}

// HoldResponses keeps responses to method back until ReleaseHeld. The
// requests themselves are applied as they arrive.
func (s *Server) HoldResponses(method interop.Method) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.held[method] = true
}

// ReleaseHeld sends every held response and stops holding.
func (s *Server) ReleaseHeld() {
	s.mutex.Lock()
	responses := s.heldResponses
	s.heldResponses = nil
	s.held = make(map[interop.Method]bool)
	s.mutex.Unlock()

	s.enqueue(func() {
		for _, respond := range responses {
			respond()
		}
	})
}

// DuplicateNextResponse sends the next response twice.
func (s *Server) DuplicateNextResponse() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.duplicates++
}

// Requests lists the methods received so far.
func (s *Server) Requests() []interop.Method {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]interop.Method(nil), s.requests...)
}

// SessionIDs lists the session ids clients stamped on their requests.
func (s *Server) SessionIDs() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.sessionIDs...)
}
