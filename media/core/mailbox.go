// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"go.kurento.org/media/interop"
)

// DefaultQueueSize is the per-object event mailbox capacity.
const DefaultQueueSize = 64

// Deliverer hands one event to the listeners of an object. It is called from
// the object's mailbox goroutine, one event at a time, in arrival order.
// listeners are the registrations that matched when the event arrived.
type Deliverer interface {
	Deliver(object *MediaObject, event interop.Event, listeners []*ListenerRegistration)
}

type delivery struct {
	event     interop.Event
	listeners []*ListenerRegistration
}

type mailbox struct {
	queue   chan delivery
	drained chan struct{}
	closed  bool
}

func newMailbox(size int) *mailbox {
	return &mailbox{
		queue:   make(chan delivery, size),
		drained: make(chan struct{}),
	}
}

// close must be called with the owning object's mutex held.
func (m *mailbox) close() {
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
}

func (m *mailbox) run(object *MediaObject, deliverer Deliverer) {
	defer close(m.drained)
	for d := range m.queue {
		if deliverer != nil {
			deliverer.Deliver(object, d.event, d.listeners)
		}
	}
}

// Enqueue queues event for delivery without blocking. The listeners it goes
// to are fixed here: a registration installed after the event arrived does
// not see it. It fails if the object is not live or its mailbox is full.
func (o *MediaObject) Enqueue(event interop.Event) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if err := o.requireLiveUnsafe(); err != nil {
		return err
	}
	if o.mailbox == nil {
		size := o.queueSize
		if size <= 0 {
			size = DefaultQueueSize
		}
		o.mailbox = newMailbox(size)
		go o.mailbox.run(o, o.deliverer)
	}
	select {
	case o.mailbox.queue <- delivery{event: event, listeners: o.listenersForUnsafe(event.Type)}:
		return nil
	default:
		return ErrQueueFull
	}
}
