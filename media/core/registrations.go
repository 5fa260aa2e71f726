// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"github.com/google/uuid"

	"go.kurento.org/media/interop"
)

// Listener receives the events of one registration.
type Listener func(interop.Event)

// ListenerRegistration links a listener to an object and an event type. It
// refers to its object by id only.
type ListenerRegistration struct {
	ID             uuid.UUID
	ObjectID       interop.ObjectID
	EventType      interop.EventType
	SubscriptionID string

	listener Listener
}

// NewListenerRegistration ...
func NewListenerRegistration(objectID interop.ObjectID, eventType interop.EventType, subscriptionID string, listener Listener) *ListenerRegistration {
	return &ListenerRegistration{
		ID:             uuid.New(),
		ObjectID:       objectID,
		EventType:      eventType,
		SubscriptionID: subscriptionID,
		listener:       listener,
	}
}

// Notify runs the listener on the caller's goroutine.
func (r *ListenerRegistration) Notify(event interop.Event) {
	r.listener(event)
}

// AddRegistration installs reg if the object is still live.
func (o *MediaObject) AddRegistration(reg *ListenerRegistration) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if err := o.requireLiveUnsafe(); err != nil {
		return err
	}
	o.registrations = append(o.registrations, reg)
	return nil
}

// RemoveRegistration ...
func (o *MediaObject) RemoveRegistration(id uuid.UUID) (*ListenerRegistration, bool) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	for i, reg := range o.registrations {
		if reg.ID == id {
			o.registrations = append(o.registrations[:i], o.registrations[i+1:]...)
			return reg, true
		}
	}
	return nil, false
}

// Registrations returns a copy of the current registrations in the order
// they were installed.
func (o *MediaObject) Registrations() []*ListenerRegistration {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return append([]*ListenerRegistration(nil), o.registrations...)
}

// ListenersFor snapshots the registrations matching eventType. It returns
// nothing once the object has left the live state.
func (o *MediaObject) ListenersFor(eventType interop.EventType) []*ListenerRegistration {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.listenersForUnsafe(eventType)
}

func (o *MediaObject) listenersForUnsafe(eventType interop.EventType) []*ListenerRegistration {
	if o.requireLiveUnsafe() != nil {
		return nil
	}
	var matching []*ListenerRegistration
	for _, reg := range o.registrations {
		if reg.EventType == eventType {
			matching = append(matching, reg)
		}
	}
	return matching
}
