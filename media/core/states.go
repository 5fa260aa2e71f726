// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.kurento.org/media/core/statejson"
	"go.kurento.org/media/interop"
)

// ErrNotAllowed returned on illegal state transition
var ErrNotAllowed = errors.New("State transition is not allowed")

// ErrObjectReleased returned on any operation against a released object
var ErrObjectReleased = errors.New("Media object has been released")

// ErrQueueFull returned when an object's event mailbox has no room left
var ErrQueueFull = errors.New("Event queue is full")

// ObjectState is media object state machine interface.
type ObjectState interface {
	Build() error
	Built() error
	BuildFailed() error
	Release() error
	Abort() error
	Name() string
}

type disallowEveryTransitionByDefault struct{}

func (s *disallowEveryTransitionByDefault) Build() error       { return ErrNotAllowed }
func (s *disallowEveryTransitionByDefault) Built() error       { return ErrNotAllowed }
func (s *disallowEveryTransitionByDefault) BuildFailed() error { return ErrNotAllowed }
func (s *disallowEveryTransitionByDefault) Release() error     { return ErrNotAllowed }
func (s *disallowEveryTransitionByDefault) Abort() error       { return ErrNotAllowed }

// MediaObject is the local record of a server-side object. All lifecycle
// transitions, registration changes and event enqueues on one object are
// serialized by its mutex; listener code never runs under it.
type MediaObject struct {
	mutex sync.Mutex

	handle uuid.UUID
	id     interop.ObjectID
	kind   interop.ObjectKind
	parent uuid.UUID

	currentState      ObjectState
	stateLastModified time.Time

	ObjectNoneState     ObjectState
	ObjectPendingState  ObjectState
	ObjectLiveState     ObjectState
	ObjectReleasedState ObjectState

	registrations []*ListenerRegistration
	mailbox       *mailbox
	queueSize     int
	deliverer     Deliverer
}

func newMediaObject(kind interop.ObjectKind, parent uuid.UUID, deliverer Deliverer, queueSize int) *MediaObject {
	object := &MediaObject{
		handle:    uuid.New(),
		kind:      kind,
		parent:    parent,
		queueSize: queueSize,
		deliverer: deliverer,
	}

	object.ObjectNoneState = &ObjectNoneState{object: object}
	object.ObjectPendingState = &ObjectPendingState{object: object}
	object.ObjectLiveState = &ObjectLiveState{object: object}
	object.ObjectReleasedState = &ObjectReleasedState{}

	object.setStateUnsafe(object.ObjectNoneState)
	return object
}

// Handle is the local identity, stable from creation on.
func (o *MediaObject) Handle() uuid.UUID { return o.handle }

// Kind ...
func (o *MediaObject) Kind() interop.ObjectKind { return o.kind }

// Parent is the handle of the owning pipeline, uuid.Nil for pipelines.
func (o *MediaObject) Parent() uuid.UUID { return o.parent }

// ID returns the server-assigned id, empty until the build is acknowledged.
func (o *MediaObject) ID() interop.ObjectID {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.id
}

// GetState ...
func (o *MediaObject) GetState() ObjectState {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.currentState
}

// SetState ...
func (o *MediaObject) SetState(state ObjectState) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.setStateUnsafe(state)
}

func (o *MediaObject) setStateUnsafe(state ObjectState) {
	o.currentState = state
	o.stateLastModified = time.Now()
}

// Build delegates to state implementation.
func (o *MediaObject) Build() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.currentState.Build()
}

// built stores the server id and delegates to state implementation. It is
// reached through ObjectTable.Bind so the id index stays consistent.
func (o *MediaObject) built(id interop.ObjectID) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if err := o.currentState.Built(); err != nil {
		return err
	}
	o.id = id
	return nil
}

// BuildFailed delegates to state implementation.
func (o *MediaObject) BuildFailed() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.currentState.BuildFailed()
}

// Release moves a live object to released, drops its registrations and
// closes its mailbox in one step. The returned channel is closed once no
// listener of this object is running any more.
func (o *MediaObject) Release() (<-chan struct{}, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if err := o.currentState.Release(); err != nil {
		return nil, err
	}
	return o.retireUnsafe(), nil
}

// Abort releases the object locally whatever its non-terminal state.
func (o *MediaObject) Abort() (<-chan struct{}, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if err := o.currentState.Abort(); err != nil {
		return nil, err
	}
	return o.retireUnsafe(), nil
}

func (o *MediaObject) retireUnsafe() <-chan struct{} {
	o.registrations = nil
	if o.mailbox == nil {
		drained := make(chan struct{})
		close(drained)
		return drained
	}
	o.mailbox.close()
	return o.mailbox.drained
}

// RequireLive returns nil if the object accepts remote operations.
func (o *MediaObject) RequireLive() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.requireLiveUnsafe()
}

func (o *MediaObject) requireLiveUnsafe() error {
	switch o.currentState {
	case o.ObjectLiveState:
		return nil
	case o.ObjectReleasedState:
		return ErrObjectReleased
	}
	return ErrNotAllowed
}

// IsLive ...
func (o *MediaObject) IsLive() bool {
	return o.RequireLive() == nil
}

// GetObjectDescription returns object description for debugging purposes
func (o *MediaObject) GetObjectDescription() statejson.ObjectDescription {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	res := statejson.ObjectDescription{
		Handle: o.handle.String(),
		ID:     string(o.id),
		Kind:   string(o.kind),
		State: statejson.StateDescription{
			Name:         o.currentState.Name(),
			LastModified: o.stateLastModified.UnixNano() / int64(time.Millisecond),
		},
	}
	if o.parent != uuid.Nil {
		res.Parent = o.parent.String()
	}
	for _, reg := range o.registrations {
		res.Registrations = append(res.Registrations, statejson.RegistrationDescription{
			ID:           reg.ID.String(),
			EventType:    string(reg.EventType),
			Subscription: reg.SubscriptionID,
		})
	}
	return res
}

// ObjectNoneState is the state of an object that has not been built yet.
type ObjectNoneState struct {
	disallowEveryTransitionByDefault
	object *MediaObject
}

// Build marks the build request as sent.
func (s *ObjectNoneState) Build() error {
	s.object.setStateUnsafe(s.object.ObjectPendingState)
	return nil
}

// Name ...
func (s *ObjectNoneState) Name() string {
	return ObjectNoneStateName
}

// ObjectPendingState is the state of an object whose build is in flight.
type ObjectPendingState struct {
	disallowEveryTransitionByDefault
	object *MediaObject
}

// Built ...
func (s *ObjectPendingState) Built() error {
	s.object.setStateUnsafe(s.object.ObjectLiveState)
	return nil
}

// BuildFailed ...
func (s *ObjectPendingState) BuildFailed() error {
	s.object.setStateUnsafe(s.object.ObjectReleasedState)
	return nil
}

// Abort ...
func (s *ObjectPendingState) Abort() error {
	s.object.setStateUnsafe(s.object.ObjectReleasedState)
	return nil
}

// Name ...
func (s *ObjectPendingState) Name() string {
	return ObjectPendingStateName
}

// ObjectLiveState is the state of a built object.
type ObjectLiveState struct {
	disallowEveryTransitionByDefault
	object *MediaObject
}

// Release ...
func (s *ObjectLiveState) Release() error {
	s.object.setStateUnsafe(s.object.ObjectReleasedState)
	return nil
}

// Abort ...
func (s *ObjectLiveState) Abort() error {
	s.object.setStateUnsafe(s.object.ObjectReleasedState)
	return nil
}

// Name ...
func (s *ObjectLiveState) Name() string {
	return ObjectLiveStateName
}

// ObjectReleasedState is terminal. Every transition fails with ErrObjectReleased.
type ObjectReleasedState struct{}

func (s *ObjectReleasedState) Build() error       { return ErrObjectReleased }
func (s *ObjectReleasedState) Built() error       { return ErrObjectReleased }
func (s *ObjectReleasedState) BuildFailed() error { return ErrObjectReleased }
func (s *ObjectReleasedState) Release() error     { return ErrObjectReleased }
func (s *ObjectReleasedState) Abort() error       { return ErrObjectReleased }

// Name ...
func (s *ObjectReleasedState) Name() string {
	return ObjectReleasedStateName
}
