// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package events delivers server-pushed events to the listeners registered
// on media objects.
package events

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/continuation"
	"go.kurento.org/media/core"
	"go.kurento.org/media/interop"
	"go.kurento.org/media/invariant"
	"go.kurento.org/media/mediaerror"
)

// ErrUnknownRegistration is returned when unregistering something that is not installed
var ErrUnknownRegistration = errors.New("listener registration is not installed")

// Channel owns the object table and routes events to per-object mailboxes.
// It is the core.Deliverer of every object in its table.
type Channel struct {
	scheduler *continuation.Scheduler
	objects   *core.ObjectTable
}

var _ core.Deliverer = (*Channel)(nil)

// NewChannel creates a channel whose subscribe and unsubscribe requests go
// through scheduler. queueSize bounds each object's mailbox.
func NewChannel(scheduler *continuation.Scheduler, queueSize int) *Channel {
	c := &Channel{scheduler: scheduler}
	c.objects = core.NewObjectTable(c, queueSize)
	return c
}

// Objects returns the object table events are routed through.
func (c *Channel) Objects() *core.ObjectTable {
	return c.objects
}

// Register subscribes listener to eventType on object. The returned future
// resolves with the registration once the server has acknowledged the
// subscription; events raised before that are not delivered to it.
func (c *Channel) Register(ctx context.Context, object *core.MediaObject, eventType interop.EventType, listener core.Listener) (*continuation.Future[*core.ListenerRegistration], error) {
	if err := object.RequireLive(); err != nil {
		return nil, &mediaerror.UsageError{Op: "subscribe", Err: err}
	}
	id := object.ID()

	var reg *core.ListenerRegistration
	op := interop.Operation{
		Method: interop.MethodSubscribe,
		Object: id,
		Params: interop.SubscribeParams{Type: eventType, Object: id},
	}
	req, err := c.scheduler.Submit(ctx, op, func(result interop.Result, err error) error {
		if err != nil {
			return err
		}
		var subscription string
		if err := result.Decode(&subscription); err != nil {
			return fmt.Errorf("decode subscription id: %w", err)
		}
		candidate := core.NewListenerRegistration(id, eventType, subscription, listener)
		if err := object.AddRegistration(candidate); err != nil {
			log.WithField("object", id).WithField("eventType", eventType).Debug("Subscription acknowledged after release, discarding")
			return &mediaerror.UsageError{Op: "subscribe", Err: err}
		}
		reg = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	return continuation.Map(req.Future(), "subscribe "+string(eventType), func(interop.Result) (*core.ListenerRegistration, error) {
		return reg, nil
	}), nil
}

// Unregister removes reg at once, then tells the server.
func (c *Channel) Unregister(ctx context.Context, reg *core.ListenerRegistration) (*continuation.Future[struct{}], error) {
	object, found := c.objects.FindByID(reg.ObjectID)
	if !found {
		return nil, &mediaerror.UsageError{Op: "unsubscribe", Err: core.ErrObjectReleased}
	}
	if err := object.RequireLive(); err != nil {
		return nil, &mediaerror.UsageError{Op: "unsubscribe", Err: err}
	}
	if _, removed := object.RemoveRegistration(reg.ID); !removed {
		return nil, &mediaerror.UsageError{Op: "unsubscribe", Err: ErrUnknownRegistration}
	}

	op := interop.Operation{
		Method: interop.MethodUnsubscribe,
		Object: reg.ObjectID,
		Params: interop.UnsubscribeParams{Subscription: reg.SubscriptionID, Object: reg.ObjectID},
	}
	req, err := c.scheduler.Submit(ctx, op, nil)
	if err != nil {
		return nil, err
	}
	return continuation.Map(req.Future(), "unsubscribe", func(interop.Result) (struct{}, error) {
		return struct{}{}, nil
	}), nil
}

// Dispatch queues event on its source object's mailbox and returns without
// waiting for listeners.
func (c *Channel) Dispatch(event interop.Event) {
	object, found := c.objects.FindByID(event.Source)
	if !found {
		if c.objects.IsRetired(event.Source) {
			log.WithField("event", event).Debug("Dropping event for released object")
			return
		}
		invariant.Violatef(mediaerror.UnknownObject, "event %s for unknown object", event)
		return
	}

	switch err := object.Enqueue(event); {
	case err == nil:
	case errors.Is(err, core.ErrQueueFull):
		invariant.Violatef(mediaerror.EventQueueOverflow, "event %s dropped, mailbox full", event)
	default:
		log.WithField("event", event).WithError(err).Debug("Dropping event")
	}
}

// Deliver runs the listeners that were registered when the event arrived, in
// installation order. A terminal event releases the object once its
// listeners have seen it.
func (c *Channel) Deliver(object *core.MediaObject, event interop.Event, listeners []*core.ListenerRegistration) {
	for _, reg := range listeners {
		// released objects deliver nothing, even to listeners matched earlier
		if !object.IsLive() {
			break
		}
		notify(reg, event)
	}

	if event.Type.IsTerminal() {
		if _, err := object.Abort(); err == nil {
			log.WithField("object", event.Source).Debugf("Object released by %s", event.Type)
			c.objects.Forget(object)
		}
	}
}

func notify(reg *core.ListenerRegistration, event interop.Event) {
	defer func() {
		if r := recover(); r != nil {
			invariant.Violatef(mediaerror.ListenerFailure, "listener %s for %s panicked: %v", reg.ID, event, r)
		}
	}()
	reg.Notify(event)
}

// Close releases every object locally and waits, bounded by ctx, for their
// mailboxes to drain.
func (c *Channel) Close(ctx context.Context) error {
	for _, drained := range c.objects.AbortAll() {
		select {
		case <-drained:
		case <-ctx.Done():
			return &mediaerror.TimeoutError{Op: "close", Err: ctx.Err()}
		}
	}
	return nil
}
