// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package kmf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/continuation"
	"go.kurento.org/media/core"
	"go.kurento.org/media/interop"
	"go.kurento.org/media/mediaerror"
)

type (
	// Event is a server-pushed notification.
	Event = interop.Event
	// Listener receives the events of one registration.
	Listener = core.Listener
	// ListenerRegistration is returned by the Add...Listener calls.
	ListenerRegistration = core.ListenerRegistration
)

var errEmptyObjectID = errors.New("media server returned an empty object id")

// MediaObject is implemented by every proxy.
type MediaObject interface {
	// ID is the server id, empty until built.
	ID() interop.ObjectID
	Kind() interop.ObjectKind
	// State is the lifecycle state name.
	State() string
	Release(ctx context.Context) (*continuation.Future[struct{}], error)

	remote() *remoteObject
}

type remoteObject struct {
	client *Client
	object *core.MediaObject
}

func newRemoteObject(client *Client, kind interop.ObjectKind, parent *core.MediaObject) remoteObject {
	return remoteObject{
		client: client,
		object: client.events.Objects().Create(kind, parent),
	}
}

func (o *remoteObject) remote() *remoteObject { return o }

// ID ...
func (o *remoteObject) ID() interop.ObjectID { return o.object.ID() }

// Kind ...
func (o *remoteObject) Kind() interop.ObjectKind { return o.object.Kind() }

// Handle is the local identity of the object, set before it is built.
func (o *remoteObject) Handle() uuid.UUID { return o.object.Handle() }

// State ...
func (o *remoteObject) State() string { return o.object.GetState().Name() }

// IsLive ...
func (o *remoteObject) IsLive() bool { return o.object.IsLive() }

// buildAsync sends create. The object is live before the returned future
// resolves.
func (o *remoteObject) buildAsync(ctx context.Context, params map[string]interface{}) (*continuation.Future[interop.ObjectID], error) {
	if err := o.object.Build(); err != nil {
		return nil, &mediaerror.UsageError{Op: "build", Err: err}
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	table := o.client.events.Objects()
	op := interop.Operation{
		Method: interop.MethodCreate,
		Params: interop.CreateParams{Type: o.object.Kind(), ConstructorParams: params},
	}
	req, err := o.client.scheduler.Submit(ctx, op, func(result interop.Result, err error) error {
		if err == nil {
			var id interop.ObjectID
			if err = result.Decode(&id); err == nil && id == "" {
				err = errEmptyObjectID
			}
			if err == nil {
				if err = table.Bind(o.object, id); err == nil {
					log.WithField("object", id).Debug("Object built")
					return nil
				}
				if errors.Is(err, core.ErrObjectReleased) {
					// released locally while create was in flight
					err = &mediaerror.UsageError{Op: "build", Err: err}
				}
			}
		}
		if o.object.BuildFailed() == nil {
			table.Forget(o.object)
		}
		return err
	})
	if err != nil {
		if o.object.BuildFailed() == nil {
			table.Forget(o.object)
		}
		return nil, err
	}

	return continuation.Map(req.Future(), "build "+string(o.object.Kind()), func(interop.Result) (interop.ObjectID, error) {
		return o.object.ID(), nil
	}), nil
}

// Invoke calls operation on the live object and resolves with the raw value
// the server returned.
func (o *remoteObject) Invoke(ctx context.Context, operation string, params map[string]interface{}) (*continuation.Future[json.RawMessage], error) {
	if err := o.object.RequireLive(); err != nil {
		return nil, &mediaerror.UsageError{Op: operation, Err: err}
	}
	id := o.object.ID()
	req, err := o.client.scheduler.Submit(ctx, interop.Operation{
		Method: interop.MethodInvoke,
		Object: id,
		Params: interop.InvokeParams{Object: id, Operation: operation, OperationParams: params},
	}, nil)
	if err != nil {
		return nil, err
	}
	return continuation.Map(req.Future(), operation, func(result interop.Result) (json.RawMessage, error) {
		return json.RawMessage(result), nil
	}), nil
}

func (o *remoteObject) invokeVoid(ctx context.Context, operation string, params map[string]interface{}) (*continuation.Future[struct{}], error) {
	f, err := o.Invoke(ctx, operation, params)
	if err != nil {
		return nil, err
	}
	return continuation.Map(f, operation, func(json.RawMessage) (struct{}, error) {
		return struct{}{}, nil
	}), nil
}

func invokeValue[T any](ctx context.Context, o *remoteObject, operation string, params map[string]interface{}) (*continuation.Future[T], error) {
	f, err := o.Invoke(ctx, operation, params)
	if err != nil {
		return nil, err
	}
	return continuation.Map(f, operation, func(raw json.RawMessage) (T, error) {
		var value T
		if err := interop.Result(raw).Decode(&value); err != nil {
			return value, fmt.Errorf("decode %s result: %w", operation, err)
		}
		return value, nil
	}), nil
}

// Release releases the object, and for a pipeline every element in it. The
// object stops delivering events at once; the returned future resolves after
// the server answered and no listener of the object is still running.
func (o *remoteObject) Release(ctx context.Context) (*continuation.Future[struct{}], error) {
	table := o.client.events.Objects()
	id := o.object.ID()
	drained, err := table.Release(o.object)
	if err != nil {
		return nil, &mediaerror.UsageError{Op: "release", Err: err}
	}

	req, err := o.client.scheduler.Submit(ctx, interop.Operation{
		Method: interop.MethodRelease,
		Object: id,
		Params: interop.ReleaseParams{Object: id},
	}, nil)
	if err != nil {
		table.Forget(o.object)
		return nil, err
	}

	released := continuation.NewFuture[struct{}]("release "+string(id), o.client.scheduler)
	finish := func(err error) {
		for _, ch := range drained {
			<-ch
		}
		table.Forget(o.object)
		released.Complete(struct{}{}, err)
	}
	req.Future().Then(continuation.Continuation[interop.Result]{
		OnSuccess: func(interop.Result) { finish(nil) },
		OnError:   finish,
	})
	return released, nil
}

// AddEventListener subscribes listener to eventType. The registration is
// usable once the returned future resolves.
func (o *remoteObject) AddEventListener(ctx context.Context, eventType interop.EventType, listener Listener) (*continuation.Future[*ListenerRegistration], error) {
	return o.client.events.Register(ctx, o.object, eventType, listener)
}

// AddErrorListener ...
func (o *remoteObject) AddErrorListener(ctx context.Context, listener Listener) (*continuation.Future[*ListenerRegistration], error) {
	return o.AddEventListener(ctx, interop.EventError, listener)
}

// RemoveListener ...
func (o *remoteObject) RemoveListener(ctx context.Context, reg *ListenerRegistration) (*continuation.Future[struct{}], error) {
	return o.client.events.Unregister(ctx, reg)
}

func buildAs[T any](ctx context.Context, o *remoteObject, params map[string]interface{}, self T) (*continuation.Future[T], error) {
	f, err := o.buildAsync(ctx, params)
	if err != nil {
		return nil, err
	}
	return continuation.Map(f, "build "+string(o.Kind()), func(interop.ObjectID) (T, error) {
		return self, nil
	}), nil
}

// Release releases obj and waits for it, bounded by the client timeout when
// ctx has no deadline.
func Release(ctx context.Context, obj MediaObject) error {
	f, err := obj.Release(ctx)
	_, err = await(ctx, obj.remote().client, f, err)
	return err
}
