// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"go.kurento.org/media/core/statejson"
	"go.kurento.org/media/interop"
	"go.kurento.org/media/invariant"
	"go.kurento.org/media/mediaerror"
	"go.kurento.org/media/recent"
)

// ErrObjectIDCollision means that an object with the same server id is already bound
var ErrObjectIDCollision = errors.New("ErrObjectIDCollision")

// ObjectTable is the arena of media objects known to a client, indexed by
// local handle and, once built, by server id. Lock order is table before
// object.
type ObjectTable struct {
	mutex     sync.RWMutex
	byHandle  map[uuid.UUID]*MediaObject
	byID      map[interop.ObjectID]*MediaObject
	children  map[uuid.UUID][]*MediaObject
	retired   *recent.Cache[interop.ObjectID]
	deliverer Deliverer
	queueSize int
}

// NewObjectTable creates an empty table. Events enqueued on its objects are
// handed to deliverer.
func NewObjectTable(deliverer Deliverer, queueSize int) *ObjectTable {
	return &ObjectTable{
		byHandle:  make(map[uuid.UUID]*MediaObject),
		byID:      make(map[interop.ObjectID]*MediaObject),
		children:  make(map[uuid.UUID][]*MediaObject),
		retired:   recent.NewCache[interop.ObjectID]("retired-objects", recent.DefaultSize),
		deliverer: deliverer,
		queueSize: queueSize,
	}
}

// Create places a new object in the None state. parent is nil for pipelines.
func (t *ObjectTable) Create(kind interop.ObjectKind, parent *MediaObject) *MediaObject {
	parentHandle := uuid.Nil
	if parent != nil {
		parentHandle = parent.Handle()
	}
	object := newMediaObject(kind, parentHandle, t.deliverer, t.queueSize)

	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.byHandle[object.handle] = object
	if parent != nil {
		t.children[parentHandle] = append(t.children[parentHandle], object)
	}
	return object
}

// Bind records the server id of a pending object and makes it live.
func (t *ObjectTable) Bind(object *MediaObject, id interop.ObjectID) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	_, collision := t.byID[id]
	invariant.Check(!collision, mediaerror.DuplicateObjectID, fmt.Sprintf("server id %s handed out twice", id))
	if collision {
		return ErrObjectIDCollision
	}
	if err := object.built(id); err != nil {
		return err
	}
	t.byID[id] = object
	return nil
}

// FindByID finds object by server id
func (t *ObjectTable) FindByID(id interop.ObjectID) (object *MediaObject, found bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	object, found = t.byID[id]
	return
}

// FindByHandle finds object by local handle
func (t *ObjectTable) FindByHandle(handle uuid.UUID) (object *MediaObject, found bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	object, found = t.byHandle[handle]
	return
}

// IsRetired reports whether id belonged to an object forgotten recently.
func (t *ObjectTable) IsRetired(id interop.ObjectID) bool {
	return t.retired.Contains(id)
}

// Children returns the elements created inside object.
func (t *ObjectTable) Children(object *MediaObject) []*MediaObject {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return append([]*MediaObject(nil), t.children[object.handle]...)
}

// Release releases object and, for pipelines, every child still live. The
// object's own transition error is returned; children that are already gone
// are skipped. The returned channels close once the corresponding mailboxes
// have drained.
func (t *ObjectTable) Release(object *MediaObject) ([]<-chan struct{}, error) {
	drained, err := object.Release()
	if err != nil {
		return nil, err
	}
	all := []<-chan struct{}{drained}
	if !object.Kind().IsPipeline() {
		return all, nil
	}
	for _, child := range t.Children(object) {
		if childDrained, err := child.Abort(); err == nil {
			all = append(all, childDrained)
		}
	}
	return all, nil
}

// Forget drops object and its children from the indices. Their server ids
// are remembered as retired so late events can be told apart from events
// for objects this client never knew.
func (t *ObjectTable) Forget(object *MediaObject) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.forgetUnsafe(object)
}

func (t *ObjectTable) forgetUnsafe(object *MediaObject) {
	for _, child := range t.children[object.handle] {
		t.forgetUnsafe(child)
	}
	delete(t.children, object.handle)
	delete(t.byHandle, object.handle)
	if siblings, ok := t.children[object.parent]; ok {
		for i, sibling := range siblings {
			if sibling == object {
				// copy so a caller ranging over the old slice is not disturbed
				t.children[object.parent] = append(siblings[:i:i], siblings[i+1:]...)
				break
			}
		}
	}
	if id := object.ID(); id != "" {
		if t.byID[id] == object {
			delete(t.byID, id)
		}
		t.retired.Register(id)
	}
}

// AbortAll releases every object locally, e.g. when the connection is gone.
func (t *ObjectTable) AbortAll() []<-chan struct{} {
	t.mutex.RLock()
	objects := make([]*MediaObject, 0, len(t.byHandle))
	for _, object := range t.byHandle {
		objects = append(objects, object)
	}
	t.mutex.RUnlock()

	var all []<-chan struct{}
	for _, object := range objects {
		if drained, err := object.Abort(); err == nil {
			all = append(all, drained)
		}
	}
	return all
}

// Size returns the number of objects contained in the table
func (t *ObjectTable) Size() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.byHandle)
}

// Describe returns object descriptions for debugging purposes
func (t *ObjectTable) Describe() []statejson.ObjectDescription {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	res := make([]statejson.ObjectDescription, 0, len(t.byHandle))
	for _, object := range t.byHandle {
		res = append(res, object.GetObjectDescription())
	}
	return res
}
