// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ObjectID is the identifier the media server assigns to a remote object.
type ObjectID string

// RequestID identifies a single in-flight request. It is allocated by the
// continuation scheduler and carried verbatim by the transport.
type RequestID uint64

func (id RequestID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ObjectKind is the server-side type name of a media object.
type ObjectKind string

const (
	KindMediaPipeline    ObjectKind = "MediaPipeline"
	KindHttpGetEndpoint  ObjectKind = "HttpGetEndpoint"
	KindHttpPostEndpoint ObjectKind = "HttpPostEndpoint"
	KindPlayerEndpoint   ObjectKind = "PlayerEndpoint"
	KindRecorderEndpoint ObjectKind = "RecorderEndpoint"
)

// IsPipeline reports whether objects of this kind own child elements.
func (k ObjectKind) IsPipeline() bool {
	return k == KindMediaPipeline
}

// EventType names a server-pushed event.
type EventType string

const (
	EventMediaSessionStarted    EventType = "MediaSessionStarted"
	EventMediaSessionTerminated EventType = "MediaSessionTerminated"
	EventEndOfStream            EventType = "EndOfStream"
	EventError                  EventType = "Error"
)

// IsTerminal reports whether the event ends the life of its source object.
func (t EventType) IsTerminal() bool {
	return t == EventMediaSessionTerminated
}

// Method is a request verb understood by the media server.
type Method string

const (
	MethodCreate      Method = "create"
	MethodInvoke      Method = "invoke"
	MethodSubscribe   Method = "subscribe"
	MethodUnsubscribe Method = "unsubscribe"
	MethodRelease     Method = "release"
	MethodPing        Method = "ping"
)

// Operation is a request to be sent to the media server. Object is empty for
// requests that do not target an existing object (e.g. creating a pipeline).
type Operation struct {
	Method Method
	Object ObjectID
	Params interface{}
}

func (o Operation) String() string {
	if o.Object == "" {
		return string(o.Method)
	}
	return fmt.Sprintf("%s(%s)", o.Method, o.Object)
}

// Result is the raw value returned by a successful request.
type Result json.RawMessage

// Decode unmarshals the result into v. An empty result leaves v untouched.
func (r Result) Decode(v interface{}) error {
	if len(r) == 0 || string(r) == "null" {
		return nil
	}
	return json.Unmarshal(r, v)
}

// Event is a server-pushed notification about an object.
type Event struct {
	Type    EventType
	Source  ObjectID
	Payload json.RawMessage
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s)", e.Type, e.Source)
}
