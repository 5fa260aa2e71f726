// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fakekms

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go.kurento.org/media/interop"
	"go.kurento.org/media/mediaerror"
)

type object struct {
	id       interop.ObjectID
	kind     interop.ObjectKind
	pipeline interop.ObjectID
	params   map[string]interface{}

	sinks   []interop.ObjectID
	playing bool
	session bool
	token   string
}

func (o *object) terminateOnEOS() bool {
	v, _ := o.params["terminateOnEOS"].(bool)
	return v
}

type subscription struct {
	object    interop.ObjectID
	eventType interop.EventType
}

func newEvent(source interop.ObjectID, eventType interop.EventType) interop.Event {
	data, _ := json.Marshal(map[string]interface{}{
		"source":    source,
		"type":      eventType,
		"timestamp": fmt.Sprint(time.Now().Unix()),
		"tags":      []string{},
	})
	return interop.Event{Type: eventType, Source: source, Payload: data}
}

func remoteError(code int, format string, args ...interface{}) *mediaerror.RemoteError {
	return &mediaerror.RemoteError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func marshalValue(v interface{}) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}

// apply runs one request against the object table. Called with s.mutex held.
func (s *Server) apply(method interop.Method, params json.RawMessage) (json.RawMessage, []interop.Event, *mediaerror.RemoteError) {
	switch method {
	case interop.MethodCreate:
		var p interop.CreateParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, nil, remoteError(CodeInvalidParams, "invalid params: %v", err)
		}
		return s.create(p)
	case interop.MethodInvoke:
		var p interop.InvokeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, nil, remoteError(CodeInvalidParams, "invalid params: %v", err)
		}
		return s.invoke(p)
	case interop.MethodSubscribe:
		var p interop.SubscribeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, nil, remoteError(CodeInvalidParams, "invalid params: %v", err)
		}
		if _, ok := s.objects[p.Object]; !ok {
			return nil, nil, remoteError(CodeObjectNotFound, "Object '%s' not found", p.Object)
		}
		id := uuid.New().String()
		s.subscriptions[id] = subscription{object: p.Object, eventType: p.Type}
		return marshalValue(id), nil, nil
	case interop.MethodUnsubscribe:
		var p interop.UnsubscribeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, nil, remoteError(CodeInvalidParams, "invalid params: %v", err)
		}
		delete(s.subscriptions, p.Subscription)
		return nil, nil, nil
	case interop.MethodRelease:
		var p interop.ReleaseParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, nil, remoteError(CodeInvalidParams, "invalid params: %v", err)
		}
		obj, ok := s.objects[p.Object]
		if !ok {
			return nil, nil, remoteError(CodeObjectNotFound, "Object '%s' not found", p.Object)
		}
		s.releaseUnsafe(obj)
		return nil, nil, nil
	case interop.MethodPing:
		return marshalValue("pong"), nil, nil
	}
	return nil, nil, remoteError(CodeMethodNotFound, "Method '%s' not found", method)
}

func (s *Server) create(p interop.CreateParams) (json.RawMessage, []interop.Event, *mediaerror.RemoteError) {
	obj := &object{kind: p.Type, params: p.ConstructorParams}
	switch p.Type {
	case interop.KindMediaPipeline:
		obj.id = interop.ObjectID(uuid.New().String() + "_kurento.MediaPipeline")
	case interop.KindHttpGetEndpoint, interop.KindHttpPostEndpoint, interop.KindPlayerEndpoint, interop.KindRecorderEndpoint:
		pipelineID, _ := p.ConstructorParams["mediaPipeline"].(string)
		pipeline, ok := s.objects[interop.ObjectID(pipelineID)]
		if !ok || pipeline.kind != interop.KindMediaPipeline {
			return nil, nil, remoteError(CodeObjectNotFound, "Object '%s' not found", pipelineID)
		}
		if p.Type == interop.KindPlayerEndpoint || p.Type == interop.KindRecorderEndpoint {
			if uri, _ := p.ConstructorParams["uri"].(string); uri == "" {
				return nil, nil, remoteError(CodeIllegalParam, "'uri' parameter is required")
			}
		}
		obj.pipeline = pipeline.id
		obj.id = interop.ObjectID(fmt.Sprintf("%s/%s_kurento.%s", pipeline.id, uuid.New(), p.Type))
	default:
		return nil, nil, remoteError(CodeTypeNotFound, "Type '%s' not found", p.Type)
	}
	s.objects[obj.id] = obj
	return marshalValue(obj.id), nil, nil
}

func (s *Server) invoke(p interop.InvokeParams) (json.RawMessage, []interop.Event, *mediaerror.RemoteError) {
	obj, ok := s.objects[p.Object]
	if !ok {
		return nil, nil, remoteError(CodeObjectNotFound, "Object '%s' not found", p.Object)
	}

	switch {
	case p.Operation == "getUrl" && (obj.kind == interop.KindHttpGetEndpoint || obj.kind == interop.KindHttpPostEndpoint):
		if obj.token == "" {
			obj.token = uuid.New().String()
			s.tokens[obj.token] = obj.id
		}
		return marshalValue(s.baseURL + "/media/" + obj.token), nil, nil
	case p.Operation == "connect":
		sinkID, _ := p.OperationParams["sink"].(string)
		sink, ok := s.objects[interop.ObjectID(sinkID)]
		if !ok {
			return nil, nil, remoteError(CodeObjectNotFound, "Object '%s' not found", sinkID)
		}
		if sink.pipeline != obj.pipeline {
			return nil, nil, remoteError(CodeIllegalParam, "elements belong to different pipelines")
		}
		obj.sinks = append(obj.sinks, sink.id)
		return nil, s.flowUnsafe(obj), nil
	case p.Operation == "play" && obj.kind == interop.KindPlayerEndpoint:
		obj.playing = true
		return nil, s.flowUnsafe(obj), nil
	case (p.Operation == "pause" || p.Operation == "stop") && obj.kind == interop.KindPlayerEndpoint:
		obj.playing = false
		return nil, nil, nil
	case (p.Operation == "record" || p.Operation == "stop") && obj.kind == interop.KindRecorderEndpoint:
		obj.playing = p.Operation == "record"
		return nil, nil, nil
	}
	return nil, nil, remoteError(CodeMethodNotFound, "Method '%s' not found for %s", p.Operation, obj.kind)
}

// flowUnsafe returns the events raised when a playing player feeds an HTTP
// endpoint with an open session: the clip plays to its end at once.
func (s *Server) flowUnsafe(player *object) []interop.Event {
	if player.kind != interop.KindPlayerEndpoint || !player.playing {
		return nil
	}
	var events []interop.Event
	for _, sinkID := range player.sinks {
		sink, ok := s.objects[sinkID]
		if !ok || !sink.session {
			continue
		}
		events = append(events, newEvent(player.id, interop.EventEndOfStream))
		player.playing = false
		if sink.terminateOnEOS() {
			sink.session = false
			events = append(events, newEvent(sink.id, interop.EventMediaSessionTerminated))
		}
		break
	}
	return events
}

// openSession is what an HTTP client fetching the endpoint URL causes.
func (s *Server) openSession(token string) (interop.ObjectID, bool) {
	s.mutex.Lock()
	id, ok := s.tokens[token]
	obj := s.objects[id]
	if !ok || obj == nil {
		s.mutex.Unlock()
		return "", false
	}
	obj.session = true
	events := []interop.Event{newEvent(obj.id, interop.EventMediaSessionStarted)}
	for _, candidate := range s.objects {
		for _, sink := range candidate.sinks {
			if sink == obj.id {
				events = append(events, s.flowUnsafe(candidate)...)
			}
		}
	}
	s.mutex.Unlock()

	s.enqueue(func() { s.emit(events) })
	return id, true
}

func (s *Server) releaseUnsafe(obj *object) {
	if obj.kind == interop.KindMediaPipeline {
		for _, child := range s.objects {
			if child.pipeline == obj.id {
				s.forgetUnsafe(child)
			}
		}
	}
	s.forgetUnsafe(obj)
}

func (s *Server) forgetUnsafe(obj *object) {
	delete(s.objects, obj.id)
	if obj.token != "" {
		delete(s.tokens, obj.token)
	}
	for id, sub := range s.subscriptions {
		if sub.object == obj.id {
			delete(s.subscriptions, id)
		}
	}
}

func (s *Server) subscribedUnsafe(objectID interop.ObjectID, eventType interop.EventType) bool {
	for _, sub := range s.subscriptions {
		if sub.object == objectID && sub.eventType == eventType {
			return true
		}
	}
	return false
}

// Has reports whether objectID exists on the server.
func (s *Server) Has(objectID interop.ObjectID) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.objects[objectID]
	return ok
}

// ObjectCount returns the number of live server objects.
func (s *Server) ObjectCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.objects)
}

// SubscriptionCount returns the number of subscriptions on objectID.
func (s *Server) SubscriptionCount(objectID interop.ObjectID) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	n := 0
	for _, sub := range s.subscriptions {
		if sub.object == objectID {
			n++
		}
	}
	return n
}
