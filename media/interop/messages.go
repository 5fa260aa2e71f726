// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package interop

import "encoding/json"

// CreateParams are the parameters of a create request.
type CreateParams struct {
	Type              ObjectKind             `json:"type"`
	ConstructorParams map[string]interface{} `json:"constructorParams"`
	Properties        map[string]interface{} `json:"properties,omitempty"`
}

// InvokeParams are the parameters of an invoke request.
type InvokeParams struct {
	Object          ObjectID               `json:"object"`
	Operation       string                 `json:"operation"`
	OperationParams map[string]interface{} `json:"operationParams,omitempty"`
}

// SubscribeParams are the parameters of a subscribe request.
type SubscribeParams struct {
	Type   EventType `json:"type"`
	Object ObjectID  `json:"object"`
}

// UnsubscribeParams are the parameters of an unsubscribe request.
type UnsubscribeParams struct {
	Subscription string   `json:"subscription"`
	Object       ObjectID `json:"object"`
}

// ReleaseParams are the parameters of a release request.
type ReleaseParams struct {
	Object ObjectID `json:"object"`
}

// ValueResult is the envelope every successful response is wrapped in.
type ValueResult struct {
	Value     json.RawMessage `json:"value,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// EventNotification is the payload of an onEvent notification.
type EventNotification struct {
	Value struct {
		Data   json.RawMessage `json:"data"`
		Object ObjectID        `json:"object"`
		Type   EventType       `json:"type"`
	} `json:"value"`
}

// AsEvent converts the notification into an Event.
func (n *EventNotification) AsEvent() Event {
	return Event{
		Type:    n.Value.Type,
		Source:  n.Value.Object,
		Payload: n.Value.Data,
	}
}
