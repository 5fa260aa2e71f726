// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package mediaerror

// This package defines the error kinds a client operation can end with.
// Separate package for namespacing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorType classifies a failure for logs and the status API.
type ErrorType string

const (
	Usage      ErrorType = "Client.UsageError"      // operation not allowed in the object's current state
	Remote     ErrorType = "Server.RemoteError"     // the media server reported a failure
	Protocol   ErrorType = "Client.ProtocolError"   // duplicate or unknown resolution, event for unknown object
	Timeout    ErrorType = "Client.TimeoutError"    // the caller gave up waiting
	Connection ErrorType = "Client.ConnectionError" // the transport went away with requests in flight
	Unknown    ErrorType = "Unknown"
)

// UsageError is a caller mistake detectable without a round trip. It is
// always returned synchronously.
type UsageError struct {
	Op  string
	Err error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UsageError) Unwrap() error { return e.Err }

// RemoteError is a failure reported by the media server for one request.
type RemoteError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("media server error %d: %s", e.Code, e.Message)
}

// TimeoutError is returned to a caller whose bounded wait expired. The
// underlying request is not cancelled.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out waiting for result: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ProtocolKind tells apart the ways the server side can break the protocol.
type ProtocolKind string

const (
	DuplicateResolution ProtocolKind = "DuplicateResolution"
	UnknownRequest      ProtocolKind = "UnknownRequest"
	UnknownObject       ProtocolKind = "UnknownObject"
	MalformedMessage    ProtocolKind = "MalformedMessage"
	EventQueueOverflow  ProtocolKind = "EventQueueOverflow"
	ListenerFailure     ProtocolKind = "ListenerFailure"
	DuplicateObjectID   ProtocolKind = "DuplicateObjectID"
)

// ProtocolError is systemic: no single caller can act on it, so it is only
// ever reported to the violation sink, never returned.
type ProtocolError struct {
	Kind      ProtocolKind
	Statement string
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation (%s): %s", e.Kind, e.Statement)
}

// ConnectionError fails requests that were in flight when the transport
// stopped.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to media server lost: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TypeOf maps an error to its ErrorType.
func TypeOf(err error) ErrorType {
	var (
		usage   *UsageError
		remote  *RemoteError
		timeout *TimeoutError
		conn    *ConnectionError
		proto   ProtocolError
	)
	switch {
	case errors.As(err, &usage):
		return Usage
	case errors.As(err, &remote):
		return Remote
	case errors.As(err, &timeout):
		return Timeout
	case errors.As(err, &conn):
		return Connection
	case errors.As(err, &proto):
		return Protocol
	}
	return Unknown
}
