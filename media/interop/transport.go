// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"context"
	"errors"
)

// ErrTransportClosed is returned by Send once the transport has been closed.
var ErrTransportClosed = errors.New("transport closed")

// ErrAlreadyBound is returned when a transport is bound twice.
var ErrAlreadyBound = errors.New("transport already bound to a receiver")

// Transport is the connection to the media server. Send is fire-and-forget:
// its completion arrives later through Receiver.Resolve.
type Transport interface {
	Bind(Receiver) error
	Send(ctx context.Context, id RequestID, op Operation) error
	Close() error
}

// Receiver is implemented by the client core. A transport calls it from a
// single goroutine, in the order messages arrive on the wire.
type Receiver interface {
	Resolve(id RequestID, result Result, err error)
	Dispatch(event Event)
	ConnectionLost(err error)
}
