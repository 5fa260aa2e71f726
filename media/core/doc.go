// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package core tracks the lifecycle of remote media objects and the listener
registrations attached to them.

# States

MediaObject implements the state object design pattern:

	None -> Pending -> Live -> Released
	        Pending ---------> Released   (build failed or aborted)

Released is terminal. Transitions that are not allowed return ErrNotAllowed,
anything attempted on a released object returns ErrObjectReleased. Both are
detected locally, without a round trip to the media server.

# Registrations

A ListenerRegistration is installed only on a live object and holds only the
object's server id. Releasing the object drops all its registrations and
closes its mailbox in the same critical section, so an event enqueued after
the release is refused.

# Mailboxes

Every live object that receives events owns a bounded mailbox served by one
goroutine. Each event is queued together with the registrations matching it
at that moment, so a listener registered later never sees an earlier
occurrence. Events are handed to the Deliverer in arrival order and listener
code runs outside the object's lock, so a listener may call back into the
client. The channel returned by Release closes once the mailbox goroutine has
finished; waiting on it from inside a listener of the same object deadlocks.

# ObjectTable

ObjectTable is the arena of objects known to one client, indexed by local
handle and by server id, with pipelines owning their elements.
*/
package core
