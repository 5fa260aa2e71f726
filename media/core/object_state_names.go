// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

// String values of possible media object states
const (
	ObjectNoneStateName = "None"
	// ObjectNoneState -> ObjectPendingState on build
	ObjectPendingStateName = "Pending"
	// ObjectPendingState -> ObjectLiveState once the server acknowledged the build
	ObjectLiveStateName = "Live"
	// terminal, reachable from Pending (build failed or aborted) and Live
	ObjectReleasedStateName = "Released"
)
