// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package invariant is the observability sink for protocol violations. A
// violation is never returned to a caller and never crashes the dispatch core;
// the installed executor decides what happens to it.
package invariant

import (
	"fmt"
	"sync"

	"go.kurento.org/media/mediaerror"
)

type ViolationExecutor interface {
	Exec(mediaerror.ProtocolError)
}

func Check(cond bool, kind mediaerror.ProtocolKind, statement string) {
	if !cond {
		Violate(kind, statement)
	}
}

func Violate(kind mediaerror.ProtocolKind, statement string) {
	std.mtx.Lock()
	defer std.mtx.Unlock()

	std.executor.Exec(mediaerror.ProtocolError{Kind: kind, Statement: statement})
}

func Violatef(kind mediaerror.ProtocolKind, format string, args ...any) {
	Violate(kind, fmt.Sprintf(format, args...))
}

// SetViolationExecutor swaps the process-wide executor and returns the
// previous one so tests can restore it.
func SetViolationExecutor(executor ViolationExecutor) ViolationExecutor {
	std.mtx.Lock()
	defer std.mtx.Unlock()

	prev := std.executor
	std.executor = executor
	return prev
}

// Count returns the number of violations seen by the default executor.
func Count() uint64 {
	return defaultExecutor.Count()
}

var defaultExecutor = NewLogViolationExecutor()

var std = struct {
	executor ViolationExecutor
	mtx      sync.Mutex
}{
	executor: defaultExecutor,
}
