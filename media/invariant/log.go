// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package invariant

import (
	"sync/atomic"

	"go.kurento.org/media/mediaerror"

	log "github.com/sirupsen/logrus"
)

// LogViolationExecutor logs every violation and keeps a per-kind tally.
type LogViolationExecutor struct {
	total  atomic.Uint64
	byKind map[mediaerror.ProtocolKind]*atomic.Uint64
}

var _ ViolationExecutor = (*LogViolationExecutor)(nil)

func NewLogViolationExecutor() *LogViolationExecutor {
	kinds := []mediaerror.ProtocolKind{
		mediaerror.DuplicateResolution,
		mediaerror.UnknownRequest,
		mediaerror.UnknownObject,
		mediaerror.MalformedMessage,
		mediaerror.EventQueueOverflow,
		mediaerror.ListenerFailure,
		mediaerror.DuplicateObjectID,
	}
	executor := &LogViolationExecutor{byKind: make(map[mediaerror.ProtocolKind]*atomic.Uint64, len(kinds))}
	for _, kind := range kinds {
		executor.byKind[kind] = &atomic.Uint64{}
	}
	return executor
}

func (executor *LogViolationExecutor) Exec(err mediaerror.ProtocolError) {
	executor.total.Add(1)
	if counter, ok := executor.byKind[err.Kind]; ok {
		counter.Add(1)
	}
	log.WithField("errorType", mediaerror.Protocol).WithField("kind", err.Kind).Warn(err.Statement)
}

func (executor *LogViolationExecutor) Count() uint64 {
	return executor.total.Load()
}

func (executor *LogViolationExecutor) CountOf(kind mediaerror.ProtocolKind) uint64 {
	if counter, ok := executor.byKind[kind]; ok {
		return counter.Load()
	}
	return 0
}
