// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package continuation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/invariant"
	"go.kurento.org/media/mediaerror"
)

// Executor runs continuation code off the resolving goroutine.
type Executor interface {
	Go(fn func())
}

// Continuation is a two-armed completion handler. Exactly one arm is called,
// once. A nil arm ignores that outcome.
type Continuation[T any] struct {
	OnSuccess func(T)
	OnError   func(error)
}

func (c Continuation[T]) run(value T, err error) {
	if err != nil {
		if c.OnError != nil {
			c.OnError(err)
		}
		return
	}
	if c.OnSuccess != nil {
		c.OnSuccess(value)
	}
}

// Future is a single-resolution slot. The first call to Complete wins, later
// calls are refused.
type Future[T any] struct {
	name     string
	executor Executor

	mutex         sync.Mutex
	resolved      bool
	abandoned     bool
	continuations []Continuation[T]
	value         T
	err           error
	done          chan struct{}
}

// NewFuture creates an unresolved future. name is used in timeout errors and
// logs.
func NewFuture[T any](name string, executor Executor) *Future[T] {
	return &Future[T]{
		name:     name,
		executor: executor,
		done:     make(chan struct{}),
	}
}

// Complete resolves the future and schedules its continuations. It returns
// false if the future was already resolved, in which case nothing happens.
func (f *Future[T]) Complete(value T, err error) bool {
	f.mutex.Lock()
	if f.resolved {
		f.mutex.Unlock()
		return false
	}
	f.resolved = true
	f.value, f.err = value, err
	continuations := f.continuations
	f.continuations = nil
	late := f.abandoned && len(continuations) == 0
	close(f.done)
	f.mutex.Unlock()

	if late {
		log.WithField("future", f.name).WithError(err).Warn("Late resolution, no caller is waiting any more")
	}
	for _, c := range continuations {
		f.schedule(c)
	}
	return true
}

// Then registers a continuation. If the future is already resolved the
// continuation is scheduled at once.
func (f *Future[T]) Then(c Continuation[T]) {
	f.mutex.Lock()
	if !f.resolved {
		f.continuations = append(f.continuations, c)
		f.mutex.Unlock()
		return
	}
	f.mutex.Unlock()
	f.schedule(c)
}

func (f *Future[T]) schedule(c Continuation[T]) {
	value, err := f.value, f.err
	run := func() {
		defer func() {
			if r := recover(); r != nil {
				invariant.Violatef(mediaerror.ListenerFailure, "continuation of %s panicked: %v", f.name, r)
			}
		}()
		c.run(value, err)
	}
	if f.executor == nil {
		go run()
		return
	}
	f.executor.Go(run)
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome if the future is resolved.
func (f *Future[T]) Result() (value T, ok bool, err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.value, f.resolved, f.err
}

// Await blocks until the future resolves or ctx is done. Giving up returns a
// TimeoutError and leaves the future, and the request behind it, in place.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.resolved {
		return f.value, f.err
	}
	f.abandoned = true
	var zero T
	return zero, &mediaerror.TimeoutError{Op: f.name, Err: ctx.Err()}
}

// AwaitTimeout is Await bounded by d.
func (f *Future[T]) AwaitTimeout(d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return f.Await(ctx)
}

// Map derives a future resolved with fn applied to the value of f. Errors of
// f and of fn both fail the derived future.
func Map[T, U any](f *Future[T], name string, fn func(T) (U, error)) *Future[U] {
	derived := NewFuture[U](name, f.executor)
	f.Then(Continuation[T]{
		OnSuccess: func(value T) {
			mapped, err := fn(value)
			derived.Complete(mapped, err)
		},
		OnError: func(err error) {
			var zero U
			derived.Complete(zero, err)
		},
	})
	return derived
}
