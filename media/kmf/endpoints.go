// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package kmf

import (
	"context"
	"sync"

	"go.kurento.org/media/continuation"
	"go.kurento.org/media/interop"
)

// Media profiles accepted by HTTP endpoints.
const (
	MediaProfileWebM = "WEBM"
	MediaProfileMP4  = "MP4"
)

// WithTerminateOnEOS ends the HTTP session when the stream ends.
func WithTerminateOnEOS() ElementOption {
	return WithConstructorParam("terminateOnEOS", true)
}

// WithMediaProfile ...
func WithMediaProfile(profile string) ElementOption {
	return WithConstructorParam("mediaProfile", profile)
}

// WithDisconnectionTimeout sets how long, in seconds, the endpoint waits for
// a client to come back.
func WithDisconnectionTimeout(seconds int) ElementOption {
	return WithConstructorParam("disconnectionTimeout", seconds)
}

// WithUseEncodedMedia ...
func WithUseEncodedMedia() ElementOption {
	return WithConstructorParam("useEncodedMedia", true)
}

// httpEndpoint serves media to, or takes it from, plain HTTP clients.
type httpEndpoint struct {
	element

	mutex sync.Mutex
	url   string
}

// GetUrl asks the server for the URL HTTP clients use. The value is kept for
// CachedURL.
func (e *httpEndpoint) GetUrl(ctx context.Context) (*continuation.Future[string], error) {
	f, err := invokeValue[string](ctx, &e.remoteObject, "getUrl", nil)
	if err != nil {
		return nil, err
	}
	return continuation.Map(f, "getUrl", func(url string) (string, error) {
		e.mutex.Lock()
		defer e.mutex.Unlock()
		e.url = url
		return url, nil
	}), nil
}

// CachedURL returns the URL from the last successful GetUrl, without a round
// trip.
func (e *httpEndpoint) CachedURL() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.url
}

// AddMediaSessionStartedListener ...
func (e *httpEndpoint) AddMediaSessionStartedListener(ctx context.Context, listener Listener) (*continuation.Future[*ListenerRegistration], error) {
	return e.AddEventListener(ctx, interop.EventMediaSessionStarted, listener)
}

// AddMediaSessionTerminatedListener ...
func (e *httpEndpoint) AddMediaSessionTerminatedListener(ctx context.Context, listener Listener) (*continuation.Future[*ListenerRegistration], error) {
	return e.AddEventListener(ctx, interop.EventMediaSessionTerminated, listener)
}

// HttpGetEndpoint serves the media it receives to HTTP GET clients.
type HttpGetEndpoint struct {
	httpEndpoint
}

var _ MediaElement = (*HttpGetEndpoint)(nil)

// NewHttpGetEndpoint ...
func (p *MediaPipeline) NewHttpGetEndpoint(opts ...ElementOption) *HttpGetEndpoint {
	return &HttpGetEndpoint{httpEndpoint{element: newElement(p, interop.KindHttpGetEndpoint, opts)}}
}

// BuildAsync ...
func (e *HttpGetEndpoint) BuildAsync(ctx context.Context) (*continuation.Future[*HttpGetEndpoint], error) {
	return buildElement(ctx, &e.element, e)
}

// Build ...
func (e *HttpGetEndpoint) Build(ctx context.Context) error {
	f, err := e.BuildAsync(ctx)
	_, err = await(ctx, e.client, f, err)
	return err
}

// HttpPostEndpoint takes media uploaded with HTTP POST.
type HttpPostEndpoint struct {
	httpEndpoint
}

var _ MediaElement = (*HttpPostEndpoint)(nil)

// NewHttpPostEndpoint ...
func (p *MediaPipeline) NewHttpPostEndpoint(opts ...ElementOption) *HttpPostEndpoint {
	return &HttpPostEndpoint{httpEndpoint{element: newElement(p, interop.KindHttpPostEndpoint, opts)}}
}

// BuildAsync ...
func (e *HttpPostEndpoint) BuildAsync(ctx context.Context) (*continuation.Future[*HttpPostEndpoint], error) {
	return buildElement(ctx, &e.element, e)
}

// Build ...
func (e *HttpPostEndpoint) Build(ctx context.Context) error {
	f, err := e.BuildAsync(ctx)
	_, err = await(ctx, e.client, f, err)
	return err
}

// AddEndOfStreamListener ...
func (e *HttpPostEndpoint) AddEndOfStreamListener(ctx context.Context, listener Listener) (*continuation.Future[*ListenerRegistration], error) {
	return e.AddEventListener(ctx, interop.EventEndOfStream, listener)
}

// PlayerEndpoint reads media from a URI and feeds it into the pipeline.
type PlayerEndpoint struct {
	element
}

var _ MediaElement = (*PlayerEndpoint)(nil)

// NewPlayerEndpoint ...
func (p *MediaPipeline) NewPlayerEndpoint(uri string, opts ...ElementOption) *PlayerEndpoint {
	opts = append([]ElementOption{WithConstructorParam("uri", uri)}, opts...)
	return &PlayerEndpoint{element: newElement(p, interop.KindPlayerEndpoint, opts)}
}

// BuildAsync ...
func (e *PlayerEndpoint) BuildAsync(ctx context.Context) (*continuation.Future[*PlayerEndpoint], error) {
	return buildElement(ctx, &e.element, e)
}

// Build ...
func (e *PlayerEndpoint) Build(ctx context.Context) error {
	f, err := e.BuildAsync(ctx)
	_, err = await(ctx, e.client, f, err)
	return err
}

// Play ...
func (e *PlayerEndpoint) Play(ctx context.Context) (*continuation.Future[struct{}], error) {
	return e.invokeVoid(ctx, "play", nil)
}

// Pause ...
func (e *PlayerEndpoint) Pause(ctx context.Context) (*continuation.Future[struct{}], error) {
	return e.invokeVoid(ctx, "pause", nil)
}

// Stop ...
func (e *PlayerEndpoint) Stop(ctx context.Context) (*continuation.Future[struct{}], error) {
	return e.invokeVoid(ctx, "stop", nil)
}

// AddEndOfStreamListener ...
func (e *PlayerEndpoint) AddEndOfStreamListener(ctx context.Context, listener Listener) (*continuation.Future[*ListenerRegistration], error) {
	return e.AddEventListener(ctx, interop.EventEndOfStream, listener)
}

// RecorderEndpoint stores the media it receives at a URI.
type RecorderEndpoint struct {
	element
}

var _ MediaElement = (*RecorderEndpoint)(nil)

// NewRecorderEndpoint ...
func (p *MediaPipeline) NewRecorderEndpoint(uri string, opts ...ElementOption) *RecorderEndpoint {
	opts = append([]ElementOption{WithConstructorParam("uri", uri)}, opts...)
	return &RecorderEndpoint{element: newElement(p, interop.KindRecorderEndpoint, opts)}
}

// BuildAsync ...
func (e *RecorderEndpoint) BuildAsync(ctx context.Context) (*continuation.Future[*RecorderEndpoint], error) {
	return buildElement(ctx, &e.element, e)
}

// Build ...
func (e *RecorderEndpoint) Build(ctx context.Context) error {
	f, err := e.BuildAsync(ctx)
	_, err = await(ctx, e.client, f, err)
	return err
}

// Record ...
func (e *RecorderEndpoint) Record(ctx context.Context) (*continuation.Future[struct{}], error) {
	return e.invokeVoid(ctx, "record", nil)
}

// Stop ...
func (e *RecorderEndpoint) Stop(ctx context.Context) (*continuation.Future[struct{}], error) {
	return e.invokeVoid(ctx, "stop", nil)
}
