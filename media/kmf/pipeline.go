// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package kmf

import (
	"context"

	"go.kurento.org/media/continuation"
	"go.kurento.org/media/interop"
	"go.kurento.org/media/mediaerror"
)

// MediaPipeline is a container of media elements. Releasing it releases
// every element built in it.
type MediaPipeline struct {
	remoteObject
}

var _ MediaObject = (*MediaPipeline)(nil)

// NewMediaPipeline returns an unbuilt pipeline proxy.
func (c *Client) NewMediaPipeline() *MediaPipeline {
	return &MediaPipeline{remoteObject: newRemoteObject(c, interop.KindMediaPipeline, nil)}
}

// BuildAsync creates the pipeline on the server.
func (p *MediaPipeline) BuildAsync(ctx context.Context) (*continuation.Future[*MediaPipeline], error) {
	return buildAs(ctx, &p.remoteObject, nil, p)
}

// Build is BuildAsync followed by a bounded wait.
func (p *MediaPipeline) Build(ctx context.Context) error {
	f, err := p.BuildAsync(ctx)
	_, err = await(ctx, p.client, f, err)
	return err
}

// ElementOption sets a constructor parameter of a media element.
type ElementOption func(params map[string]interface{})

// WithConstructorParam sets an arbitrary constructor parameter.
func WithConstructorParam(name string, value interface{}) ElementOption {
	return func(params map[string]interface{}) {
		params[name] = value
	}
}

// element is the part shared by everything that lives in a pipeline.
type element struct {
	remoteObject
	pipeline *MediaPipeline
	params   map[string]interface{}
}

func newElement(pipeline *MediaPipeline, kind interop.ObjectKind, opts []ElementOption) element {
	params := map[string]interface{}{}
	for _, opt := range opts {
		opt(params)
	}
	return element{
		remoteObject: newRemoteObject(pipeline.client, kind, pipeline.object),
		pipeline:     pipeline,
		params:       params,
	}
}

// Pipeline ...
func (e *element) Pipeline() *MediaPipeline {
	return e.pipeline
}

func buildElement[T any](ctx context.Context, e *element, self T) (*continuation.Future[T], error) {
	if err := e.pipeline.object.RequireLive(); err != nil {
		return nil, &mediaerror.UsageError{Op: "build", Err: err}
	}
	params := make(map[string]interface{}, len(e.params)+1)
	for k, v := range e.params {
		params[k] = v
	}
	params["mediaPipeline"] = e.pipeline.ID()
	return buildAs(ctx, &e.remoteObject, params, self)
}

// Connect links this element's output to sink's input.
func (e *element) Connect(ctx context.Context, sink MediaElement) (*continuation.Future[struct{}], error) {
	if err := sink.remote().object.RequireLive(); err != nil {
		return nil, &mediaerror.UsageError{Op: "connect", Err: err}
	}
	return e.invokeVoid(ctx, "connect", map[string]interface{}{"sink": sink.ID()})
}

// MediaElement is a MediaObject that lives in a pipeline.
type MediaElement interface {
	MediaObject
	Pipeline() *MediaPipeline
	Connect(ctx context.Context, sink MediaElement) (*continuation.Future[struct{}], error)
}
