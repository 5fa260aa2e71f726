// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package kmf holds the proxies applications use to drive a media server.

Every remote call returns immediately with a continuation.Future that is
resolved exactly once, with the result or with the error the server
reported. Calls that the object's lifecycle state does not allow fail at once
with a *mediaerror.UsageError and never reach the server.

	client, err := kmf.Dial(ctx, cfg)
	pipeline := client.NewMediaPipeline()
	if err := pipeline.Build(ctx); err != nil {
		...
	}
	endpoint := pipeline.NewHttpGetEndpoint(kmf.WithTerminateOnEOS())
	built, err := endpoint.BuildAsync(ctx)
	built.Then(continuation.Continuation[*kmf.HttpGetEndpoint]{
		OnSuccess: func(e *kmf.HttpGetEndpoint) { ... },
		OnError:   func(err error) { ... },
	})

Listeners are registered asynchronously as well: events raised before the
registration future resolves are not delivered to it.
*/
package kmf
