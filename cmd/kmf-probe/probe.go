// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/config"
	"go.kurento.org/media/continuation"
	"go.kurento.org/media/kmf"
	"go.kurento.org/media/statusapi"
)

var errConnectionLost = errors.New("media server connection lost")

// run drives one probe session until the media session ends or ctx is
// cancelled. The endpoint URL is written to out.
func run(ctx context.Context, cfg *config.Config, playerURI string, out io.Writer) error {
	client, err := kmf.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.StatusAddr != "" {
		status := statusapi.NewServer(cfg.StatusAddr, client)
		if err := status.Listen(); err != nil {
			return err
		}
		go status.Serve(ctx)
		defer status.Shutdown()
	}

	pipeline := client.NewMediaPipeline()
	if err := pipeline.Build(ctx); err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() {
		// ctx may be cancelled by now
		if err := kmf.Release(context.Background(), pipeline); err != nil {
			log.WithError(err).Warn("Failed to release pipeline")
		}
	}()

	endpoint := pipeline.NewHttpGetEndpoint(kmf.WithTerminateOnEOS())
	if err := endpoint.Build(ctx); err != nil {
		return fmt.Errorf("build endpoint: %w", err)
	}

	timeout := cfg.Client.RequestTimeout
	registered := func(f *continuation.Future[*kmf.ListenerRegistration], err error) error {
		if err == nil {
			_, err = f.AwaitTimeout(timeout)
		}
		if err != nil {
			return fmt.Errorf("register listener: %w", err)
		}
		return nil
	}

	finished := make(chan kmf.Event, 2)
	finish := func(ev kmf.Event) {
		select {
		case finished <- ev:
		default:
		}
	}

	var player *kmf.PlayerEndpoint
	if playerURI != "" {
		player = pipeline.NewPlayerEndpoint(playerURI)
		if err := player.Build(ctx); err != nil {
			return fmt.Errorf("build player: %w", err)
		}
		connected, err := player.Connect(ctx, endpoint)
		if err == nil {
			_, err = connected.AwaitTimeout(timeout)
		}
		if err != nil {
			return fmt.Errorf("connect player: %w", err)
		}
		if err := registered(player.AddEndOfStreamListener(ctx, finish)); err != nil {
			return err
		}
	}

	err = registered(endpoint.AddMediaSessionStartedListener(ctx, func(ev kmf.Event) {
		log.WithField("object", ev.Source).Info("Media session started")
		if player == nil {
			return
		}
		played, err := player.Play(ctx)
		if err != nil {
			log.WithError(err).Warn("Cannot play")
			return
		}
		played.Then(continuation.Continuation[struct{}]{
			OnError: func(err error) { log.WithError(err).Warn("Play failed") },
		})
	}))
	if err != nil {
		return err
	}
	if err := registered(endpoint.AddMediaSessionTerminatedListener(ctx, finish)); err != nil {
		return err
	}

	urlFuture, err := endpoint.GetUrl(ctx)
	if err != nil {
		return err
	}
	url, err := urlFuture.AwaitTimeout(timeout)
	if err != nil {
		return fmt.Errorf("get url: %w", err)
	}
	fmt.Fprintln(out, url)

	select {
	case ev := <-finished:
		log.WithField("event", ev.Type).WithField("object", ev.Source).Info("Media session finished")
		return nil
	case <-client.Done():
		return errConnectionLost
	case <-ctx.Done():
		log.Info("Interrupted")
		return nil
	}
}
