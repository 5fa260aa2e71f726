// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.kurento.org/media/config"
	"go.kurento.org/media/testdata/fakekms"
)

func startFakeServer(t *testing.T) (*fakekms.Server, *config.Config) {
	server := fakekms.New("")
	httpServer := httptest.NewServer(server.Handler())
	server.SetBaseURL(httpServer.URL)
	t.Cleanup(func() {
		httpServer.Close()
		server.Close()
	})

	cfg := config.Default()
	cfg.URL = "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/kurento"
	cfg.Client.RequestTimeout = 2 * time.Second
	return server, cfg
}

// fetchPrintedURL reads the URL run prints and fetches it like a media
// player would.
func fetchPrintedURL(t *testing.T, out io.Reader) {
	line, err := bufio.NewReader(out).ReadString('\n')
	require.NoError(t, err)
	resp, err := http.Get(strings.TrimSpace(line))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProbePlaysUntilEndOfStream(t *testing.T) {
	server, cfg := startFakeServer(t)
	out, w := io.Pipe()

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), cfg, "http://files.example/small.webm", w) }()

	fetchPrintedURL(t, out)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("probe did not finish")
	}
	assert.Equal(t, 0, server.ObjectCount())
}

func TestProbeStopsOnCancel(t *testing.T) {
	server, cfg := startFakeServer(t)
	out, w := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, "", w) }()

	// without a player the session never ends by itself
	fetchPrintedURL(t, out)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("probe did not stop")
	}
	assert.Equal(t, 0, server.ObjectCount())
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	t.Setenv("KMS_URL", "ws://env:8888/kurento")

	cfg, err := loadConfig(options{Timeout: 3 * time.Second, StatusAddr: ":9090"})
	require.NoError(t, err)
	assert.Equal(t, "ws://env:8888/kurento", cfg.URL)
	assert.Equal(t, 3*time.Second, cfg.Client.RequestTimeout)
	assert.Equal(t, ":9090", cfg.StatusAddr)

	cfg, err = loadConfig(options{URL: "ws://flag:8888/kurento", LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "ws://flag:8888/kurento", cfg.URL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"--url", "ws://kms:8888/kurento", "--timeout", "5s", "--player-uri", "file:///clip.webm"})
	require.NoError(t, err)
	assert.Equal(t, "ws://kms:8888/kurento", opts.URL)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, "file:///clip.webm", opts.PlayerURI)

	_, err = parseArgs([]string{"--help"})
	require.Error(t, err)
	assert.True(t, isHelp(err))
	assert.Contains(t, err.Error(), "--player-uri")

	_, err = parseArgs([]string{"--no-such-flag"})
	require.Error(t, err)
	assert.False(t, isHelp(err))
}
