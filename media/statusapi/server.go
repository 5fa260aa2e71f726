// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package statusapi exposes a client's internal state over HTTP for
// debugging.
package statusapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Server is the status API server
//
// As with the media server connection, Listen and Serve are separate so the
// address is known before anything else starts.
type Server struct {
	addr     string
	server   *http.Server
	listener net.Listener
}

// NewServer ...
func NewServer(addr string, provider StateProvider) *Server {
	return &Server{
		addr:   addr,
		server: &http.Server{Handler: NewRouter(provider)},
	}
}

// Listen on addr. A zero port is allocated dynamically.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.addr = ln.Addr().String()
	log.WithField("addr", s.addr).Info("Status API listening")
	return nil
}

// Addr is the address the server listens on, once Listen returned.
func (s *Server) Addr() string {
	return s.addr
}

// Serve requests until ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		errs <- s.server.Serve(s.listener)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Shutdown()
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down server
func (s *Server) Shutdown() error {
	return s.server.Shutdown(context.Background())
}
