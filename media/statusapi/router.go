// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statusapi

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/core/statejson"
)

// StateProvider is implemented by kmf.Client.
type StateProvider interface {
	Describe() statejson.InternalStateDescription
}

// NewRouter returns the status endpoints:
//
//	GET /ping                  liveness, answers "pong"
//	GET /state                 every tracked object, pending requests, violations
//	GET /state/objects/{id}    one object by server id
func NewRouter(provider StateProvider) *chi.Mux {
	r := chi.NewRouter()
	r.Use(accessLogDecorator)

	r.Get("/ping", PingHandler)
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) { StateHandler(w, r, provider) })
	r.Get("/state/objects/*", func(w http.ResponseWriter, r *http.Request) { ObjectHandler(w, r, provider) })
	return r
}

func accessLogDecorator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("statusapi: -> %s %s", r.Method, r.URL)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := http.StatusOK
		if ww.Status() != 0 {
			status = ww.Status()
		}
		if status/100 != 2 {
			log.Warnf("statusapi: <- %s %d", r.URL, status)
		} else {
			log.Debugf("statusapi: <- %s %d", r.URL, status)
		}
	})
}
