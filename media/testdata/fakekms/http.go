// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fakekms

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/interop"
	"go.kurento.org/media/jsonrpc"
	"go.kurento.org/media/mediaerror"
)

// MediaContent is the body served to HTTP clients of an endpoint URL.
const MediaContent = "fake media"

type errorResponse struct {
	ErrorMessage string `json:"errorMessage"`
}

// Handler serves the media URLs handed out by getUrl and, on /kurento, the
// JSON-RPC websocket.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Get("/media/{token}", s.serveMedia)
	router.Get("/kurento", s.ServeWS)
	return router
}

func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	id, ok := s.openSession(token)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{ErrorMessage: "no endpoint for " + token})
		return
	}
	log.WithField("object", id).Debug("fakekms: media session opened")
	w.Header().Set("Content-Type", "video/webm")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(MediaContent))
}

type wsPeer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (p *wsPeer) write(v interface{}) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.WriteJSON(v); err != nil {
		log.WithError(err).Debug("fakekms: websocket write failed")
	}
}

func (p *wsPeer) writeRaw(msg []byte) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.WithError(err).Debug("fakekms: websocket write failed")
	}
}

func (p *wsPeer) resolve(id uint64, value json.RawMessage, sessionID string, err *mediaerror.RemoteError) {
	resp := jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: &id}
	if err != nil {
		resp.Error = err
	} else {
		resp.Result, _ = json.Marshal(interop.ValueResult{Value: value, SessionID: sessionID})
	}
	p.write(resp)
}

func (p *wsPeer) notify(event interop.Event) {
	var notification interop.EventNotification
	notification.Value.Data = event.Payload
	notification.Value.Object = event.Source
	notification.Value.Type = event.Type
	params, _ := json.Marshal(notification)
	p.write(jsonrpc.Request{JSONRPC: jsonrpc.Version, Method: jsonrpc.MethodOnEvent, Params: params})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS accepts a JSON-RPC client. The newest connection becomes the peer
// that receives responses and events.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("fakekms: websocket upgrade failed")
		return
	}
	p := &wsPeer{conn: conn}
	s.mutex.Lock()
	s.peer = p
	s.mutex.Unlock()

	go func() {
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req jsonrpc.Request
			if err := json.Unmarshal(msg, &req); err != nil || req.ID == nil {
				continue
			}
			id, method, params := *req.ID, interop.Method(req.Method), req.Params
			if !s.enqueue(func() { s.handle(p, id, method, params) }) {
				return
			}
		}
	}()
}

// InjectFrame writes msg verbatim to the websocket peer.
func (s *Server) InjectFrame(msg []byte) {
	s.enqueue(func() {
		s.mutex.Lock()
		p, ok := s.peer.(*wsPeer)
		s.mutex.Unlock()
		if ok {
			p.writeRaw(msg)
		}
	})
}

// DropConnection closes the websocket peer's connection abruptly.
func (s *Server) DropConnection() {
	s.mutex.Lock()
	p, ok := s.peer.(*wsPeer)
	s.mutex.Unlock()
	if ok {
		p.conn.Close()
	}
}
