// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statusapi

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

const errorTypeObjectNotFound = "Client.ObjectNotFound"

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}

func StateHandler(w http.ResponseWriter, r *http.Request, provider StateProvider) {
	render.JSON(w, r, provider.Describe())
}

func ObjectHandler(w http.ResponseWriter, r *http.Request, provider StateProvider) {
	// element ids contain slashes, so the id is the whole route remainder
	id := chi.URLParam(r, "*")
	for _, object := range provider.Describe().Objects {
		if object.ID == id {
			render.JSON(w, r, object)
			return
		}
	}
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorResponse{
		ErrorType:    errorTypeObjectNotFound,
		ErrorMessage: "no live object with id " + id,
	})
}
