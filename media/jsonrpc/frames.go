// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package jsonrpc

import (
	"bytes"
	_ "embed"
	"encoding/json"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	log "github.com/sirupsen/logrus"

	"go.kurento.org/media/mediaerror"
)

// Version is the only protocol version spoken.
const Version = "2.0"

// MethodOnEvent is the notification the media server pushes events with.
const MethodOnEvent = "onEvent"

//go:embed schema/frame-schema.json
var frameSchemaJSON []byte
var frameSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("frame-schema.json", bytes.NewReader(frameSchemaJSON)); err != nil {
		log.WithError(err).Error("error adding frame schema resource")
		panic(err)
	}

	var err error
	frameSchema, err = compiler.Compile("frame-schema.json")
	if err != nil {
		log.WithError(err).Error("error compiling frame schema")
		panic(err)
	}
}

// Request is a client to server call. ID is absent for notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response answers the Request with the same ID.
type Response struct {
	JSONRPC string                  `json:"jsonrpc"`
	ID      *uint64                 `json:"id"`
	Result  json.RawMessage         `json:"result,omitempty"`
	Error   *mediaerror.RemoteError `json:"error,omitempty"`
}

// Frame is any inbound message, request or response.
type Frame struct {
	JSONRPC string                  `json:"jsonrpc"`
	ID      *uint64                 `json:"id,omitempty"`
	Method  string                  `json:"method,omitempty"`
	Params  json.RawMessage         `json:"params,omitempty"`
	Result  json.RawMessage         `json:"result,omitempty"`
	Error   *mediaerror.RemoteError `json:"error,omitempty"`
}

// ParseFrame decodes msg and checks it against the frame schema.
func ParseFrame(msg []byte) (*Frame, error) {
	var doc interface{}
	if err := json.Unmarshal(msg, &doc); err != nil {
		return nil, err
	}
	if err := frameSchema.Validate(doc); err != nil {
		return nil, err
	}
	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// NewRequest builds a request frame with params marshalled as is.
func NewRequest(id uint64, method string, params interface{}) (*Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &Request{JSONRPC: Version, ID: &id, Method: method, Params: raw}, nil
}
