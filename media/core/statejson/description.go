// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package statejson

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// StateDescription ...
type StateDescription struct {
	Name         string `json:"name"`
	LastModified int64  `json:"lastModified"`
}

// RegistrationDescription ...
type RegistrationDescription struct {
	ID           string `json:"id"`
	EventType    string `json:"eventType"`
	Subscription string `json:"subscription"`
}

// ObjectDescription ...
type ObjectDescription struct {
	Handle        string                    `json:"handle"`
	ID            string                    `json:"id,omitempty"`
	Kind          string                    `json:"kind"`
	Parent        string                    `json:"parent,omitempty"`
	State         StateDescription          `json:"state"`
	Registrations []RegistrationDescription `json:"registrations,omitempty"`
}

// InternalStateDescription describes internal state of the client for debugging purposes
type InternalStateDescription struct {
	Objects         []ObjectDescription `json:"objects"`
	PendingRequests int                 `json:"pendingRequests"`
	Violations      uint64              `json:"violations"`
	SessionID       string              `json:"sessionId,omitempty"`
}

func (s *InternalStateDescription) AsJSON() []byte {
	bytes, err := json.Marshal(s)
	if err != nil {
		log.Panicf("Failed to marshall internal states: %s", err)
	}
	return bytes
}
