package domain

import (
	"encoding/json"
	"time"
)

// Client message types.
const (
	MsgAuthenticate = "authenticate"
	MsgLogout       = "logout"
	MsgSyncRequest  = "sync_request"

	MsgAuthenticated = "authenticated"
	MsgSyncResponse  = "sync_response"
	MsgError         = "error"
)

// Envelope is every message written to a client.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is every message read from a client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorData is the data of an error envelope.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
