package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound message kinds (client → server).
const (
	KindSyncRequest  = "sync_request"
	KindClientReady  = "client_ready"
	KindClientPlay   = "client_play"
	KindClientPause  = "client_pause"
	KindClientSeek   = "client_seek"
	KindHeartbeat    = "heartbeat"
	KindStatusUpdate = "status_update"
)

// Outbound message kinds (server → client).
const (
	KindWelcome      = "welcome"
	KindSync         = "sync"
	KindPlay         = "play"
	KindPause        = "pause"
	KindSeek         = "seek"
	KindHeartbeatAck = "heartbeat_ack"
)

// Inbound is the decoded envelope of a client message. Optional fields are
// pointers so "absent" and "zero" stay distinguishable (a seek to 0.0 is a
// real seek).
type Inbound struct {
	Type        string   `json:"type"`
	ClientTime  float64  `json:"clientTime,omitempty"`
	RequestID   string   `json:"requestId,omitempty"`
	Position    *float64 `json:"position,omitempty"`
	CommandID   string   `json:"commandId,omitempty"`
	IsResponse  bool     `json:"isResponse,omitempty"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
	MediaReady  *bool    `json:"mediaReady,omitempty"`
	ResponseTo  string   `json:"responseTo,omitempty"`
}

// Decode parses a raw client frame. A frame that is not valid JSON or has no
// type discriminator is rejected; unknown type values are NOT an error here,
// the dispatcher ignores them explicitly.
func Decode(data []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("malformed message: missing type")
	}
	return &msg, nil
}

// Welcome is sent once, immediately after a connection is accepted.
type Welcome struct {
	Type       string `json:"type"`
	ClientID   string `json:"clientId"`
	ServerTime int64  `json:"serverTime"`
}

// SyncReply answers a sync_request round-trip probe.
type SyncReply struct {
	Type           string  `json:"type"`
	ServerTime     int64   `json:"serverTime"`
	ClientSendTime float64 `json:"clientSendTime"`
	RequestID      string  `json:"requestId"`
}

// Play instructs recipients to start playback at Position when their local
// clock (offset-corrected) reaches Timestamp.
type Play struct {
	Type        string  `json:"type"`
	CommandID   string  `json:"commandId"`
	Timestamp   int64   `json:"timestamp"`
	Position    float64 `json:"position"`
	InitiatedBy string  `json:"initiatedBy"`
	ServerTime  int64   `json:"serverTime"`
}

type Pause struct {
	Type        string `json:"type"`
	CommandID   string `json:"commandId"`
	Timestamp   int64  `json:"timestamp"`
	InitiatedBy string `json:"initiatedBy"`
}

type Seek struct {
	Type          string  `json:"type"`
	CommandID     string  `json:"commandId"`
	Timestamp     int64   `json:"timestamp"`
	Position      float64 `json:"position"`
	InitiatedBy   string  `json:"initiatedBy"`
	IsInitialSync bool    `json:"isInitialSync,omitempty"`
}

type HeartbeatAck struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
}

// Encode marshals an outbound message. The argument must already carry its
// Type field; the constructors in package coordination guarantee that.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
