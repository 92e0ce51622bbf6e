// Package protocol defines the JSON editor protocol spoken over the
// websocket transport. It is deliberately free of simulation imports; the
// transport layer converts payloads into sim types.
package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeAct     = "ACT"
	TypeResult  = "RESULT"
)

// Terrain operations carried by ACT.
const (
	OpGenerate     = "GENERATE"
	OpSculpt       = "SCULPT"
	OpUpdateChunks = "UPDATE_CHUNKS"
	OpEnsureChunks = "ENSURE_CHUNKS"
	OpBuildRoad    = "BUILD_ROAD"
	OpRemoveRoad   = "REMOVE_ROAD"
	OpSnapshot     = "SNAPSHOT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
