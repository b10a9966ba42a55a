package protocol

import "encoding/json"

const Version = "1.0"

// Request types (client -> server).
const (
	TypeSpin   = "SPIN"
	TypeBuy    = "BUY"
	TypeEarn   = "EARN"
	TypePlace  = "PLACE"
	TypeRemove = "REMOVE"
	TypeSave   = "SAVE"
	TypeLoad   = "LOAD"
	TypeState  = "STATE"
)

// Response types (server -> client).
const (
	TypeResult = "RESULT"
	TypeError  = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ID              string `json:"id,omitempty"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func IsRequestType(t string) bool {
	switch t {
	case TypeSpin, TypeBuy, TypeEarn, TypePlace, TypeRemove, TypeSave, TypeLoad, TypeState:
		return true
	}
	return false
}
