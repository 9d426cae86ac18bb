// Package protocol defines the wire events exchanged with the room server
// and their JSON text-frame encoding.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Discriminator values carried in the "type" field of every event frame.
const (
	TypeChat     = "chat"
	TypeLocation = "location"
	TypeRoom     = "room"
)

// Heartbeat literals. These are raw text frames, never JSON documents, and
// must be checked before generic decode is attempted.
const (
	Ping = "ping"
	Pong = "pong"
)

// Room event kinds.
const (
	RoomJoin  = "join"
	RoomLeave = "leave"
)

// Event is the closed set of wire events. Exactly ChatMessage,
// LocationUpdate and RoomEvent implement it.
type Event interface {
	eventType() string
}

// ChatMessage is one chat line scoped to a room.
type ChatMessage struct {
	PinCode   string `json:"pinCode"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
}

// LocationUpdate is one position report scoped to a room.
type LocationUpdate struct {
	PinCode   string  `json:"pinCode"`
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"` // milliseconds since epoch
}

// RoomEvent announces a membership change; EventType is RoomJoin or RoomLeave.
type RoomEvent struct {
	PinCode   string `json:"pinCode"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	EventType string `json:"eventType"`
}

func (ChatMessage) eventType() string    { return TypeChat }
func (LocationUpdate) eventType() string { return TypeLocation }
func (RoomEvent) eventType() string      { return TypeRoom }

// DecodeError reports an inbound frame that could not be turned into an
// Event. It is the only error kind Decode returns.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode event: %s: %v", e.Reason, e.Err)
	}
	return "decode event: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsPong reports whether a frame is the reserved heartbeat reply.
func IsPong(data []byte) bool { return string(data) == Pong }

// Encode serializes an event to a JSON text frame. The discriminator and
// every variant field are always present, including zero-valued ones.
func Encode(ev Event) ([]byte, error) {
	switch v := ev.(type) {
	case ChatMessage:
		return json.Marshal(struct {
			Type string `json:"type"`
			ChatMessage
		}{TypeChat, v})
	case LocationUpdate:
		return json.Marshal(struct {
			Type string `json:"type"`
			LocationUpdate
		}{TypeLocation, v})
	case RoomEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			RoomEvent
		}{TypeRoom, v})
	default:
		return nil, fmt.Errorf("encode event: unsupported event %T", ev)
	}
}

// Decode parses a JSON text frame into an Event. Unknown fields are ignored;
// a malformed payload, an unknown discriminator or a missing required field
// yields a *DecodeError.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &DecodeError{Reason: "malformed payload", Err: err}
	}
	if head.Type == nil {
		return nil, &DecodeError{Reason: "missing type field"}
	}

	switch *head.Type {
	case TypeChat:
		return decodeChat(data)
	case TypeLocation:
		return decodeLocation(data)
	case TypeRoom:
		return decodeRoom(data)
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown type %q", *head.Type)}
	}
}

// Pointer fields distinguish an absent required field from a zero value.
// Timestamps are optional: the server omits them on frames it synthesizes.

func decodeChat(data []byte) (Event, error) {
	var raw struct {
		PinCode   *string `json:"pinCode"`
		UserID    *string `json:"userId"`
		Name      *string `json:"name"`
		Message   *string `json:"message"`
		Timestamp int64   `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Reason: "malformed chat event", Err: err}
	}
	if raw.PinCode == nil || raw.UserID == nil || raw.Name == nil || raw.Message == nil {
		return nil, &DecodeError{Reason: "chat event missing required field"}
	}
	return ChatMessage{
		PinCode:   *raw.PinCode,
		UserID:    *raw.UserID,
		Name:      *raw.Name,
		Message:   *raw.Message,
		Timestamp: raw.Timestamp,
	}, nil
}

func decodeLocation(data []byte) (Event, error) {
	var raw struct {
		PinCode   *string  `json:"pinCode"`
		UserID    *string  `json:"userId"`
		Username  *string  `json:"username"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Timestamp int64    `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Reason: "malformed location event", Err: err}
	}
	if raw.PinCode == nil || raw.UserID == nil || raw.Username == nil ||
		raw.Latitude == nil || raw.Longitude == nil {
		return nil, &DecodeError{Reason: "location event missing required field"}
	}
	return LocationUpdate{
		PinCode:   *raw.PinCode,
		UserID:    *raw.UserID,
		Username:  *raw.Username,
		Latitude:  *raw.Latitude,
		Longitude: *raw.Longitude,
		Timestamp: raw.Timestamp,
	}, nil
}

func decodeRoom(data []byte) (Event, error) {
	var raw struct {
		PinCode   *string `json:"pinCode"`
		UserID    *string `json:"userId"`
		Name      string  `json:"name"`
		EventType *string `json:"eventType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Reason: "malformed room event", Err: err}
	}
	if raw.PinCode == nil || raw.UserID == nil || raw.EventType == nil {
		return nil, &DecodeError{Reason: "room event missing required field"}
	}
	return RoomEvent{
		PinCode:   *raw.PinCode,
		UserID:    *raw.UserID,
		Name:      raw.Name,
		EventType: *raw.EventType,
	}, nil
}
