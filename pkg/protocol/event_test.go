package protocol_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ziyoura/wemeet-client/pkg/protocol"
)

func TestEncode_IncludesDiscriminatorAndDefaults(t *testing.T) {
	tests := []struct {
		name       string
		event      protocol.Event
		wantType   string
		wantFields []string
	}{
		{
			name: "chat message",
			event: protocol.ChatMessage{
				PinCode:   "4821",
				UserID:    "u1",
				Name:      "Alice",
				Message:   "hello",
				Timestamp: 1700000000000,
			},
			wantType:   "chat",
			wantFields: []string{"pinCode", "userId", "name", "message", "timestamp"},
		},
		{
			name: "location update with zero coordinates",
			event: protocol.LocationUpdate{
				PinCode:  "4821",
				UserID:   "u1",
				Username: "Alice",
			},
			wantType:   "location",
			wantFields: []string{"pinCode", "userId", "username", "latitude", "longitude", "timestamp"},
		},
		{
			name: "room join event",
			event: protocol.RoomEvent{
				PinCode:   "4821",
				UserID:    "u1",
				Name:      "Alice",
				EventType: protocol.RoomJoin,
			},
			wantType:   "room",
			wantFields: []string{"pinCode", "userId", "name", "eventType"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := protocol.Encode(tt.event)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			var doc map[string]any
			if err := json.Unmarshal(data, &doc); err != nil {
				t.Fatalf("encoded frame is not valid JSON: %v", err)
			}
			if got := doc["type"]; got != tt.wantType {
				t.Errorf("type = %v, want %q", got, tt.wantType)
			}
			for _, field := range tt.wantFields {
				if _, ok := doc[field]; !ok {
					t.Errorf("encoded frame missing field %q", field)
				}
			}
		})
	}
}

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  protocol.Event
	}{
		{
			name:  "chat message",
			frame: `{"type":"chat","pinCode":"4821","userId":"u1","name":"Alice","message":"hi","timestamp":1700000000000}`,
			want: protocol.ChatMessage{
				PinCode: "4821", UserID: "u1", Name: "Alice", Message: "hi", Timestamp: 1700000000000,
			},
		},
		{
			name:  "location update",
			frame: `{"type":"location","pinCode":"4821","userId":"u2","username":"Bo","latitude":31.2,"longitude":121.4}`,
			want: protocol.LocationUpdate{
				PinCode: "4821", UserID: "u2", Username: "Bo", Latitude: 31.2, Longitude: 121.4,
			},
		},
		{
			name:  "room leave event",
			frame: `{"type":"room","pinCode":"4821","userId":"u1","name":"Alice","eventType":"leave"}`,
			want: protocol.RoomEvent{
				PinCode: "4821", UserID: "u1", Name: "Alice", EventType: protocol.RoomLeave,
			},
		},
		{
			name:  "unknown fields are ignored",
			frame: `{"type":"chat","pinCode":"4821","userId":"u1","name":"Alice","message":"hi","color":"red","v":2}`,
			want: protocol.ChatMessage{
				PinCode: "4821", UserID: "u1", Name: "Alice", Message: "hi",
			},
		},
		{
			name:  "missing timestamp is tolerated",
			frame: `{"type":"chat","pinCode":"4821","userId":"u1","name":"Alice","message":"hi"}`,
			want: protocol.ChatMessage{
				PinCode: "4821", UserID: "u1", Name: "Alice", Message: "hi",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.Decode([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		wantReason string
	}{
		{
			name:       "malformed payload",
			frame:      `{"type":"chat","pinCode":`,
			wantReason: "malformed payload",
		},
		{
			name:       "not an object",
			frame:      `[1,2,3]`,
			wantReason: "malformed payload",
		},
		{
			name:       "missing discriminator",
			frame:      `{"pinCode":"4821","userId":"u1"}`,
			wantReason: "missing type",
		},
		{
			name:       "unknown discriminator",
			frame:      `{"type":"presence","pinCode":"4821","userId":"u1"}`,
			wantReason: `unknown type "presence"`,
		},
		{
			name:       "chat missing message field",
			frame:      `{"type":"chat","pinCode":"4821","userId":"u1","name":"Alice"}`,
			wantReason: "missing required field",
		},
		{
			name:       "location missing coordinates",
			frame:      `{"type":"location","pinCode":"4821","userId":"u2","username":"Bo"}`,
			wantReason: "missing required field",
		},
		{
			name:       "room missing eventType",
			frame:      `{"type":"room","pinCode":"4821","userId":"u1"}`,
			wantReason: "missing required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.Decode([]byte(tt.frame))
			if err == nil {
				t.Fatalf("Decode() = %#v, want error", got)
			}
			var decodeErr *protocol.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Decode() error = %T, want *protocol.DecodeError", err)
			}
			if !strings.Contains(decodeErr.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", decodeErr.Reason, tt.wantReason)
			}
		})
	}
}

func TestDecode_PongIsNotAnEvent(t *testing.T) {
	// The heartbeat reply is not JSON; callers must special-case it first.
	if !protocol.IsPong([]byte(protocol.Pong)) {
		t.Error("IsPong(pong) = false, want true")
	}
	if protocol.IsPong([]byte(`{"type":"chat"}`)) {
		t.Error("IsPong(json frame) = true, want false")
	}
	if _, err := protocol.Decode([]byte(protocol.Pong)); err == nil {
		t.Error("Decode(pong) succeeded, want DecodeError for raw literal")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	events := []protocol.Event{
		protocol.ChatMessage{PinCode: "0042", UserID: "u9", Name: "Chen", Message: "见面吗?", Timestamp: 42},
		protocol.LocationUpdate{PinCode: "0042", UserID: "u9", Username: "Chen", Latitude: -12.5, Longitude: 130.9, Timestamp: 43},
		protocol.RoomEvent{PinCode: "0042", UserID: "u9", Name: "Chen", EventType: protocol.RoomJoin},
	}
	for _, ev := range events {
		data, err := protocol.Encode(ev)
		if err != nil {
			t.Fatalf("Encode(%#v) error = %v", ev, err)
		}
		got, err := protocol.Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", data, err)
		}
		if !reflect.DeepEqual(got, ev) {
			t.Errorf("round trip = %#v, want %#v", got, ev)
		}
	}
}
