package gobws_test

import (
	"context"
	"testing"
	"time"

	"github.com/ziyoura/wemeet-client/internal/roomtest"
	"github.com/ziyoura/wemeet-client/internal/transport/gobws"
)

func TestDialer_SendsOriginHeader(t *testing.T) {
	srv := roomtest.New()
	defer srv.Close()

	conn, err := gobws.Dialer{}.Dial(context.Background(), srv.RoomURL("4821"), "http://app.example.com")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Abort()

	origins := srv.Origins()
	if len(origins) != 1 || origins[0] != "http://app.example.com" {
		t.Errorf("server saw origins %v, want [http://app.example.com]", origins)
	}
}

func TestConn_WriteAndRead(t *testing.T) {
	srv := roomtest.New()
	defer srv.Close()

	conn, err := gobws.Dialer{}.Dial(context.Background(), srv.RoomURL("4821"), "")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Abort()

	if err := conn.WriteMessage([]byte(`{"hello":"room"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if string(data) != `{"hello":"room"}` {
		t.Errorf("ReadMessage() = %q, want the reflected frame", data)
	}
}

func TestConn_InterchangeableWithGorillaPeer(t *testing.T) {
	// Both transports speak to the same server; a frame from the gobwas
	// client must reach a room member regardless of its library.
	srv := roomtest.New()
	defer srv.Close()

	sender, err := gobws.Dialer{}.Dial(context.Background(), srv.RoomURL("4821"), "")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer sender.Abort()

	if err := sender.WriteMessage([]byte("cross-library")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	select {
	case frame := <-srv.Received():
		if string(frame.Data) != "cross-library" || frame.Pin != "4821" {
			t.Errorf("server recorded %+v, want cross-library in room 4821", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not record the frame")
	}
}

func TestConn_CloseDropsServerSide(t *testing.T) {
	srv := roomtest.New()
	defer srv.Close()

	conn, err := gobws.Dialer{}.Dial(context.Background(), srv.RoomURL("4821"), "")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	if err := conn.Close("leaving room"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for srv.ClientCount("4821") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("server still counts a member after Close()")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
