package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, conn *websocket.Conn, dst any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
}

func TestAckRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewServer()
	s.Handle("ping", func(c *Conn, msg *ClientMessage) {
		SendAck(c, *msg.ID, OkResponse{OK: true, Msg: "pong"})
	})

	conn := dialTestServer(t, s)
	id := int64(7)
	send(t, conn, ClientMessage{ID: &id, Event: "ping"})

	var ack AckMessage[OkResponse]
	read(t, conn, &ack)
	if ack.ID != 7 || !ack.Data.OK || ack.Data.Msg != "pong" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestUnknownEventAcksError(t *testing.T) {
	t.Parallel()

	conn := dialTestServer(t, NewServer())
	id := int64(1)
	send(t, conn, ClientMessage{ID: &id, Event: "nope"})

	var ack AckMessage[ErrorResponse]
	read(t, conn, &ack)
	if ack.Data.OK || ack.Data.Msg == "" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestBroadcastReachesOnlyAuthenticated(t *testing.T) {
	t.Parallel()

	s := NewServer()
	s.Handle("login", func(c *Conn, msg *ClientMessage) {
		c.SetUser(1)
		SendAck(c, *msg.ID, OkResponse{OK: true})
	})

	authed := dialTestServer(t, s)
	id := int64(1)
	send(t, authed, ClientMessage{ID: &id, Event: "login"})
	var ack AckMessage[OkResponse]
	read(t, authed, &ack)

	anon := dialTestServer(t, s)
	_ = anon

	Broadcast(s, "scanComplete", map[string]int{"items": 3})

	var push ServerMessage[map[string]int]
	read(t, authed, &push)
	if push.Event != "scanComplete" || push.Data["items"] != 3 {
		t.Errorf("push = %+v", push)
	}

	// The unauthenticated connection must not receive the push.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, _, err := anon.Read(ctx); err == nil {
		t.Error("unauthenticated connection received a broadcast")
	}
}

func TestConnectHandlerFires(t *testing.T) {
	t.Parallel()

	s := NewServer()
	s.HandleConnect(func(c *Conn) {
		SendEvent(c, "info", map[string]string{"version": "test"})
	})

	conn := dialTestServer(t, s)

	var push ServerMessage[map[string]string]
	read(t, conn, &push)
	if push.Event != "info" || push.Data["version"] != "test" {
		t.Errorf("push = %+v", push)
	}
}
