package ipcd

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"wsmirror/internal/ipcwire"
)

func dialAndRoundTrip(t *testing.T, addr net.Addr, cmd ipcwire.Command) ipcwire.Response {
	t.Helper()
	conn, err := net.Dial(addr.Network(), addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := ipcwire.WriteFrame(conn, cmd); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	raw := map[string]json.RawMessage{}
	if err := ipcwire.ReadFrame(bufio.NewReader(conn), &raw); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	var resp ipcwire.Response
	if msg, ok := raw["msg"]; ok {
		_ = json.Unmarshal(msg, &resp.Msg)
	}
	return resp
}

func newTestDaemon(t *testing.T) (net.Addr, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDaemon(nil)
	go d.Serve(ctx, ln)

	return ln.Addr(), func() { cancel() }
}

func TestHealthCheck(t *testing.T) {
	addr, stop := newTestDaemon(t)
	defer stop()

	resp := dialAndRoundTrip(t, addr, ipcwire.Command{Type: ipcwire.CommandHealthCheck})
	if resp.Msg != "" {
		t.Errorf("expected empty Msg on health check success, got %q", resp.Msg)
	}
}

func TestUnknownCommandType(t *testing.T) {
	addr, stop := newTestDaemon(t)
	defer stop()

	resp := dialAndRoundTrip(t, addr, ipcwire.Command{Type: "NOT_A_COMMAND"})
	if resp.Msg == "" {
		t.Error("expected a failure message for an unknown command type")
	}
}

func TestCloneStatusUnknownSession(t *testing.T) {
	addr, stop := newTestDaemon(t)
	defer stop()

	resp := dialAndRoundTrip(t, addr, ipcwire.Command{
		Type:  ipcwire.CommandCloneStatus,
		Props: `{"sessionId":"does-not-exist"}`,
	})
	if resp.Msg == "" {
		t.Error("expected a failure message for an unknown session id")
	}
}

func TestGetClonesEmptyWhenIdle(t *testing.T) {
	addr, stop := newTestDaemon(t)
	defer stop()

	conn, err := net.Dial(addr.Network(), addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := ipcwire.WriteFrame(conn, ipcwire.Command{Type: ipcwire.CommandGetClones}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var resp ipcwire.GetClonesResponse
	if err := ipcwire.ReadFrame(bufio.NewReader(conn), &resp); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(resp.Clones) != 0 {
		t.Errorf("expected no clones while idle, got %v", resp.Clones)
	}
}

func TestKeepAliveServesMultipleCommandsOnOneConnection(t *testing.T) {
	addr, stop := newTestDaemon(t)
	defer stop()

	conn, err := net.Dial(addr.Network(), addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	r := bufio.NewReader(conn)
	for i := 0; i < 2; i++ {
		keepAlive := i == 0
		if err := ipcwire.WriteFrame(conn, ipcwire.Command{Type: ipcwire.CommandHealthCheck, KeepAlive: keepAlive}); err != nil {
			t.Fatalf("WriteFrame %d: %v", i, err)
		}
		var resp ipcwire.Response
		if err := ipcwire.ReadFrame(r, &resp); err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
	}
}
