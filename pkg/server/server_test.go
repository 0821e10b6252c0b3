// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/x10gate/pkg/gateway"
)

type submission struct {
	origin string
	line   string
}

type chanSubmitter struct {
	lines chan submission
}

func (c *chanSubmitter) Submit(ctx context.Context, origin, line string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.lines <- submission{origin, line}:
		return nil
	}
}

func startServer(t *testing.T, cfg Config) (*Server, *chanSubmitter, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	sub := &chanSubmitter{lines: make(chan submission, 16)}
	srv := New(sub, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
	return srv, sub, ln.Addr().String()
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, srv.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func nextSubmission(t *testing.T, sub *chanSubmitter) submission {
	t.Helper()
	select {
	case s := <-sub.lines:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no line submitted")
		return submission{}
	}
}

func readLine(t *testing.T, r *bufio.Reader, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return line
}

var testTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

// ============================================================
// Line Handling Tests
// ============================================================

func TestServer_SubmitsLines(t *testing.T) {
	_, sub, addr := startServer(t, Config{})
	conn := dial(t, addr)

	// One write with a split line, a CRLF line and a blank line
	conn.Write([]byte("pl a1 on\r\nrf b2"))
	conn.Write([]byte(" off\n\n"))

	want := []string{"pl a1 on", "rf b2 off", ""}
	var origin string
	for i, w := range want {
		got := nextSubmission(t, sub)
		if got.line != w {
			t.Errorf("line %d: expected %q, got %q", i, w, got.line)
		}
		if origin == "" {
			origin = got.origin
		} else if got.origin != origin {
			t.Errorf("line %d: origin changed from %s to %s", i, origin, got.origin)
		}
	}
	if origin == "" {
		t.Error("submissions should carry the client id")
	}
}

func TestServer_OverlongLineDiscarded(t *testing.T) {
	_, sub, addr := startServer(t, Config{LineLimit: 8})
	conn := dial(t, addr)

	conn.Write([]byte("pl a1 extended 31 01\nst\n"))

	if got := nextSubmission(t, sub); got.line != "st" {
		t.Errorf("expected only the line after the overlong one, got %q", got.line)
	}

	line := readLine(t, bufio.NewReader(conn), conn)
	if !strings.HasSuffix(line, " "+LineTooLongReply+"\n") {
		t.Errorf("expected rejection reply, got %q", line)
	}
}

// ============================================================
// Delivery Tests
// ============================================================

func TestServer_Deliver(t *testing.T) {
	srv, sub, addr := startServer(t, Config{})

	a := dial(t, addr)
	b := dial(t, addr)
	waitClients(t, srv, 2)

	a.Write([]byte("st\n"))
	origin := nextSubmission(t, sub).origin

	srv.Deliver(gateway.Message{Time: testTime, To: origin, Text: "End status"})
	srv.Deliver(gateway.Message{Time: testTime, To: gateway.Broadcast, Text: "Rx RF HouseUnit: A1 Func: On"})
	srv.Deliver(gateway.Message{Time: testTime, To: "no-such-client", Text: "lost"})

	ra := bufio.NewReader(a)
	if got := readLine(t, ra, a); got != "03/09 14:05:07 End status\n" {
		t.Errorf("reply: got %q", got)
	}
	if got := readLine(t, ra, a); got != "03/09 14:05:07 Rx RF HouseUnit: A1 Func: On\n" {
		t.Errorf("broadcast to issuer: got %q", got)
	}

	rb := bufio.NewReader(b)
	if got := readLine(t, rb, b); !strings.HasSuffix(got, "Rx RF HouseUnit: A1 Func: On\n") {
		t.Errorf("other client should only see the broadcast, got %q", got)
	}
}

// ============================================================
// Connection Management Tests
// ============================================================

func TestServer_MaxClients(t *testing.T) {
	srv, _, addr := startServer(t, Config{MaxClients: 1})

	dial(t, addr)
	waitClients(t, srv, 1)

	extra := dial(t, addr)
	extra.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := extra.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("expected extra connection to be closed, got %v", err)
	}
	if n := srv.ClientCount(); n != 1 {
		t.Errorf("expected 1 client, have %d", n)
	}
}

func TestServer_Disconnect(t *testing.T) {
	srv, _, addr := startServer(t, Config{})

	conn := dial(t, addr)
	waitClients(t, srv, 1)
	conn.Close()
	waitClients(t, srv, 0)

	// Delivery after a disconnect must not panic on the closed channel
	srv.Deliver(gateway.Message{Time: testTime, Text: "Rx PL House: A Func: On"})
}

func TestServer_ShutdownClosesClients(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := New(&chanSubmitter{lines: make(chan submission, 1)}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, srv, 1)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("expected client closed on shutdown, got %v", err)
	}
	if n := srv.ClientCount(); n != 0 {
		t.Errorf("expected no clients after shutdown, have %d", n)
	}
}
