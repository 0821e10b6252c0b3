// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketLink is a controller reached through a WebSocket bridge. Each
// binary message carries exactly one transfer.
type WebSocketLink struct {
	conn   *websocket.Conn
	name   string
	closed bool
}

// NewWebSocketLink wraps an established connection
func NewWebSocketLink(conn *websocket.Conn, name string) *WebSocketLink {
	return &WebSocketLink{conn: conn, name: name}
}

func (w *WebSocketLink) ReadFrame() ([]byte, error) {
	if w.closed {
		return nil, ErrConnectionClosed
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrConnectionClosed
			}
			return nil, err
		}

		// Text messages are bridge chatter, not transfers
		if messageType != websocket.BinaryMessage {
			continue
		}
		if len(data) > MaxTransfer {
			return nil, fmt.Errorf("transfer of %d bytes exceeds %d", len(data), MaxTransfer)
		}
		logFrame("rx", w, data)
		return data, nil
	}
}

func (w *WebSocketLink) WriteFrame(frame []byte) error {
	logFrame("tx", w, frame)
	return w.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (w *WebSocketLink) Close() error {
	return w.conn.Close()
}

func (w *WebSocketLink) String() string {
	return w.name
}

// OpenWebSocket opens a WebSocket link with HTTP Basic auth
func OpenWebSocket(wsURL, username, password string, skipSSLVerify bool) (*WebSocketLink, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewWebSocketLink(conn, "WebSocket: "+wsURL), nil
}
