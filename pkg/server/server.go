// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package server accepts line clients over TCP. Each received line is
// submitted to the gateway as a command; gateway output is written back to
// the addressed client or to all of them.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Thermoquad/x10gate/pkg/gateway"
)

// LineTooLongReply is sent to a client whose command line exceeds the limit
const LineTooLongReply = "Invalid command (line too long)"

// Default configuration
const (
	DefaultAddr         = ":1099"
	DefaultMaxClients   = 16
	DefaultClientBuffer = 256
)

// Submitter accepts command lines from a client
type Submitter interface {
	Submit(ctx context.Context, origin, line string) error
}

// Config configures the server
type Config struct {
	Addr         string
	MaxClients   int
	LineLimit    int
	ClientBuffer int
}

// Server is a TCP line server and a gateway.Sink
type Server struct {
	cfg Config
	gw  Submitter

	mu       sync.Mutex
	clients  map[string]*client
	listener net.Listener
	wg       sync.WaitGroup
}

type client struct {
	id   string
	conn net.Conn
	out  chan string
}

// New creates a server submitting lines to gw
func New(gw Submitter, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.LineLimit <= 0 {
		cfg.LineLimit = gateway.DefaultLineLimit
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultClientBuffer
	}
	return &Server{
		cfg:     cfg,
		gw:      gw,
		clients: make(map[string]*client),
	}
}

// Run listens on the configured address and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts clients on ln until ctx is cancelled. The listener and all
// client connections are closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log.Info().Str("addr", ln.Addr().String()).Int("max_clients", s.cfg.MaxClients).Msg("Listening for clients")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	defer func() {
		s.closeAll()
		s.wg.Wait()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.accept(ctx, conn)
	}
}

// Addr returns the listening address, or nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) accept(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	if len(s.clients) >= s.cfg.MaxClients {
		s.mu.Unlock()
		log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("Too many clients, closing connection")
		conn.Close()
		return
	}
	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		out:  make(chan string, s.cfg.ClientBuffer),
	}
	s.clients[c.id] = c
	s.mu.Unlock()

	log.Info().Str("client", c.id).Str("remote", conn.RemoteAddr().String()).Msg("Client connected")

	s.wg.Add(2)
	go s.writeLoop(c)
	go s.readLoop(ctx, c)
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	defer s.wg.Done()
	defer s.remove(c)

	lines := gateway.NewLineBuffer(s.cfg.LineLimit)
	buf := make([]byte, 512)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			complete, lerr := lines.Write(buf[:n])
			for _, line := range complete {
				if serr := s.gw.Submit(ctx, c.id, line); serr != nil {
					return
				}
			}
			if lerr != nil {
				log.Warn().Err(lerr).Str("client", c.id).Msg("Discarding oversized line")
				s.Deliver(gateway.Message{Time: time.Now(), To: c.id, Text: LineTooLongReply})
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer s.wg.Done()
	for line := range c.out {
		if _, err := c.conn.Write([]byte(line)); err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("Write failed")
			// readLoop sees the close and removes the client
			c.conn.Close()
			return
		}
	}
}

// remove drops a client and closes its connection and output channel
func (s *Server) remove(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, c.id)
	close(c.out)
	s.mu.Unlock()

	c.conn.Close()
	log.Info().Str("client", c.id).Msg("Client disconnected")
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.clients))
	for _, c := range s.clients {
		conns = append(conns, c.conn)
	}
	s.mu.Unlock()

	// Read loops see the close and remove their clients
	for _, conn := range conns {
		conn.Close()
	}
}

// Deliver implements gateway.Sink. A client whose buffer is full misses the
// line.
func (s *Server) Deliver(msg gateway.Message) {
	line := msg.Line() + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.To != gateway.Broadcast {
		if c, ok := s.clients[msg.To]; ok {
			s.send(c, line)
		}
		return
	}
	for _, c := range s.clients {
		s.send(c, line)
	}
}

// send must be called with s.mu held
func (s *Server) send(c *client, line string) {
	select {
	case c.out <- line:
	default:
		log.Warn().Str("client", c.id).Msg("Client output buffer full, dropping line")
	}
}
