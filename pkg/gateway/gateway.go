// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gateway runs the event loop that ties the controller link to its
// clients. One goroutine owns the decoder, encoder, state store, output
// queue and policy; everything else hands data in through Run's frame
// channel or Submit.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Thermoquad/x10gate/pkg/outqueue"
	"github.com/Thermoquad/x10gate/pkg/x10"
	"github.com/Thermoquad/x10gate/pkg/x10state"
)

// DefaultSubmitBuffer is the number of command lines that can wait for the
// loop before Submit blocks
const DefaultSubmitBuffer = 64

// ErrLinkClosed is returned by Run when the frame channel closes
var ErrLinkClosed = errors.New("device link closed")

// Config configures a gateway
type Config struct {
	Model         x10.Model
	QueueCapacity int
	AckTimeout    time.Duration
	RfToPl        uint16
	RfToRf        uint16
	SubmitBuffer  int
}

// DefaultConfig returns the configuration of a CM15A gateway
func DefaultConfig() Config {
	return Config{
		Model:         x10.ModelCM15A,
		QueueCapacity: outqueue.DefaultCapacity,
		AckTimeout:    outqueue.DefaultAckTimeout,
		RfToPl:        DefaultRfToPl,
		RfToRf:        DefaultRfToRf,
		SubmitBuffer:  DefaultSubmitBuffer,
	}
}

type submission struct {
	origin string
	line   string
}

// Gateway is the protocol core of the daemon
type Gateway struct {
	cfg Config

	dec    *x10.Decoder
	enc    *x10.Encoder
	store  *x10state.Store
	queue  *outqueue.Queue
	policy *Policy
	stats  *x10.Statistics

	sinks       []Sink
	submissions chan submission

	now func() time.Time
}

// New creates a gateway writing controller frames to w
func New(w outqueue.Writer, cfg Config) (*Gateway, error) {
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = outqueue.DefaultCapacity
	}
	if cfg.SubmitBuffer <= 0 {
		cfg.SubmitBuffer = DefaultSubmitBuffer
	}
	queue, err := outqueue.New(w, cfg.QueueCapacity, cfg.AckTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create output queue: %w", err)
	}

	return &Gateway{
		cfg:         cfg,
		dec:         x10.NewDecoder(cfg.Model),
		enc:         x10.NewEncoder(cfg.Model),
		store:       x10state.NewStore(),
		queue:       queue,
		policy:      NewPolicy(cfg.Model, cfg.RfToPl, cfg.RfToRf),
		stats:       x10.NewStatistics(),
		submissions: make(chan submission, cfg.SubmitBuffer),
		now:         time.Now,
	}, nil
}

// AddSink registers an output sink. Sinks must be added before Run.
func (g *Gateway) AddSink(s Sink) {
	g.sinks = append(g.sinks, s)
}

// Store returns the state store. Only safe to use from the loop goroutine
// or before Run.
func (g *Gateway) Store() *x10state.Store { return g.store }

// Policy returns the repeat/bridge policy
func (g *Gateway) Policy() *Policy { return g.policy }

// Statistics returns the decode statistics
func (g *Gateway) Statistics() *x10.Statistics { return g.stats }

// Queue returns the output queue
func (g *Gateway) Queue() *outqueue.Queue { return g.queue }

// Initialize queues the controller's start-up sequence
func (g *Gateway) Initialize() error {
	for _, frame := range g.cfg.Model.InitSequence() {
		if err := g.queue.Enqueue(frame); err != nil {
			return fmt.Errorf("failed to queue init frame % X: %w", frame, err)
		}
	}
	log.Info().Str("model", g.cfg.Model.String()).Msg("Controller init sequence queued")
	return nil
}

// Submit hands a command line to the loop. Replies are addressed to origin.
func (g *Gateway) Submit(ctx context.Context, origin, line string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case g.submissions <- submission{origin: origin, line: line}:
		return nil
	}
}

// Run processes controller frames, submitted lines and acknowledgment
// timeouts until the context is cancelled or the frame channel closes.
func (g *Gateway) Run(ctx context.Context, frames <-chan []byte) error {
	for {
		var timeout <-chan time.Time
		var timer *time.Timer
		if deadline, armed := g.queue.Deadline(); armed {
			timer = time.NewTimer(deadline.Sub(g.now()))
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return nil
		case frame, ok := <-frames:
			if !ok {
				stopTimer(timer)
				return ErrLinkClosed
			}
			g.HandleFrame(frame)
		case sub := <-g.submissions:
			g.HandleLine(sub.origin, sub.line)
		case <-timeout:
			g.HandleTimeout(g.now())
		}
		stopTimer(timer)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// HandleTimeout releases the in-flight frame once its deadline has passed
func (g *Gateway) HandleTimeout(now time.Time) {
	if !g.queue.Expired(now) {
		return
	}
	log.Warn().Int("pending", g.queue.Len()).Msg("Controller did not acknowledge, sending next frame")
	g.queue.Ack()
}

// HandleFrame processes one inbound controller transfer
func (g *Gateway) HandleFrame(frame []byte) {
	log.Debug().Hex("frame", frame).Msg("Received")

	if len(frame) == 1 {
		g.stats.RecordAck()
		g.queue.Ack()
		return
	}
	if g.cfg.Model != x10.ModelCM19A && x10.Classify(frame) == x10.KindClockRequest {
		log.Info().Hex("frame", frame).Msg("Controller requested clock set")
		return
	}

	ev, err := g.dec.Decode(frame)
	g.stats.Update(ev, err)
	if err != nil {
		g.reportDecodeError(err)
		return
	}
	if ev == nil {
		log.Debug().Hex("frame", frame).Msg("Ignored frame")
		return
	}

	g.dispatch(ev)

	if g.policy.ShouldRepeat(ev) {
		g.broadcast("RfToRf repeat")
		if err := g.queue.Enqueue(g.enc.RepeatFrame(ev)); err != nil {
			log.Warn().Err(err).Hex("frame", ev.Frame).Msg("Failed to queue RF repeat")
		}
	}
	if line, ok := g.policy.BridgeCommand(ev); ok {
		log.Debug().Str("command", line).Msg("Bridging RF to PL")
		g.HandleLine(Broadcast, line)
	}
}

func (g *Gateway) reportDecodeError(err error) {
	var de *x10.DecodeError
	if !errors.As(err, &de) {
		log.Error().Err(err).Msg("Decode failed")
		return
	}
	if errors.Is(err, x10.ErrUnknownSubtype) {
		log.Debug().Err(err).Hex("frame", de.Frame).Msg("Ignored power-line sub-type")
		return
	}
	log.Warn().Err(err).Hex("frame", de.Frame).Str("bus", de.Bus.String()).Msg("Rejected frame")
	if !de.Reported() {
		return
	}
	for _, line := range de.Lines() {
		g.broadcast(line)
	}
}

// dispatch updates the store from an event and reports it to every client
func (g *Gateway) dispatch(ev *x10.Event) {
	if err := g.store.Apply(ev); err != nil {
		log.Warn().Err(err).Uint32("addr", ev.SecAddr).Msg("Security sensor not recorded")
	}
	g.deliver(Message{Time: g.now(), To: Broadcast, Text: ev.String(), Event: ev})
}

// HandleLine parses and executes one command line from origin
func (g *Gateway) HandleLine(origin, line string) {
	cmd, err := x10.ParseCommand(line)
	if errors.Is(err, x10.ErrEmptyLine) {
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("client", origin).Str("line", line).Msg("Invalid command")
		g.reply(origin, "Invalid command "+strings.TrimSpace(line))
		return
	}

	switch cmd.Kind {
	case x10.CmdRfToPl:
		g.policy.RfToPl = cmd.Houses
		g.reply(origin, fmt.Sprintf("RfToPl %04X", g.policy.RfToPl))

	case x10.CmdRfToRf:
		if cmd.HasValue {
			g.policy.RfToRf = cmd.Value
		}
		g.reply(origin, fmt.Sprintf("RfToRf %04X", g.policy.RfToRf))

	case x10.CmdStatus:
		if cmd.Reset {
			g.store.Reset()
			log.Info().Str("client", origin).Msg("State reset")
			return
		}
		for _, l := range g.store.Report() {
			g.reply(origin, l)
		}

	default:
		g.transmit(origin, line, cmd)
	}
}

func (g *Gateway) transmit(origin, line string, cmd *x10.Command) {
	frames, err := g.enc.Encode(cmd)
	if err != nil {
		log.Debug().Err(err).Str("client", origin).Str("line", line).Msg("Command rejected")
		g.reply(origin, "Invalid command "+strings.TrimSpace(line))
		return
	}

	for _, f := range frames {
		if f.Echo == nil {
			g.reply(origin, x10.Hexdump(f.Wire))
		} else if ev, err := x10.DecodeEcho(f); err != nil {
			// A frame we cannot decode ourselves is not sent
			log.Error().Err(err).Hex("frame", f.Echo).Msg("Failed to decode own frame")
			g.replyDecodeError(origin, err)
			continue
		} else if ev != nil {
			g.dispatch(ev)
		}

		if err := g.queue.Enqueue(f.Wire); err != nil {
			log.Warn().Err(err).Str("client", origin).Hex("frame", f.Wire).Msg("Frame dropped")
			g.reply(origin, "Output queue full")
		}
	}
}

// replyDecodeError sends the client lines of a decode error to origin
func (g *Gateway) replyDecodeError(origin string, err error) {
	var de *x10.DecodeError
	if !errors.As(err, &de) {
		g.reply(origin, err.Error())
		return
	}
	for _, line := range de.Lines() {
		g.reply(origin, line)
	}
}

func (g *Gateway) broadcast(text string) {
	g.deliver(Message{Time: g.now(), To: Broadcast, Text: text})
}

func (g *Gateway) reply(origin, text string) {
	g.deliver(Message{Time: g.now(), To: origin, Text: text})
}

func (g *Gateway) deliver(msg Message) {
	log.Debug().Str("to", msg.To).Msg(msg.Text)
	for _, s := range g.sinks {
		s.Deliver(msg)
	}
}

// Reset clears state, policy and pending output
func (g *Gateway) Reset() {
	g.store.Reset()
	g.policy.Reset()
	g.queue.Reset()
	g.stats.Reset()
}
