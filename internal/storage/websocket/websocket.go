package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
	"github.com/RedUtils/botcore/pkg/streaming"
)

// DefaultAckTimeout bounds how long start_match and end_match wait for the server.
const DefaultAckTimeout = 10 * time.Second

// Config holds WebSocket backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
}

// Backend streams match data over WebSocket to a replay server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn    *connection
	cfg     Config
	started atomic.Bool
	matchID atomic.Uint64
}

// New creates a new WebSocket storage backend. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	if !b.started.Load() {
		return storage.ErrNoMatch
	}
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartMatch sends the match header and waits for server ack. The header is
// replayed if the connection drops mid-match.
func (b *Backend) StartMatch(m *core.Match) error {
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.NewStartMatch(m))
	if err != nil {
		return err
	}

	b.conn.setReplay(data)
	if err := b.conn.sendAndWait(data, streaming.TypeStartMatch, b.cfg.AckTimeout); err != nil {
		return err
	}

	m.ID = uint(b.matchID.Add(1))
	b.started.Store(true)
	return nil
}

// EndMatch sends end_match and waits for server ack.
func (b *Backend) EndMatch() error {
	if !b.started.Load() {
		return storage.ErrNoMatch
	}

	data, err := marshalEnvelope(streaming.TypeEndMatch, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndMatch, b.cfg.AckTimeout)

	// Clear match state regardless of error.
	b.conn.setReplay(nil)
	b.started.Store(false)

	return err
}

func (b *Backend) RecordTick(t *core.TickRecord) error {
	return b.sendEnvelope(streaming.TypeTick, streaming.NewTick(t))
}

func (b *Backend) RecordAction(e *core.ActionEvent) error {
	return b.sendEnvelope(streaming.TypeAction, streaming.NewAction(e))
}

func (b *Backend) RecordTouch(t *core.BallTouch) error {
	return b.sendEnvelope(streaming.TypeTouch, streaming.NewTouch(t))
}

func (b *Backend) RecordPrediction(p *core.PredictionRecord) error {
	return b.sendEnvelope(streaming.TypePrediction, streaming.NewPrediction(p))
}

// QueueLengths reports messages waiting to be written and messages dropped
// because the send buffer was full.
func (b *Backend) QueueLengths() map[string]int {
	return map[string]int{
		"pending": b.conn.pending(),
		"dropped": int(b.conn.dropped.Load()),
	}
}
