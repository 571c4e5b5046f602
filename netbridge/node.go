// Package netbridge provides a ZeroMQ-based conversion endpoint. It
// speaks the same payloads as the TCP service: Arrow IPC record batches
// in, marshaled BSON documents out.
package netbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/rowbridge-dev/RowBridge-Engine/api"
)

// MaxEnvelopeSize is the maximum allowed envelope size (50MB).
const MaxEnvelopeSize = 50 * 1024 * 1024

// Common errors for netbridge operations
var (
	ErrNodeNotRunning   = errors.New("node is not running")
	ErrEnvelopeTooLarge = errors.New("envelope exceeds maximum allowed size")
	ErrBadEnvelope      = errors.New("malformed envelope")
)

// Envelope is a conversion request. Payload carries an Arrow IPC stream.
type Envelope struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	From      string    `json:"from,omitempty"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply is the response to an Envelope. On success Payload holds the
// concatenated BSON documents; on failure Error describes the cause.
type Reply struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	Payload   []byte `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EncodeEnvelope serializes an envelope for transmission.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if len(data) > MaxEnvelopeSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrEnvelopeTooLarge, len(data), MaxEnvelopeSize)
	}
	return data, nil
}

// DecodeEnvelope parses an envelope received off the wire.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) > MaxEnvelopeSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrEnvelopeTooLarge, len(data), MaxEnvelopeSize)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if env.Type != "convert" {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrBadEnvelope, env.Type)
	}
	return &env, nil
}

// ConvertNode is a ZeroMQ conversion node. It binds a ROUTER socket and
// answers each envelope with a Reply.
type ConvertNode struct {
	nodeID  string
	address string

	ctx    context.Context
	cancel context.CancelFunc

	router  zmq4.Socket
	handler *api.ConvertHandler

	requests uint64
	failures uint64

	running bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// NewConvertNode creates a new ZeroMQ conversion node.
func NewConvertNode(nodeID string, host string, port int) *ConvertNode {
	ctx, cancel := context.WithCancel(context.Background())

	return &ConvertNode{
		nodeID:  nodeID,
		address: fmt.Sprintf("tcp://%s:%d", host, port),
		ctx:     ctx,
		cancel:  cancel,
		handler: api.NewConvertHandler(),
	}
}

// Start binds the ROUTER socket and begins serving requests.
func (n *ConvertNode) Start() error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return errors.New("node already running")
	}

	n.router = zmq4.NewRouter(n.ctx, zmq4.WithID(zmq4.SocketIdentity(n.nodeID)))

	if err := n.router.Listen(n.address); err != nil {
		n.mu.Unlock()
		return fmt.Errorf("failed to bind router: %w", err)
	}

	n.running = true
	n.mu.Unlock()

	n.wg.Add(1)
	go n.serveLoop()

	return nil
}

// Stop gracefully shuts down the node.
func (n *ConvertNode) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	n.mu.Unlock()

	n.cancel()

	if n.router != nil {
		if err := n.router.Close(); err != nil {
			_ = err
		}
	}

	n.wg.Wait()
}

// IsRunning returns true while the node is serving.
func (n *ConvertNode) IsRunning() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.running
}

// serveLoop receives envelopes from the ROUTER socket and replies.
func (n *ConvertNode) serveLoop() {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			return
		default:
			msg, err := n.router.Recv()
			if err != nil {
				select {
				case <-n.ctx.Done():
					return
				default:
					continue
				}
			}

			// ROUTER frames: [identity, payload]
			if len(msg.Frames) < 2 {
				continue
			}
			identity := msg.Frames[0]
			reply := n.process(msg.Frames[len(msg.Frames)-1])

			data, err := json.Marshal(reply)
			if err != nil {
				continue
			}
			if err := n.router.Send(zmq4.NewMsgFrom(identity, data)); err != nil {
				_ = err
			}
		}
	}
}

// process converts one envelope into a reply.
func (n *ConvertNode) process(raw []byte) *Reply {
	n.mu.Lock()
	n.requests++
	n.mu.Unlock()

	start := time.Now()

	env, err := DecodeEnvelope(raw)
	if err != nil {
		n.recordFailure("zmq", start)
		return &Reply{Status: "error", Error: err.Error()}
	}

	payload, err := n.handler.ProcessBatch(env.Payload)
	if err != nil {
		n.recordFailure("zmq", start)
		return &Reply{Status: "error", RequestID: env.RequestID, Error: err.Error()}
	}

	api.DefaultMetrics.RecordRequest("zmq", "ok", time.Since(start))
	return &Reply{Status: "ok", RequestID: env.RequestID, Payload: payload}
}

func (n *ConvertNode) recordFailure(transport string, start time.Time) {
	n.mu.Lock()
	n.failures++
	n.mu.Unlock()
	api.DefaultMetrics.RecordRequest(transport, "error", time.Since(start))
}

// NodeStats contains node statistics.
type NodeStats struct {
	NodeID    string `json:"node_id"`
	Address   string `json:"address"`
	Requests  uint64 `json:"requests"`
	Failures  uint64 `json:"failures"`
	IsRunning bool   `json:"is_running"`
}

// GetStats returns current node statistics.
func (n *ConvertNode) GetStats() NodeStats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return NodeStats{
		NodeID:    n.nodeID,
		Address:   n.address,
		Requests:  n.requests,
		Failures:  n.failures,
		IsRunning: n.running,
	}
}
