/*
Package relay contains the core logic of the chat and call-signaling relay.

This file defines the Client struct, the websocket-backed Session. It owns the
connection's read and write pumps, the outbound send queue, and the
exactly-once teardown that feeds the gateway's disconnect hook.
*/
package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"duochat/internal/pkg/logx"
)

const (
	// timeout for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// frequency of server ping messages.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a client frame.
	maxMessageSize = 16384

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// Client is one live websocket connection. It implements Session; the
// gateway addresses it only through that interface.
type Client struct {
	// gateway receives every parsed inbound event and the disconnect hook.
	gateway *Gateway

	// underlying websocket connection.
	conn *websocket.Conn

	// handleID is the ephemeral connection handle, unique and never reused.
	handleID string

	// pinnedIdentity is the identity the upgrade-time bearer token vouches
	// for; empty when the connection was accepted without one.
	pinnedIdentity string

	// identity is set by a successful join. Written only from the read pump,
	// read concurrently by registry users, hence the mutex.
	identityMu sync.RWMutex
	identity   string

	// send queues marshaled outbound frames for the write pump.
	send chan []byte

	// sendMu and sendClosed make Deliver safe against teardown.
	sendMu     sync.Mutex
	sendClosed bool

	// teardown guarantees the disconnect hook runs exactly once.
	teardown sync.Once

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection. No identity is
// bound yet; that happens when the client announces itself via join.
func NewClient(gateway *Gateway, wsConn *websocket.Conn, pinnedIdentity string) *Client {
	handleID := uuid.New().String()

	clientLogger := logx.Logger().With().
		Str("component", "Client").
		Str("handle", handleID).
		Logger()

	return &Client{
		gateway:        gateway,
		conn:           wsConn,
		handleID:       handleID,
		pinnedIdentity: pinnedIdentity,
		send:           make(chan []byte, sendQueueSize),
		logger:         clientLogger,
	}
}

// HandleID returns the connection handle id.
func (c *Client) HandleID() string { return c.handleID }

// PinnedIdentity returns the identity vouched for at upgrade time, if any.
func (c *Client) PinnedIdentity() string { return c.pinnedIdentity }

// Identity returns the bound identity, empty before join.
func (c *Client) Identity() string {
	c.identityMu.RLock()
	defer c.identityMu.RUnlock()
	return c.identity
}

// SetIdentity records the identity announced by join.
func (c *Client) SetIdentity(identity string) {
	c.identityMu.Lock()
	c.identity = identity
	c.identityMu.Unlock()
}

// Deliver marshals the event and enqueues it for the write pump. Non-blocking:
// when the queue is full or the connection is tearing down, the event is
// dropped with a warning.
func (c *Client) Deliver(ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Error marshaling event for client.")
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}

	select {
	case c.send <- frame:
	default:
		c.logger.Warn().
			Str("event_type", string(ev.Type)).
			Int("queue_len", len(c.send)).
			Msg("Client send queue full, dropping event.")
	}
}

// ReadPump reads frames from the websocket, parses the event envelope, and
// hands each event to the gateway. It handles pong heartbeats and performs
// the connection teardown when the read loop exits for any reason.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frame)
	}
}

// processInboundFrame parses one raw frame and dispatches it.
func (c *Client) processInboundFrame(frame []byte) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame", frame).
			Msg("Client sent invalid JSON")
		return
	}

	c.gateway.Dispatch(context.Background(), c, ev)
}

// cleanupOnDisconnect runs the exactly-once teardown: the gateway's
// disconnect hook (presence unbind + call teardown), then the send queue and
// the connection itself.
func (c *Client) cleanupOnDisconnect() {
	c.teardown.Do(func() {
		c.logger.Info().Str("identity", c.Identity()).Msg("Client connection cleanup starting.")

		c.gateway.Disconnect(c)

		c.sendMu.Lock()
		if !c.sendClosed {
			c.sendClosed = true
			close(c.send)
		}
		c.sendMu.Unlock()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	})
}

// WritePump writes queued frames to the websocket and keeps the heartbeat
// going. Exits when the send queue closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send queue. Returns false
// when the write pump should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends the periodic heartbeat ping. Returns false when the
// write pump should terminate.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
