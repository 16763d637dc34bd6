/*
Package relay contains the core logic of the chat and call-signaling relay.

This file defines the call coordinator: a per-call-attempt state machine that
relays offer/answer/ICE/end signals between two identities resolved through
the presence registry. Sessions are ephemeral and never persisted.
*/
package relay

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
)

// callState tracks where a call attempt stands. A session is created in
// stateCalling, moves to stateInCall on answer, and is removed entirely when
// the call reaches a terminal point (end, rejection, or a party vanishing).
type callState int

const (
	stateCalling callState = iota + 1
	stateInCall
)

// CallSession is one in-flight call attempt between two identities.
type CallSession struct {
	Caller string
	Callee string
	state  callState
}

// involves reports whether the session is between exactly these two
// identities, in either role order.
func (s *CallSession) involves(a, b string) bool {
	return (s.Caller == a && s.Callee == b) || (s.Caller == b && s.Callee == a)
}

// CallCoordinator owns all live call sessions, keyed by the order-independent
// pair id of the two participants (at most one session per pair).
type CallCoordinator struct {
	mu       sync.Mutex
	sessions map[string]*CallSession
	registry *Registry
	logger   zerolog.Logger
}

// NewCallCoordinator constructs a coordinator resolving targets via registry.
func NewCallCoordinator(registry *Registry) *CallCoordinator {
	return &CallCoordinator{
		sessions: make(map[string]*CallSession),
		registry: registry,
		logger:   logx.Logger().With().Str("component", "CallCoordinator").Logger(),
	}
}

// Initiate starts a call attempt from caller toward callee. When the callee
// is unreachable no session is created and the caller gets a soft failure.
// Otherwise the offer is forwarded to the callee as a callOffered event.
func (c *CallCoordinator) Initiate(caller, callee string, offer json.RawMessage) *errs.CustomError {
	calleeConn, ok := c.registry.Resolve(callee)
	if !ok {
		c.logger.Info().
			Str("caller", caller).
			Str("callee", callee).
			Msg("Call initiate dropped: callee offline.")
		return errs.NewError(errs.ErrCalleeOffline, callee)
	}

	ev, err := NewEvent(TypeCallOffered, CallOfferedPayload{Offer: offer, From: caller})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build callOffered event.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	c.mu.Lock()
	c.sessions[ChatID(caller, callee)] = &CallSession{
		Caller: caller,
		Callee: callee,
		state:  stateCalling,
	}
	c.mu.Unlock()

	calleeConn.Deliver(ev)

	c.logger.Info().Str("caller", caller).Str("callee", callee).Msg("Call offered.")
	return nil
}

// Answer relays the callee's answer back to the caller and moves the session
// to in-call. An answer without a matching ringing session is stale (the call
// already ended from the other side) and is reported as such; the caller
// having vanished destroys the session.
func (c *CallCoordinator) Answer(callee, caller string, answer json.RawMessage) *errs.CustomError {
	key := ChatID(caller, callee)

	c.mu.Lock()
	sess, ok := c.sessions[key]
	if !ok || sess.state != stateCalling || !sess.involves(caller, callee) {
		c.mu.Unlock()
		c.logger.Info().
			Str("caller", caller).
			Str("callee", callee).
			Msg("Stale call answer dropped: no ringing session between the pair.")
		return errs.NewError(errs.ErrStaleCallSession)
	}

	callerConn, reachable := c.registry.Resolve(caller)
	if !reachable {
		delete(c.sessions, key)
		c.mu.Unlock()
		c.logger.Info().
			Str("caller", caller).
			Str("callee", callee).
			Msg("Call answer dropped: caller gone. Session destroyed.")
		return errs.NewError(errs.ErrCallerGone)
	}

	sess.state = stateInCall
	c.mu.Unlock()

	ev, err := NewEvent(TypeCallAnswered, CallAnsweredPayload{Answer: answer, From: callee})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build callAnswered event.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	callerConn.Deliver(ev)

	c.logger.Info().Str("caller", caller).Str("callee", callee).Msg("Call answered.")
	return nil
}

// RelayICE forwards one ICE candidate between the call parties. Valid only
// while a session between the pair exists; otherwise the candidate is dropped
// silently, as is a candidate toward an unreachable target (ICE tolerates loss).
func (c *CallCoordinator) RelayICE(from, to string, candidate json.RawMessage) {
	c.mu.Lock()
	sess, ok := c.sessions[ChatID(from, to)]
	valid := ok && sess.involves(from, to)
	c.mu.Unlock()

	if !valid {
		c.logger.Debug().Str("from", from).Str("to", to).Msg("ICE candidate dropped: no session.")
		return
	}

	target, reachable := c.registry.Resolve(to)
	if !reachable {
		return
	}

	ev, err := NewEvent(TypeICECandidate, ICECandidatePayload{Candidate: candidate, From: from})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build iceCandidate event.")
		return
	}

	target.Deliver(ev)
}

// End terminates the call between from and to. The termination notice is
// forwarded when the peer is reachable; the session is removed regardless.
func (c *CallCoordinator) End(from, to string) {
	c.mu.Lock()
	delete(c.sessions, ChatID(from, to))
	c.mu.Unlock()

	target, reachable := c.registry.Resolve(to)
	if !reachable {
		return
	}

	ev, err := NewEvent(TypeCallEnded, CallEndedPayload{From: from})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build callEnded event.")
		return
	}

	target.Deliver(ev)

	c.logger.Info().Str("from", from).Str("to", to).Msg("Call ended.")
}

// HandleDisconnect synthesizes an end toward the other participant of every
// live session the identity takes part in. Calls are never left dangling
// because one side vanished.
func (c *CallCoordinator) HandleDisconnect(identity string) {
	c.mu.Lock()
	var peers []string
	for key, sess := range c.sessions {
		switch identity {
		case sess.Caller:
			peers = append(peers, sess.Callee)
		case sess.Callee:
			peers = append(peers, sess.Caller)
		default:
			continue
		}
		delete(c.sessions, key)
	}
	c.mu.Unlock()

	for _, peer := range peers {
		target, reachable := c.registry.Resolve(peer)
		if !reachable {
			continue
		}

		ev, err := NewEvent(TypeCallEnded, CallEndedPayload{From: identity})
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to build callEnded event on disconnect.")
			continue
		}

		target.Deliver(ev)

		c.logger.Info().
			Str("identity", identity).
			Str("peer", peer).
			Msg("Call ended by disconnect.")
	}
}

// HasSession reports whether a live session exists between the two identities.
func (c *CallCoordinator) HasSession(a, b string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[ChatID(a, b)]
	return ok && sess.involves(a, b)
}
