/*
Package relay contains the core logic of the chat and call-signaling relay.

This file defines the Gateway: the single entry point for every inbound
websocket event. It dispatches on event type, drives the message relay path
(block gate, persistence, fan-out), and runs the connection lifecycle hooks
that keep the presence registry and call coordinator consistent.
*/
package relay

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
)

// Session is one connected client as the gateway sees it: a deliverable
// connection plus the identity state the join handshake establishes.
type Session interface {
	Conn

	// Identity returns the bound identity, empty before a successful join.
	Identity() string

	// SetIdentity records the identity announced by join.
	SetIdentity(identity string)

	// PinnedIdentity returns the identity the transport credential vouches
	// for, empty when the connection was accepted without one.
	PinnedIdentity() string
}

// Gateway wires the relay components together and owns event dispatch.
type Gateway struct {
	registry      *Registry
	calls         *CallCoordinator
	blocks        *BlockGate
	messages      MessageStore
	conversations ConversationStore
	logger        zerolog.Logger
}

// NewGateway constructs the gateway and its owned components over the given stores.
func NewGateway(messages MessageStore, conversations ConversationStore, blocks BlockStore) *Gateway {
	registry := NewRegistry()

	return &Gateway{
		registry:      registry,
		calls:         NewCallCoordinator(registry),
		blocks:        NewBlockGate(blocks, registry),
		messages:      messages,
		conversations: conversations,
		logger:        logx.Logger().With().Str("component", "Gateway").Logger(),
	}
}

// Registry exposes the presence registry.
func (g *Gateway) Registry() *Registry { return g.registry }

// Calls exposes the call coordinator.
func (g *Gateway) Calls() *CallCoordinator { return g.calls }

// Blocks exposes the block gate, also used by the REST block endpoints.
func (g *Gateway) Blocks() *BlockGate { return g.blocks }

// Dispatch routes one inbound event to its handler. Unknown types are logged
// and dropped; handler failures are reported back to the originating session
// as error events and never leak into other connections.
func (g *Gateway) Dispatch(ctx context.Context, s Session, ev Event) {
	switch ev.Type {
	case TypeJoin:
		g.handleJoin(s, ev.Payload)

	case TypeSend:
		g.handleSend(ctx, s, ev.Payload)

	case TypeCallInitiate:
		g.handleCallInitiate(s, ev.Payload)

	case TypeCallAnswer:
		g.handleCallAnswer(s, ev.Payload)

	case TypeICECandidate:
		g.handleICECandidate(s, ev.Payload)

	case TypeCallEnd:
		g.handleCallEnd(s, ev.Payload)

	default:
		g.logger.Warn().
			Str("event_type", string(ev.Type)).
			Str("handle", s.HandleID()).
			Msg("Client sent unsupported event type.")
	}
}

// Disconnect runs the teardown for a closed connection: end any live call the
// bound identity takes part in and release its presence entry. Safe to call
// for connections that never joined.
func (g *Gateway) Disconnect(s Session) {
	if identity := s.Identity(); identity != "" {
		g.calls.HandleDisconnect(identity)
	}

	g.registry.Unbind(s)
}

// handleJoin binds the announced identity to this connection. When the
// transport pinned an identity, the announcement must agree with it.
func (g *Gateway) handleJoin(s Session, payload json.RawMessage) {
	var join JoinPayload
	if err := json.Unmarshal(payload, &join); err != nil || join.Identity == "" {
		g.deliverError(s, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if pinned := s.PinnedIdentity(); pinned != "" && pinned != join.Identity {
		g.logger.Warn().
			Str("handle", s.HandleID()).
			Str("pinned", pinned).
			Str("announced", join.Identity).
			Msg("Join rejected: identity disagrees with transport credential.")
		g.deliverError(s, errs.NewError(errs.ErrIdentityMismatch))
		return
	}

	s.SetIdentity(join.Identity)
	g.registry.Bind(join.Identity, s)

	g.logger.Info().
		Str("identity", join.Identity).
		Str("handle", s.HandleID()).
		Msg("Identity joined.")
}

// handleSend runs the message relay path: validate, consult the block gate in
// both directions, persist, then fan out to the recipient and echo to the
// sender. Persistence strictly precedes delivery.
func (g *Gateway) handleSend(ctx context.Context, s Session, payload json.RawMessage) {
	identity, customErr := g.requireIdentity(s)
	if customErr != nil {
		g.deliverError(s, customErr)
		return
	}

	var send SendPayload
	if err := json.Unmarshal(payload, &send); err != nil {
		g.deliverError(s, errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if send.Sender != identity {
		g.deliverError(s, errs.NewError(errs.ErrIdentityMismatch))
		return
	}

	msg := Message{
		ChatID:     send.ChatID,
		Sender:     send.Sender,
		Recipient:  send.Recipient,
		Body:       send.Body,
		Attachment: send.Attachment,
	}

	if customErr := msg.Validate(); customErr != nil {
		g.deliverError(s, customErr)
		return
	}

	// Both directions of the relation veto the send, with distinguishable errors.
	senderBlocked, err := g.blocks.IsBlocked(ctx, msg.Sender, msg.Recipient)
	if err != nil {
		g.logger.Error().Err(err).Msg("Block gate lookup failed. Rejecting send.")
		g.deliverError(s, errs.NewError(errs.ErrUnknown, err))
		return
	}
	if senderBlocked {
		g.deliverError(s, errs.NewError(errs.ErrYouBlockedPeer, msg.Recipient))
		return
	}

	recipientBlocked, err := g.blocks.IsBlocked(ctx, msg.Recipient, msg.Sender)
	if err != nil {
		g.logger.Error().Err(err).Msg("Block gate lookup failed. Rejecting send.")
		g.deliverError(s, errs.NewError(errs.ErrUnknown, err))
		return
	}
	if recipientBlocked {
		g.deliverError(s, errs.NewError(errs.ErrBlockedByPeer, msg.Recipient))
		return
	}

	stored, err := g.messages.Append(ctx, msg)
	if err != nil {
		g.logger.Error().Err(err).
			Str("chat_id", msg.ChatID).
			Msg("Message persistence failed. Nothing delivered.")
		g.deliverError(s, errs.NewError(errs.ErrPersistenceFailed))
		return
	}

	conv := Conversation{
		ChatID:      stored.ChatID,
		User:        stored.Sender,
		Participant: stored.Recipient,
		LastMessage: stored.Preview(),
		Timestamp:   stored.Timestamp,
	}
	if err := g.conversations.Upsert(ctx, conv); err != nil {
		// The message itself is safe; the conversation list just goes stale.
		g.logger.Warn().Err(err).Str("chat_id", stored.ChatID).Msg("Conversation upsert failed.")
	}

	delivered, err := NewEvent(TypeMessageDelivered, stored)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to build messageDelivered event.")
		return
	}

	if recipientConn, ok := g.registry.Resolve(stored.Recipient); ok {
		recipientConn.Deliver(delivered)
	} else {
		g.logger.Debug().
			Str("recipient", stored.Recipient).
			Str("chat_id", stored.ChatID).
			Msg("Recipient offline. Message stored for later retrieval.")
	}

	// Echo back to the sender for optimistic-UI reconciliation; advisory only.
	s.Deliver(delivered)

	g.notifyConversationUpdated(conv)
}

// handleCallInitiate starts a call attempt on behalf of the bound identity.
func (g *Gateway) handleCallInitiate(s Session, payload json.RawMessage) {
	identity, customErr := g.requireIdentity(s)
	if customErr != nil {
		g.deliverError(s, customErr)
		return
	}

	var initiate CallInitiatePayload
	if err := json.Unmarshal(payload, &initiate); err != nil || initiate.To == "" {
		g.deliverError(s, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if initiate.From != identity {
		g.deliverError(s, errs.NewError(errs.ErrIdentityMismatch))
		return
	}

	if customErr := g.calls.Initiate(initiate.From, initiate.To, initiate.Offer); customErr != nil {
		g.deliverError(s, customErr)
	}
}

// handleCallAnswer relays an answer from the bound identity back to the caller.
// Stale answers are logged and dropped without an error event; the call has
// already ended from the other side's perspective.
func (g *Gateway) handleCallAnswer(s Session, payload json.RawMessage) {
	identity, customErr := g.requireIdentity(s)
	if customErr != nil {
		g.deliverError(s, customErr)
		return
	}

	var answer CallAnswerPayload
	if err := json.Unmarshal(payload, &answer); err != nil || answer.To == "" {
		g.deliverError(s, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if answer.From != identity {
		g.deliverError(s, errs.NewError(errs.ErrIdentityMismatch))
		return
	}

	if customErr := g.calls.Answer(answer.From, answer.To, answer.Answer); customErr != nil {
		if customErr.Code == errs.ErrStaleCallSession {
			g.logger.Info().
				Str("callee", answer.From).
				Str("caller", answer.To).
				Msg("Stale call answer dropped.")
			return
		}
		g.deliverError(s, customErr)
	}
}

// handleICECandidate forwards one ICE candidate; every failure here is silent.
func (g *Gateway) handleICECandidate(s Session, payload json.RawMessage) {
	identity := s.Identity()
	if identity == "" {
		return
	}

	var ice ICECandidatePayload
	if err := json.Unmarshal(payload, &ice); err != nil || ice.To == "" || ice.From != identity {
		return
	}

	g.calls.RelayICE(ice.From, ice.To, ice.Candidate)
}

// handleCallEnd terminates a call on behalf of the bound identity.
func (g *Gateway) handleCallEnd(s Session, payload json.RawMessage) {
	identity, customErr := g.requireIdentity(s)
	if customErr != nil {
		g.deliverError(s, customErr)
		return
	}

	var end CallEndPayload
	if err := json.Unmarshal(payload, &end); err != nil || end.To == "" {
		g.deliverError(s, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if end.From != identity {
		g.deliverError(s, errs.NewError(errs.ErrIdentityMismatch))
		return
	}

	g.calls.End(end.From, end.To)
}

// requireIdentity returns the session's bound identity or an ErrNotJoined.
func (g *Gateway) requireIdentity(s Session) (string, *errs.CustomError) {
	identity := s.Identity()
	if identity == "" {
		return "", errs.NewError(errs.ErrNotJoined)
	}
	return identity, nil
}

// notifyConversationUpdated pushes the refreshed conversation summary to both
// participants' live sessions.
func (g *Gateway) notifyConversationUpdated(conv Conversation) {
	ev, err := NewEvent(TypeConversationUpdated, conv)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to build conversationUpdated event.")
		return
	}

	for _, identity := range []string{conv.User, conv.Participant} {
		if conn, ok := g.registry.Resolve(identity); ok {
			conn.Deliver(ev)
		}
	}
}

// deliverError reports a failed operation back to the originating session.
func (g *Gateway) deliverError(s Session, customErr *errs.CustomError) {
	ev, err := NewEvent(TypeError, ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to build error event.")
		return
	}

	s.Deliver(ev)
}
