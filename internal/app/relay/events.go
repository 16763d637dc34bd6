/*
Package relay contains the core logic of the chat and call-signaling relay:
the presence registry, the message fan-out path, the block gate, and the call
coordinator.

This file defines the wire events exchanged with clients. Every websocket
frame is one Event envelope; payload shapes are fixed per event type so the
dispatcher can match exhaustively.
*/
package relay

import "encoding/json"

// EventType names one websocket event kind.
type EventType string

// Inbound event types (client to server).
const (
	TypeJoin         EventType = "join"
	TypeSend         EventType = "send"
	TypeCallInitiate EventType = "callInitiate"
	TypeCallAnswer   EventType = "callAnswer"
	TypeCallEnd      EventType = "callEnd"
)

// TypeICECandidate flows in both directions with the same payload shape.
const TypeICECandidate EventType = "iceCandidate"

// Outbound event types (server to client).
const (
	TypeMessageDelivered    EventType = "messageDelivered"
	TypeCallOffered         EventType = "callOffered"
	TypeCallAnswered        EventType = "callAnswered"
	TypeCallEnded           EventType = "callEnded"
	TypeRelationChanged     EventType = "relationChanged"
	TypeConversationUpdated EventType = "conversationUpdated"
	TypeError               EventType = "error"
)

// Event is the JSON envelope carried by every websocket frame.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an Event with the payload marshaled into the envelope.
func NewEvent(eventType EventType, payload any) (Event, error) {
	if payload == nil {
		return Event{Type: eventType}, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw}, nil
}

// JoinPayload announces the connection's identity and binds presence.
type JoinPayload struct {
	Identity string `json:"identity"`
}

// SendPayload carries an outgoing chat message.
type SendPayload struct {
	ChatID     string      `json:"chatId"`
	Sender     string      `json:"sender"`
	Recipient  string      `json:"recipient"`
	Body       string      `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// CallInitiatePayload carries a WebRTC offer toward a callee.
// Offer, Answer, and Candidate below stay opaque; the relay never inspects SDP.
type CallInitiatePayload struct {
	Offer json.RawMessage `json:"offer"`
	From  string          `json:"from"`
	To    string          `json:"to"`
}

// CallOfferedPayload is the offer as forwarded to the callee.
type CallOfferedPayload struct {
	Offer json.RawMessage `json:"offer"`
	From  string          `json:"from"`
}

// CallAnswerPayload carries the callee's answer back toward the caller.
type CallAnswerPayload struct {
	Answer json.RawMessage `json:"answer"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

// CallAnsweredPayload is the answer as forwarded to the caller.
type CallAnsweredPayload struct {
	Answer json.RawMessage `json:"answer"`
	From   string          `json:"from"`
}

// ICECandidatePayload carries one ICE candidate between the call parties.
// To is set on the inbound leg and cleared before forwarding.
type ICECandidatePayload struct {
	Candidate json.RawMessage `json:"candidate"`
	From      string          `json:"from"`
	To        string          `json:"to,omitempty"`
}

// CallEndPayload asks the relay to terminate a call toward To.
type CallEndPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CallEndedPayload is the termination notice forwarded to the remaining party.
type CallEndedPayload struct {
	From string `json:"from"`
}

// RelationChangedPayload tells a client its block-relation view is outdated.
// Clients are expected to refetch their block list; the fields only say why.
type RelationChangedPayload struct {
	Blocker string `json:"blocker"`
	Blocked string `json:"blocked"`
	Action  string `json:"action"`
}

// ErrorPayload reports a failed operation back to the originating client.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
