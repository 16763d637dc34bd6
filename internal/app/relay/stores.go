package relay

import "context"

// MessageStore is the external document store the relay appends messages to.
// Append assigns the persisted id and timestamp; FindByChat returns a chat's
// messages in ascending timestamp order.
type MessageStore interface {
	Append(ctx context.Context, msg Message) (Message, error)
	FindByChat(ctx context.Context, chatID string) ([]Message, error)
}

// ConversationStore keeps the per-pair conversation summaries.
type ConversationStore interface {
	Upsert(ctx context.Context, conv Conversation) error
	FindByIdentity(ctx context.Context, identity string) ([]Conversation, error)
}

// BlockStore backs the block gate. Add and Remove are idempotent.
type BlockStore interface {
	Add(ctx context.Context, blocker, blocked string) error
	Remove(ctx context.Context, blocker, blocked string) error
	Exists(ctx context.Context, blocker, blocked string) (bool, error)
	ListBlockedBy(ctx context.Context, blocker string) ([]string, error)
}
