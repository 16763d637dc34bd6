package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"duochat/internal/app/relay"
)

// ConversationStore is the PostgreSQL-backed conversation summary table.
type ConversationStore struct {
	pool *pgxpool.Pool
}

// NewConversationStore constructs a ConversationStore over the shared pool.
func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

// Upsert creates or refreshes the conversation row for its chat id.
func (s *ConversationStore) Upsert(ctx context.Context, conv relay.Conversation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (chat_id, member, participant, last_message, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE
		SET last_message = EXCLUDED.last_message, updated_at = EXCLUDED.updated_at`,
		conv.ChatID, conv.User, conv.Participant, conv.LastMessage, conv.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	return nil
}

// FindByIdentity returns the conversations the identity takes part in, on
// either side, most recently updated first.
func (s *ConversationStore) FindByIdentity(ctx context.Context, identity string) ([]relay.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chat_id, member, participant, last_message, updated_at
		FROM conversations
		WHERE member = $1 OR participant = $1
		ORDER BY updated_at DESC`,
		identity,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]relay.Conversation, 0)

	for rows.Next() {
		var conv relay.Conversation
		if err := rows.Scan(&conv.ChatID, &conv.User, &conv.Participant, &conv.LastMessage, &conv.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return conversations, nil
}
