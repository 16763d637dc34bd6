package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"duochat/internal/app/relay"
)

// MessageStore is the PostgreSQL-backed append-only message log.
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore constructs a MessageStore over the shared pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Append persists the message and returns it with the assigned id and
// timestamp. Messages are never updated or deleted afterwards.
func (s *MessageStore) Append(ctx context.Context, msg relay.Message) (relay.Message, error) {
	msg.ID = uuid.New().String()

	var attachmentName, attachmentURL, attachmentKind *string
	if msg.Attachment != nil {
		attachmentName = &msg.Attachment.Name
		attachmentURL = &msg.Attachment.URL
		kind := string(msg.Attachment.MediaKind)
		attachmentKind = &kind
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, chat_id, sender, recipient, body, attachment_name, attachment_url, attachment_kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		msg.ID, msg.ChatID, msg.Sender, msg.Recipient, msg.Body,
		attachmentName, attachmentURL, attachmentKind,
	)

	if err := row.Scan(&msg.Timestamp); err != nil {
		return relay.Message{}, fmt.Errorf("failed to append message: %w", err)
	}

	return msg, nil
}

// FindByChat returns the chat's messages in ascending timestamp order.
func (s *MessageStore) FindByChat(ctx context.Context, chatID string) ([]relay.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, sender, recipient, body, attachment_name, attachment_url, attachment_kind, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]relay.Message, 0)

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// scanMessage reads one message row, folding the nullable attachment columns
// back into the Attachment struct.
func scanMessage(row pgx.Row) (relay.Message, error) {
	var msg relay.Message
	var attachmentName, attachmentURL, attachmentKind *string

	err := row.Scan(
		&msg.ID, &msg.ChatID, &msg.Sender, &msg.Recipient, &msg.Body,
		&attachmentName, &attachmentURL, &attachmentKind, &msg.Timestamp,
	)
	if err != nil {
		return relay.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}

	if attachmentName != nil && attachmentURL != nil && attachmentKind != nil {
		msg.Attachment = &relay.Attachment{
			Name:      *attachmentName,
			URL:       *attachmentURL,
			MediaKind: relay.MediaKind(*attachmentKind),
		}
	}

	return msg, nil
}
