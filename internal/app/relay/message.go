/*
Package relay contains the core logic of the chat and call-signaling relay.

This file defines the chat message and conversation models, the canonical
conversation id derivation, and message validation.
*/
package relay

import (
	"strings"
	"time"

	"duochat/internal/pkg/errs"
)

// MaxBodyBytes is the maximum allowed size of message body text.
const MaxBodyBytes = 5000

// MediaKind classifies an attachment for rendering purposes.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindPDF   MediaKind = "pdf"
)

// Attachment describes a file referenced by a message. The file itself lives
// in object storage; messages only carry its name, URL, and kind.
type Attachment struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	MediaKind MediaKind `json:"mediaKind"`
}

// Message is one chat message between two identities. Immutable once the
// store has assigned its id and timestamp.
type Message struct {
	ID         string      `json:"id"`
	ChatID     string      `json:"chatId"`
	Sender     string      `json:"sender"`
	Recipient  string      `json:"recipient"`
	Body       string      `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Conversation is the per-pair summary shown in chat lists: who talks to whom
// and what was said last.
type Conversation struct {
	ChatID      string    `json:"chatId"`
	User        string    `json:"user"`
	Participant string    `json:"participant"`
	LastMessage string    `json:"lastMessage"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatID derives the conversation id for two identities. Order-independent:
// both directions of a conversation resolve to the same id.
func ChatID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// Validate checks the fields a send requires. The chat id must be the
// canonical id for the sender/recipient pair, and a message must carry text
// or an attachment (or both).
func (m *Message) Validate() *errs.CustomError {
	if m.Sender == "" || m.Recipient == "" || m.ChatID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if m.ChatID != ChatID(m.Sender, m.Recipient) {
		return errs.NewError(errs.ErrChatIDMismatch)
	}

	if strings.TrimSpace(m.Body) == "" && m.Attachment == nil {
		return errs.NewError(errs.ErrMessageContentMissing)
	}

	if len(m.Body) > MaxBodyBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	if m.Attachment != nil {
		if m.Attachment.MediaKind != MediaKindImage && m.Attachment.MediaKind != MediaKindPDF {
			return errs.NewError(errs.ErrAttachmentKindInvalid)
		}
		if m.Attachment.Name == "" || m.Attachment.URL == "" {
			return errs.NewError(errs.ErrInvalidParams)
		}
	}

	return nil
}

// Preview returns the text a conversation list shows for this message.
func (m *Message) Preview() string {
	if strings.TrimSpace(m.Body) != "" {
		return m.Body
	}
	if m.Attachment != nil {
		return m.Attachment.Name
	}
	return ""
}
