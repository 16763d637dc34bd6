package relay_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/app/relay"
	"duochat/internal/pkg/errs"
)

func TestChatIDOrderIndependent(t *testing.T) {
	assert.Equal(t, "alice_bob", relay.ChatID("alice", "bob"))
	assert.Equal(t, "alice_bob", relay.ChatID("bob", "alice"))
	assert.Equal(t, relay.ChatID("x@a.com", "y@b.com"), relay.ChatID("y@b.com", "x@a.com"))
}

func TestMessageValidate(t *testing.T) {
	valid := func() relay.Message {
		return relay.Message{
			ChatID:    relay.ChatID("alice", "bob"),
			Sender:    "alice",
			Recipient: "bob",
			Body:      "hi",
		}
	}

	t.Run("text message passes", func(t *testing.T) {
		msg := valid()
		assert.Nil(t, msg.Validate())
	})

	t.Run("attachment without text passes", func(t *testing.T) {
		msg := valid()
		msg.Body = ""
		msg.Attachment = &relay.Attachment{
			Name:      "photo.png",
			URL:       "/api/file/download?key=attachments%2Fabc.png",
			MediaKind: relay.MediaKindImage,
		}
		assert.Nil(t, msg.Validate())
	})

	t.Run("missing participants rejected", func(t *testing.T) {
		msg := valid()
		msg.Recipient = ""
		customErr := msg.Validate()
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
	})

	t.Run("chat id mismatch rejected", func(t *testing.T) {
		msg := valid()
		msg.ChatID = relay.ChatID("alice", "charlie")
		customErr := msg.Validate()
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrChatIDMismatch, customErr.Code)
	})

	t.Run("whitespace-only body without attachment rejected", func(t *testing.T) {
		msg := valid()
		msg.Body = "   \n\t"
		customErr := msg.Validate()
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrMessageContentMissing, customErr.Code)
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		msg := valid()
		msg.Body = strings.Repeat("a", relay.MaxBodyBytes+1)
		customErr := msg.Validate()
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrMessageContentTooLong, customErr.Code)
	})

	t.Run("unknown attachment kind rejected", func(t *testing.T) {
		msg := valid()
		msg.Attachment = &relay.Attachment{Name: "v.mp4", URL: "/x", MediaKind: "video"}
		customErr := msg.Validate()
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrAttachmentKindInvalid, customErr.Code)
	})

	t.Run("attachment missing url rejected", func(t *testing.T) {
		msg := valid()
		msg.Attachment = &relay.Attachment{Name: "doc.pdf", MediaKind: relay.MediaKindPDF}
		customErr := msg.Validate()
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
	})
}

func TestMessagePreview(t *testing.T) {
	msg := relay.Message{Body: "see attached"}
	assert.Equal(t, "see attached", msg.Preview())

	msg = relay.Message{
		Attachment: &relay.Attachment{Name: "report.pdf", URL: "/x", MediaKind: relay.MediaKindPDF},
	}
	assert.Equal(t, "report.pdf", msg.Preview())
}
