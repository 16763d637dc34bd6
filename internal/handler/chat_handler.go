package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
	"duochat/internal/pkg/resp"
)

// HandleGetMessages returns the full history of one conversation, oldest
// first. Only a participant of the conversation may read it.
func HandleGetMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		chatID := chi.URLParam(r, "chatId")
		if chatID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if !chatIncludes(chatID, payload.Identity) {
			resp.RespondError(w, r, errs.NewError(errs.ErrIdentityMismatch))
			return
		}

		messages, err := deps.Messages.FindByChat(r.Context(), chatID)
		if err != nil {
			logx.Error(err, "Failed to load chat history", "chat_id", chatID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"chatId":   chatID,
			"messages": messages,
		})
	}
}

// HandleGetConversations returns the caller's conversation summaries, most
// recently active first.
func HandleGetConversations(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conversations, err := deps.Conversations.FindByIdentity(r.Context(), payload.Identity)
		if err != nil {
			logx.Error(err, "Failed to load conversations", "identity", payload.Identity)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"conversations": conversations,
		})
	}
}

// chatIncludes reports whether identity is one of the two participants a chat
// id was derived from. Identities may themselves contain the separator, so
// prefix/suffix matching is used rather than splitting.
func chatIncludes(chatID, identity string) bool {
	return strings.HasPrefix(chatID, identity+"_") || strings.HasSuffix(chatID, "_"+identity)
}
