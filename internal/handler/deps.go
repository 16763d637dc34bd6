package handler

import (
	"duochat/internal/app/relay"
	"duochat/internal/app/storage"
	"duochat/internal/configs"
)

// AppDeps bundles everything the HTTP layer needs. Stores are held as the
// relay's narrow interfaces so handler tests can substitute doubles.
type AppDeps struct {
	Gateway       *relay.Gateway
	Config        *configs.AppConfig
	Messages      relay.MessageStore
	Conversations relay.ConversationStore
	Storage       storage.AttachmentStorage
}
