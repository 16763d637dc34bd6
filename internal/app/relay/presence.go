/*
Package relay contains the core logic of the chat and call-signaling relay.

This file defines the presence registry: the single source of truth for which
live connection, if any, currently serves a user identity.
*/
package relay

import (
	"sync"

	"github.com/rs/zerolog"

	"duochat/internal/pkg/logx"
)

// Conn is one live client connection as the relay core sees it. The websocket
// client implements it; tests substitute fakes.
type Conn interface {
	// HandleID returns the ephemeral connection handle id, unique per
	// connection and never reused.
	HandleID() string

	// Deliver enqueues an event toward the peer without blocking. Events are
	// dropped, not queued indefinitely, when the connection cannot keep up.
	Deliver(ev Event)
}

// Registry maps a user identity to its currently active connection.
// One handle per identity: a later Bind silently replaces the earlier one.
// In-memory only; all presence is lost on restart and clients must re-announce.
type Registry struct {
	// mu protects both maps; they always change together.
	mu sync.RWMutex

	// byIdentity holds the current connection per identity.
	byIdentity map[string]Conn

	// identityByHandle is the reverse index used by Unbind, keyed by handle id.
	identityByHandle map[string]string

	logger zerolog.Logger
}

// NewRegistry constructs an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity:       make(map[string]Conn),
		identityByHandle: make(map[string]string),
		logger:           logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Bind registers conn as the reachable point for identity. An existing
// binding for the same identity is replaced; the old connection is not
// notified, it simply stops being addressable.
func (r *Registry) Bind(identity string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byIdentity[identity]; ok {
		delete(r.identityByHandle, old.HandleID())
		r.logger.Info().
			Str("identity", identity).
			Str("old_handle", old.HandleID()).
			Str("new_handle", conn.HandleID()).
			Msg("Presence binding replaced.")
	}

	r.byIdentity[identity] = conn
	r.identityByHandle[conn.HandleID()] = identity
}

// Resolve returns the live connection for identity. A miss means the user is
// not reachable right now; callers drop the operation rather than retry.
func (r *Registry) Resolve(identity string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byIdentity[identity]
	return conn, ok
}

// Unbind removes the entry currently pointing at conn, if any. A no-op when
// the connection never bound or was already replaced by a newer one.
func (r *Registry) Unbind(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identityByHandle[conn.HandleID()]
	if !ok {
		return
	}

	delete(r.identityByHandle, conn.HandleID())

	if current, ok := r.byIdentity[identity]; ok && current.HandleID() == conn.HandleID() {
		delete(r.byIdentity, identity)
		r.logger.Info().
			Str("identity", identity).
			Str("handle", conn.HandleID()).
			Msg("Presence binding removed.")
	}
}

// OnlineCount reports the number of currently bound identities.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byIdentity)
}
