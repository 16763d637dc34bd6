/*
Package relay contains the core logic of the chat and call-signaling relay.

This file defines the block gate: the yes/no predicate consulted before any
message is relayed, plus the block/unblock mutations and their change
notifications.
*/
package relay

import (
	"context"

	"github.com/rs/zerolog"

	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
)

// BlockGate answers whether one identity has blocked another and applies
// block/unblock mutations. Reads and writes go straight to the block store;
// the gate itself keeps no state.
type BlockGate struct {
	store    BlockStore
	registry *Registry
	logger   zerolog.Logger
}

// NewBlockGate constructs a BlockGate over the given store. The registry is
// used to push relationChanged notices to the affected parties' live sessions.
func NewBlockGate(store BlockStore, registry *Registry) *BlockGate {
	return &BlockGate{
		store:    store,
		registry: registry,
		logger:   logx.Logger().With().Str("component", "BlockGate").Logger(),
	}
}

// IsBlocked reports whether blocker has blocked blocked.
func (g *BlockGate) IsBlocked(ctx context.Context, blocker, blocked string) (bool, error) {
	return g.store.Exists(ctx, blocker, blocked)
}

// Block records that blocker has blocked blocked. Idempotent; repeated calls
// succeed without effect.
func (g *BlockGate) Block(ctx context.Context, blocker, blocked string) *errs.CustomError {
	if customErr := validateRelation(blocker, blocked); customErr != nil {
		return customErr
	}

	if err := g.store.Add(ctx, blocker, blocked); err != nil {
		g.logger.Error().Err(err).
			Str("blocker", blocker).
			Str("blocked", blocked).
			Msg("Failed to persist block relation.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	g.notifyRelationChanged(blocker, blocked, "block")
	return nil
}

// Unblock removes the block relation from blocker toward blocked. Idempotent.
func (g *BlockGate) Unblock(ctx context.Context, blocker, blocked string) *errs.CustomError {
	if customErr := validateRelation(blocker, blocked); customErr != nil {
		return customErr
	}

	if err := g.store.Remove(ctx, blocker, blocked); err != nil {
		g.logger.Error().Err(err).
			Str("blocker", blocker).
			Str("blocked", blocked).
			Msg("Failed to remove block relation.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	g.notifyRelationChanged(blocker, blocked, "unblock")
	return nil
}

// ListBlockedBy returns the identities blocker has blocked.
func (g *BlockGate) ListBlockedBy(ctx context.Context, blocker string) ([]string, *errs.CustomError) {
	if blocker == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	blocked, err := g.store.ListBlockedBy(ctx, blocker)
	if err != nil {
		g.logger.Error().Err(err).Str("blocker", blocker).Msg("Failed to list block relations.")
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	return blocked, nil
}

// validateRelation rejects empty identities and self-blocks.
func validateRelation(blocker, blocked string) *errs.CustomError {
	if blocker == "" || blocked == "" || blocker == blocked {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

// notifyRelationChanged pushes a relationChanged event to the live sessions of
// the two identities the relation names. Deliberately narrow: unrelated
// clients never see other users' block changes.
func (g *BlockGate) notifyRelationChanged(blocker, blocked, action string) {
	ev, err := NewEvent(TypeRelationChanged, RelationChangedPayload{
		Blocker: blocker,
		Blocked: blocked,
		Action:  action,
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to build relationChanged event.")
		return
	}

	for _, identity := range []string{blocker, blocked} {
		if conn, ok := g.registry.Resolve(identity); ok {
			conn.Deliver(ev)
		}
	}
}
