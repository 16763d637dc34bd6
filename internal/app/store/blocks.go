package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BlockStore is the PostgreSQL-backed block-relation set. Relations are
// directional and unique per ordered pair.
type BlockStore struct {
	pool *pgxpool.Pool
}

// NewBlockStore constructs a BlockStore over the shared pool.
func NewBlockStore(pool *pgxpool.Pool) *BlockStore {
	return &BlockStore{pool: pool}
}

// Add records the relation. Idempotent: re-blocking an already blocked pair
// succeeds without effect.
func (s *BlockStore) Add(ctx context.Context, blocker, blocked string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blocked_users (blocker, blocked)
		VALUES ($1, $2)`,
		blocker, blocked,
	)
	if err != nil && !IsUniqueViolation(err) {
		return fmt.Errorf("failed to add block relation: %w", err)
	}

	return nil
}

// Remove deletes the relation. Idempotent: a missing pair is not an error.
func (s *BlockStore) Remove(ctx context.Context, blocker, blocked string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM blocked_users
		WHERE blocker = $1 AND blocked = $2`,
		blocker, blocked,
	)
	if err != nil {
		return fmt.Errorf("failed to remove block relation: %w", err)
	}

	return nil
}

// Exists reports whether blocker has blocked blocked.
func (s *BlockStore) Exists(ctx context.Context, blocker, blocked string) (bool, error) {
	var exists bool

	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocked_users
			WHERE blocker = $1 AND blocked = $2
		)`,
		blocker, blocked,
	)

	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check block relation: %w", err)
	}

	return exists, nil
}

// ListBlockedBy returns every identity blocker has blocked.
func (s *BlockStore) ListBlockedBy(ctx context.Context, blocker string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT blocked FROM blocked_users
		WHERE blocker = $1
		ORDER BY created_at ASC`,
		blocker,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query block relations: %w", err)
	}
	defer rows.Close()

	blockedList := make([]string, 0)

	for rows.Next() {
		var blocked string
		if err := rows.Scan(&blocked); err != nil {
			return nil, fmt.Errorf("failed to scan block relation: %w", err)
		}
		blockedList = append(blockedList, blocked)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate block relations: %w", err)
	}

	return blockedList, nil
}
