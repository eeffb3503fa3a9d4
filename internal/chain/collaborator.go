package chain

import (
	"context"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// Collaborator abstracts the chain-specific block source so the watcher core
// operates chain-agnostically.
type Collaborator interface {
	// Chain returns the wormhole chain id this collaborator reads.
	Chain() vaa.ChainID

	// FinalizedHeight returns the highest block the chain considers irreversible.
	FinalizedHeight(ctx context.Context) (uint64, error)

	// MessagesInRange returns the messages observed in the inclusive range
	// [from, to]. It must be safe to call repeatedly with the same range.
	MessagesInRange(ctx context.Context, from, to uint64) (model.VaasByBlock, error)
}
