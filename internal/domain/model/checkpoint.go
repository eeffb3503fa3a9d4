package model

import (
	"time"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// Checkpoint is the last block a watcher durably stored for a chain.
type Checkpoint struct {
	Scope        Scope
	Chain        vaa.ChainID
	LastBlockKey BlockKey
	UpdatedAt    time.Time
}

// NextBlock is the exclusive lower bound for the next fetch.
func (c *Checkpoint) NextBlock() uint64 {
	return c.LastBlockKey.Number + 1
}
