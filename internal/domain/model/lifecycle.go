package model

import (
	"time"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// LifeCycle is the merged view of one NTT transfer, keyed by the digest of its
// manager message. Every field other than Digest is contributed by a producer.
type LifeCycle struct {
	Digest                         string      `json:"digest"`
	SrcChain                       vaa.ChainID `json:"from_chain"`
	DestChain                      vaa.ChainID `json:"to_chain"`
	SourceToken                    string      `json:"from_token"`
	TokenAmount                    string      `json:"token_amount"`
	TransferSentTxHash             string      `json:"transfer_sent_txhash"`
	TransferBlockHeight            uint64      `json:"transfer_block_height"`
	RedeemedTxHash                 string      `json:"redeemed_txhash"`
	RedeemedBlockHeight            uint64      `json:"redeemed_block_height"`
	NttTransferKey                 string      `json:"ntt_transfer_key"`
	VaaID                          string      `json:"vaa_id"`
	IsRelay                        bool        `json:"is_relay"`
	TransferTime                   *time.Time  `json:"transfer_time,omitempty"`
	RedeemTime                     *time.Time  `json:"redeem_time,omitempty"`
	InboundTransferQueuedTime      *time.Time  `json:"inbound_transfer_queued_time,omitempty"`
	OutboundTransferQueuedTime     *time.Time  `json:"outbound_transfer_queued_time,omitempty"`
	OutboundTransferReleasableTime *time.Time  `json:"outbound_transfer_releasable_time,omitempty"`
}

// EventKind names the producer event that contributed a partial LifeCycle.
type EventKind string

const (
	EventTransferSent                EventKind = "transfer_sent"
	EventTransferRedeemed            EventKind = "transfer_redeemed"
	EventInboundTransferQueued       EventKind = "inbound_transfer_queued"
	EventOutboundTransferQueued      EventKind = "outbound_transfer_queued"
	EventOutboundTransferRateLimited EventKind = "outbound_transfer_rate_limited"

	// Staged producers that learn the digest through a pending key.
	EventOutboxTransferCreated EventKind = "outbox_transfer_created"
	EventOutboxReleased        EventKind = "outbox_released"
	EventRelayRequested        EventKind = "relay_requested"
	EventInboxMessageReceived  EventKind = "inbox_message_received"
	EventInboxRedeemed         EventKind = "inbox_redeemed"
	EventInboxReleased         EventKind = "inbox_released"
)

func (k EventKind) String() string {
	return string(k)
}

// PendingBox selects one of the pending-key link tables.
type PendingBox string

const (
	PendingOutbox PendingBox = "outbox"
	PendingInbox  PendingBox = "inbox"
)
