package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// VaaKey identifies one cross-chain message together with the transaction
// that emitted it.
type VaaKey struct {
	TxHash         string
	EmitterChain   vaa.ChainID
	EmitterAddress vaa.Address
	Sequence       uint64
}

// String renders "<txHash>:<emitterChain>/<emitterAddress>/<sequence>".
func (k VaaKey) String() string {
	return k.TxHash + ":" + k.MessageID()
}

// MessageID renders "<emitterChain>/<emitterAddress>/<sequence>", the
// globally unique part of the key.
func (k VaaKey) MessageID() string {
	return MessageID(k.EmitterChain, k.EmitterAddress, k.Sequence)
}

func MessageID(chain vaa.ChainID, emitter vaa.Address, seq uint64) string {
	return fmt.Sprintf("%d/%s/%d", uint16(chain), emitter.String(), seq)
}

// ParseVaaKey parses the string form produced by VaaKey.String.
func ParseVaaKey(s string) (VaaKey, error) {
	txHash, id, ok := strings.Cut(s, ":")
	if !ok {
		return VaaKey{}, fmt.Errorf("invalid vaa key %q", s)
	}
	parts := strings.Split(id, "/")
	if len(parts) != 3 {
		return VaaKey{}, fmt.Errorf("invalid message id in vaa key %q", s)
	}
	chain, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return VaaKey{}, fmt.Errorf("invalid emitter chain in vaa key %q: %w", s, err)
	}
	emitter, err := vaa.StringToAddress(parts[1])
	if err != nil {
		return VaaKey{}, fmt.Errorf("invalid emitter address in vaa key %q: %w", s, err)
	}
	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return VaaKey{}, fmt.Errorf("invalid sequence in vaa key %q: %w", s, err)
	}
	return VaaKey{
		TxHash:         txHash,
		EmitterChain:   vaa.ChainID(chain),
		EmitterAddress: emitter,
		Sequence:       seq,
	}, nil
}

// PadUint16 zero-pads to 5 digits so lexicographic order matches numeric order.
func PadUint16(v uint16) string {
	return fmt.Sprintf("%05d", v)
}

// PadUint64 zero-pads to 20 digits so lexicographic order matches numeric order.
func PadUint64(v uint64) string {
	return fmt.Sprintf("%020d", v)
}

// BlockRowKey is "<paddedChain>/<paddedBlock>".
func BlockRowKey(chain vaa.ChainID, block uint64) string {
	return PadUint16(uint16(chain)) + "/" + PadUint64(block)
}

// MessageRowKey is "<paddedChain>/<emitter>/<paddedSequence>".
func MessageRowKey(chain vaa.ChainID, emitter vaa.Address, seq uint64) string {
	return PadUint16(uint16(chain)) + "/" + emitter.String() + "/" + PadUint64(seq)
}

// ObservedMessage is a stored message as returned by the read API.
type ObservedMessage struct {
	RowKey       string    `json:"row_key"`
	Chain        uint16    `json:"chain"`
	BlockNumber  uint64    `json:"block_number"`
	TxHash       string    `json:"tx_hash"`
	MessageID    string    `json:"message_id"`
	HasSignedVaa bool      `json:"has_signed_vaa"`
	ObservedAt   time.Time `json:"observed_at"`
}

// MessageCounts summarises one chain's stored messages.
type MessageCounts struct {
	Chain                  uint16 `json:"chain"`
	NumTotalMessages       int64  `json:"num_total_messages"`
	NumMessagesWithoutVaas int64  `json:"num_messages_without_vaas"`
	LastRowKey             string `json:"last_row_key"`
}
