package evm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// LogMessagePublishedTopic is keccak256("LogMessagePublished(address,uint64,uint32,bytes,uint8)").
var LogMessagePublishedTopic = common.HexToHash("0x6eb224fb001ed210e379b335e35efe88672a8ce935d981a6896b27ffdf52a3b2")

// sender is indexed; the remaining fields are ABI-encoded in data.
var logMessagePublishedArgs = abi.Arguments{
	{Type: MustType("uint64")},
	{Type: MustType("uint32")},
	{Type: MustType("bytes")},
	{Type: MustType("uint8")},
}

// PublishedMessage is a decoded LogMessagePublished event.
type PublishedMessage struct {
	TxHash           common.Hash
	BlockNumber      uint64
	LogIndex         uint
	Emitter          vaa.Address
	Sequence         uint64
	Nonce            uint32
	Payload          []byte
	ConsistencyLevel uint8
}

// MustType builds an ABI type and panics on an invalid type string.
func MustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %q: %v", t, err))
	}
	return typ
}

func DecodeLogMessagePublished(l types.Log) (*PublishedMessage, error) {
	if len(l.Topics) < 2 || l.Topics[0] != LogMessagePublishedTopic {
		return nil, fmt.Errorf("not a LogMessagePublished event")
	}
	values, err := logMessagePublishedArgs.Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack LogMessagePublished: %w", err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected number of unpacked values: %d", len(values))
	}
	return &PublishedMessage{
		TxHash:           l.TxHash,
		BlockNumber:      l.BlockNumber,
		LogIndex:         l.Index,
		Emitter:          vaa.Address(l.Topics[1]),
		Sequence:         values[0].(uint64),
		Nonce:            values[1].(uint32),
		Payload:          values[2].([]byte),
		ConsistencyLevel: values[3].(uint8),
	}, nil
}

// EncodeLogMessagePublishedData packs the non-indexed event fields. Used to
// build fixtures.
func EncodeLogMessagePublishedData(seq uint64, nonce uint32, payload []byte, consistency uint8) ([]byte, error) {
	return logMessagePublishedArgs.Pack(seq, nonce, payload, consistency)
}
