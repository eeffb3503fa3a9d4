package ntt

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/chain/evm"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
)

// NttManager and rate limiter event topics.
var (
	// TransferSent(bytes32 recipient, uint256 amount, uint256 fee, uint16 recipientChain, uint64 msgSequence)
	TransferSentTopic = common.HexToHash("0x9716fe52fe4e02cf924ae28f19f5748ef59877c6496041b986fbad3dae6a8ecf")
	// TransferRedeemed(bytes32 indexed digest)
	TransferRedeemedTopic = common.HexToHash("0x504e6efe18ab9eed10dc6501a417f5b12a2f7f2b1593aed9b89f9bce3cf29a91")
	// InboundTransferQueued(bytes32 digest)
	InboundTransferQueuedTopic = common.HexToHash("0x7f63c9251d82a933210c2b6d0b0f116252c3c116788120e64e8e8215df6f3162")
	// OutboundTransferQueued(uint64 queueSequence)
	OutboundTransferQueuedTopic = common.HexToHash("0x69add1952a6a6b9cb86f04d05f0cb605cbb469a50ae916139d34495a9991481f")
	// OutboundTransferRateLimited(address indexed sender, uint64 sequence, uint256 amount, uint256 currentCapacity)
	OutboundTransferRateLimitedTopic = common.HexToHash("0x754d657d1363ee47d967b415652b739bfe96d5729ccf2f26625dcdbc147db68b")
)

// Topics is the filter set the producer subscribes to.
var Topics = []common.Hash{
	TransferSentTopic,
	TransferRedeemedTopic,
	InboundTransferQueuedTopic,
	OutboundTransferQueuedTopic,
	OutboundTransferRateLimitedTopic,
}

var topicKinds = map[common.Hash]model.EventKind{
	TransferSentTopic:                model.EventTransferSent,
	TransferRedeemedTopic:            model.EventTransferRedeemed,
	InboundTransferQueuedTopic:       model.EventInboundTransferQueued,
	OutboundTransferQueuedTopic:      model.EventOutboundTransferQueued,
	OutboundTransferRateLimitedTopic: model.EventOutboundTransferRateLimited,
}

// KindOf maps a log to its lifecycle event kind.
func KindOf(l types.Log) (model.EventKind, bool) {
	if len(l.Topics) == 0 {
		return "", false
	}
	kind, ok := topicKinds[l.Topics[0]]
	return kind, ok
}

var transferSentArgs = abi.Arguments{
	{Type: evm.MustType("bytes32")},
	{Type: evm.MustType("uint256")},
	{Type: evm.MustType("uint256")},
	{Type: evm.MustType("uint16")},
	{Type: evm.MustType("uint64")},
}

// TransferSent is a decoded TransferSent event.
type TransferSent struct {
	Recipient      [32]byte
	Amount         *big.Int
	Fee            *big.Int
	RecipientChain vaa.ChainID
	Sequence       uint64
}

func DecodeTransferSent(data []byte) (*TransferSent, error) {
	if len(data) != 5*32 {
		return nil, fmt.Errorf("transfer sent data: want %d bytes, got %d", 5*32, len(data))
	}
	values, err := transferSentArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack TransferSent: %w", err)
	}
	return &TransferSent{
		Recipient:      values[0].([32]byte),
		Amount:         values[1].(*big.Int),
		Fee:            values[2].(*big.Int),
		RecipientChain: vaa.ChainID(values[3].(uint16)),
		Sequence:       values[4].(uint64),
	}, nil
}

// EncodeTransferSentData packs TransferSent fields. Used to build fixtures.
func EncodeTransferSentData(ev TransferSent) ([]byte, error) {
	return transferSentArgs.Pack(ev.Recipient, ev.Amount, ev.Fee, uint16(ev.RecipientChain), ev.Sequence)
}

// TransferKey correlates a TransferSent with its manager, recipient and
// sequence: "manager/recipient/sequence", lowercase hex without 0x.
func TransferKey(manager common.Address, recipient [32]byte, seq uint64) string {
	return fmt.Sprintf("%s/%s/%d", hexNoPrefix(manager.Bytes()), hex.EncodeToString(recipient[:]), seq)
}

// digestFromTopic reads the indexed digest of TransferRedeemed.
func digestFromTopic(l types.Log) (string, error) {
	if len(l.Topics) < 2 {
		return "", fmt.Errorf("missing digest topic")
	}
	return hexNoPrefix(l.Topics[1].Bytes()), nil
}

// digestFromData reads a digest carried in the first data word.
func digestFromData(l types.Log) (string, error) {
	if len(l.Data) < 32 {
		return "", fmt.Errorf("data too short for digest: %d bytes", len(l.Data))
	}
	return hexNoPrefix(l.Data[:32]), nil
}

func hexNoPrefix(b []byte) string {
	return strings.ToLower(hex.EncodeToString(b))
}
