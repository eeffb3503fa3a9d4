package ntt

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

var (
	WormholeTransceiverPrefix = []byte{0x99, 0x45, 0xff, 0x10}
	NativeTokenTransferPrefix = []byte{0x99, 0x4e, 0x54, 0x54}

	ErrShortPayload = errors.New("payload too short")
)

// TransceiverMessage is the payload a wormhole transceiver publishes through
// the core contract.
type TransceiverMessage struct {
	SourceManager      [32]byte
	RecipientManager   [32]byte
	ManagerPayload     []byte
	TransceiverPayload []byte
}

// ManagerMessage is the NTT manager envelope carried in a TransceiverMessage.
type ManagerMessage struct {
	ID      [32]byte
	Sender  [32]byte
	Payload []byte
}

// NativeTokenTransfer is the transfer body carried in a ManagerMessage.
type NativeTokenTransfer struct {
	Decimals       uint8
	Amount         uint64
	SourceToken    [32]byte
	RecipientAddr  [32]byte
	RecipientChain vaa.ChainID
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortPayload, n, r.off, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) bytes32() (out [32]byte) {
	copy(out[:], r.take(32))
	return out
}

func ParseTransceiverMessage(data []byte) (*TransceiverMessage, error) {
	r := &reader{buf: data}
	if prefix := r.take(4); r.err == nil && !bytes.Equal(prefix, WormholeTransceiverPrefix) {
		return nil, fmt.Errorf("invalid transceiver prefix %x", prefix)
	}
	msg := &TransceiverMessage{
		SourceManager:    r.bytes32(),
		RecipientManager: r.bytes32(),
	}
	msg.ManagerPayload = r.take(int(r.uint16()))
	msg.TransceiverPayload = r.take(int(r.uint16()))
	if r.err != nil {
		return nil, fmt.Errorf("parse transceiver message: %w", r.err)
	}
	return msg, nil
}

func ParseManagerMessage(data []byte) (*ManagerMessage, error) {
	r := &reader{buf: data}
	msg := &ManagerMessage{
		ID:     r.bytes32(),
		Sender: r.bytes32(),
	}
	msg.Payload = r.take(int(r.uint16()))
	if r.err != nil {
		return nil, fmt.Errorf("parse manager message: %w", r.err)
	}
	return msg, nil
}

func ParseNativeTokenTransfer(data []byte) (*NativeTokenTransfer, error) {
	r := &reader{buf: data}
	if prefix := r.take(4); r.err == nil && !bytes.Equal(prefix, NativeTokenTransferPrefix) {
		return nil, fmt.Errorf("invalid ntt prefix %x", prefix)
	}
	t := &NativeTokenTransfer{}
	if b := r.take(1); b != nil {
		t.Decimals = b[0]
	}
	if b := r.take(8); b != nil {
		t.Amount = binary.BigEndian.Uint64(b)
	}
	t.SourceToken = r.bytes32()
	t.RecipientAddr = r.bytes32()
	t.RecipientChain = vaa.ChainID(r.uint16())
	if r.err != nil {
		return nil, fmt.Errorf("parse native token transfer: %w", r.err)
	}
	return t, nil
}

// deliveryPayloadOffset skips the payload id, target chain and target address
// of a relayer delivery instruction.
const deliveryPayloadOffset = 1 + 2 + 32

// UnwrapDeliveryInstruction returns the application payload of a standard
// relayer delivery instruction.
func UnwrapDeliveryInstruction(data []byte) ([]byte, error) {
	r := &reader{buf: data}
	r.take(deliveryPayloadOffset)
	lenBytes := r.take(4)
	if r.err != nil {
		return nil, fmt.Errorf("unwrap delivery instruction: %w", r.err)
	}
	payload := r.take(int(binary.BigEndian.Uint32(lenBytes)))
	if r.err != nil {
		return nil, fmt.Errorf("unwrap delivery instruction: %w", r.err)
	}
	return payload, nil
}

// ManagerMessageDigest is keccak256(uint16be(sourceChain) || managerPayload),
// hex encoded without a 0x prefix.
func ManagerMessageDigest(sourceChain vaa.ChainID, managerPayload []byte) string {
	buf := make([]byte, 2, 2+len(managerPayload))
	binary.BigEndian.PutUint16(buf, uint16(sourceChain))
	buf = append(buf, managerPayload...)
	return hex.EncodeToString(crypto.Keccak256(buf))
}
