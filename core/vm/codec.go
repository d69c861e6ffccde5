package vm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/clydemeng/fvm/core/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrShortBuffer is returned when an encoding ends before a field.
	ErrShortBuffer = errors.New("short buffer")
	// ErrTrailingBytes is returned when an encoding has data after its last field.
	ErrTrailingBytes = errors.New("trailing bytes")
	// ErrUnknownKind is returned for call kinds outside CALL..CREATE.
	ErrUnknownKind = errors.New("unknown call kind")
)

const (
	contextFixedLen = 3*types.AddressLength + types.WordLength + 8 + types.WordLength + 4 +
		3*4 + types.AddressLength + 3*8 + types.WordLength
	messageFixedLen = 2*types.AddressLength + 8 + types.WordLength + 4 + 3*4
	resultFixedLen  = 4 + 8 + 4
)

// EncodeContext serializes a frame for the engine:
//
//	address(32) | origin(32) | sender(32) | energyPrice(16) | energy(8) |
//	callValue(16) | callDataLength(4) | callData | depth(4) | kind(4) |
//	flags(4) | blockCoinbase(32) | blockNumber(8) | blockTimestamp(8) |
//	blockEnergyLimit(8) | blockDifficulty(16)
//
// CREATE frames carry their init code separately and encode empty call data.
func EncodeContext(ctx *ExecutionContext) []byte {
	data := ctx.Data
	if ctx.Kind == CREATE {
		data = nil
	}
	out := make([]byte, 0, contextFixedLen+len(data))
	out = append(out, ctx.destination[:]...)
	out = append(out, ctx.Origin[:]...)
	out = append(out, ctx.Sender[:]...)
	out = append(out, ctx.EnergyPrice[:]...)
	out = binary.BigEndian.AppendUint64(out, ctx.Energy)
	out = append(out, ctx.Value[:]...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, data...)
	out = binary.BigEndian.AppendUint32(out, uint32(ctx.Depth))
	out = binary.BigEndian.AppendUint32(out, uint32(ctx.Kind))
	out = binary.BigEndian.AppendUint32(out, ctx.Flags)
	out = append(out, ctx.Block.Coinbase[:]...)
	out = binary.BigEndian.AppendUint64(out, ctx.Block.Number)
	out = binary.BigEndian.AppendUint64(out, ctx.Block.Timestamp)
	out = binary.BigEndian.AppendUint64(out, ctx.Block.EnergyLimit)
	out = append(out, ctx.Block.Difficulty[:]...)
	return out
}

// DecodeContext parses the output of EncodeContext. The transaction hash is
// not part of the encoding and is supplied by the caller.
func DecodeContext(b []byte, txHash common.Hash) (*ExecutionContext, error) {
	d := decoder{buf: b}
	var (
		tx  = TxContext{TxHash: txHash}
		msg Message
	)
	d.address(&msg.Destination)
	d.address(&tx.Origin)
	d.address(&msg.Sender)
	d.word(&tx.EnergyPrice)
	msg.Energy = d.uint64()
	d.word(&msg.Value)
	msg.Data = d.bytes()
	msg.Depth = int32(d.uint32())
	msg.Kind = CallKind(d.uint32())
	msg.Flags = d.uint32()
	d.address(&tx.Block.Coinbase)
	tx.Block.Number = d.uint64()
	tx.Block.Timestamp = d.uint64()
	tx.Block.EnergyLimit = d.uint64()
	d.word(&tx.Block.Difficulty)
	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("decode context: %w %d", ErrUnknownKind, msg.Kind)
	}
	return NewExecutionContext(tx, msg), nil
}

// EncodeMessage serializes the dynamic fields of a nested call:
//
//	destination(32) | sender(32) | energyLimit(8) | callValue(16) |
//	callDataLength(4) | callData | depth(4) | kind(4) | flags(4)
func EncodeMessage(msg Message) []byte {
	out := make([]byte, 0, messageFixedLen+len(msg.Data))
	out = append(out, msg.Destination[:]...)
	out = append(out, msg.Sender[:]...)
	out = binary.BigEndian.AppendUint64(out, msg.Energy)
	out = append(out, msg.Value[:]...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(msg.Data)))
	out = append(out, msg.Data...)
	out = binary.BigEndian.AppendUint32(out, uint32(msg.Depth))
	out = binary.BigEndian.AppendUint32(out, uint32(msg.Kind))
	out = binary.BigEndian.AppendUint32(out, msg.Flags)
	return out
}

// DecodeMessage parses the output of EncodeMessage.
func DecodeMessage(b []byte) (Message, error) {
	var (
		d   = decoder{buf: b}
		msg Message
	)
	d.address(&msg.Destination)
	d.address(&msg.Sender)
	msg.Energy = d.uint64()
	d.word(&msg.Value)
	msg.Data = d.bytes()
	msg.Depth = int32(d.uint32())
	msg.Kind = CallKind(d.uint32())
	msg.Flags = d.uint32()
	if err := d.finish(); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if !msg.Kind.Valid() {
		return Message{}, fmt.Errorf("decode message: %w %d", ErrUnknownKind, msg.Kind)
	}
	return msg, nil
}

// Encode serializes the result as
//
//	resultCode(4) | energyRemaining(8) | outputLength(4) | output
//
// The state layer is not part of the encoding.
func (r *Result) Encode() []byte {
	out := make([]byte, 0, resultFixedLen+len(r.Output))
	out = binary.BigEndian.AppendUint32(out, uint32(r.Code))
	out = binary.BigEndian.AppendUint64(out, r.EnergyRemaining)
	out = binary.BigEndian.AppendUint32(out, uint32(len(r.Output)))
	return append(out, r.Output...)
}

// DecodeResult parses the output of Result.Encode. The returned result has
// no state layer attached.
func DecodeResult(b []byte) (*Result, error) {
	d := decoder{buf: b}
	code := ResultCode(int32(d.uint32()))
	energy := d.uint64()
	output := d.bytes()
	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return NewResult(code, energy, output), nil
}

// decoder reads big-endian fields sequentially, remembering the first
// failure so that callers check once at the end.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, d.off, len(d.buf)-d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) address(a *types.Address) {
	if b := d.next(types.AddressLength); b != nil {
		copy(a[:], b)
	}
}

func (d *decoder) word(w *types.Word) {
	if b := d.next(types.WordLength); b != nil {
		copy(w[:], b)
	}
}

func (d *decoder) uint32() uint32 {
	if b := d.next(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) uint64() uint64 {
	if b := d.next(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

// bytes reads a 4-byte length prefix followed by that many bytes.
func (d *decoder) bytes() []byte {
	n := d.uint32()
	if d.err != nil {
		return nil
	}
	if uint64(n) > uint64(len(d.buf)-d.off) {
		d.err = fmt.Errorf("%w: length %d at offset %d, have %d", ErrShortBuffer, n, d.off, len(d.buf)-d.off)
		return nil
	}
	if n == 0 {
		return nil
	}
	return common.CopyBytes(d.next(int(n)))
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, len(d.buf)-d.off)
	}
	return nil
}
