package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// WordLength is the width in bytes of a Word.
const WordLength = 16

var (
	// ErrWordOverflow is returned when a value does not fit in 16 bytes.
	ErrWordOverflow = errors.New("value exceeds word length")
	// ErrNegativeWord is returned when a negative big integer is converted.
	ErrNegativeWord = errors.New("negative value cannot be stored in a word")
)

// Word is a fixed-width, big-endian 128-bit value. It carries balances,
// storage keys and values, energy prices, transfer values and difficulty.
type Word [WordLength]byte

// ZeroWord is the all-zero word.
var ZeroWord Word

// BytesToWord left-pads b with zeros to 16 bytes. Inputs longer than 16
// bytes are rejected.
func BytesToWord(b []byte) (Word, error) {
	var w Word
	if len(b) > WordLength {
		return w, fmt.Errorf("%w: %d bytes", ErrWordOverflow, len(b))
	}
	copy(w[WordLength-len(b):], b)
	return w, nil
}

// MustBytesToWord is like BytesToWord but panics on overflow. It is meant for
// constants and tests.
func MustBytesToWord(b []byte) Word {
	w, err := BytesToWord(b)
	if err != nil {
		panic(err)
	}
	return w
}

// Uint64ToWord stores v in the low 8 bytes of a word.
func Uint64ToWord(v uint64) Word {
	var w Word
	binary.BigEndian.PutUint64(w[8:], v)
	return w
}

// Int64ToWord stores the two's complement of v in the low 8 bytes; the high
// 8 bytes stay zero, so Int64 recovers v exactly.
func Int64ToWord(v int64) Word {
	return Uint64ToWord(uint64(v))
}

// BigToWord converts a non-negative integer of at most 128 bits.
func BigToWord(b *big.Int) (Word, error) {
	if b == nil {
		return ZeroWord, nil
	}
	if b.Sign() < 0 {
		return ZeroWord, ErrNegativeWord
	}
	if b.BitLen() > WordLength*8 {
		return ZeroWord, fmt.Errorf("%w: %d bits", ErrWordOverflow, b.BitLen())
	}
	var w Word
	b.FillBytes(w[:])
	return w, nil
}

// Uint256ToWord narrows a 256-bit integer to a word.
func Uint256ToWord(u *uint256.Int) (Word, error) {
	if u == nil {
		return ZeroWord, nil
	}
	if u.BitLen() > WordLength*8 {
		return ZeroWord, fmt.Errorf("%w: %d bits", ErrWordOverflow, u.BitLen())
	}
	var w Word
	b := u.Bytes32()
	copy(w[:], b[32-WordLength:])
	return w, nil
}

// Bytes returns a copy of the 16 data bytes.
func (w Word) Bytes() []byte {
	out := make([]byte, WordLength)
	copy(out, w[:])
	return out
}

// Uint64 returns the low 8 bytes as an unsigned integer.
func (w Word) Uint64() uint64 {
	return binary.BigEndian.Uint64(w[8:])
}

// Int64 returns the low 8 bytes as a signed integer.
func (w Word) Int64() int64 {
	return int64(w.Uint64())
}

// IsUint64 reports whether the high 8 bytes are zero.
func (w Word) IsUint64() bool {
	return binary.BigEndian.Uint64(w[:8]) == 0
}

// Big interprets the word as an unsigned integer.
func (w Word) Big() *big.Int {
	return new(big.Int).SetBytes(w[:])
}

// Uint256 widens the word to a 256-bit integer.
func (w Word) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes(w[:])
}

// IsZero reports whether all bytes are zero.
func (w Word) IsZero() bool {
	return w == ZeroWord
}

// Hex returns the 0x-prefixed hex encoding of all 16 bytes.
func (w Word) Hex() string {
	return hexutil.Encode(w[:])
}

// String implements fmt.Stringer.
func (w Word) String() string {
	return w.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (w Word) MarshalText() ([]byte, error) {
	return hexutil.Bytes(w[:]).MarshalText()
}

// UnmarshalText accepts any 0x-prefixed hex string of up to 16 bytes.
func (w *Word) UnmarshalText(input []byte) error {
	var b hexutil.Bytes
	if err := b.UnmarshalText(input); err != nil {
		return err
	}
	v, err := BytesToWord(b)
	if err != nil {
		return err
	}
	*w = v
	return nil
}
