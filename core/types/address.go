package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AddressLength is the width in bytes of an account address.
const AddressLength = 32

// Address is the 256-bit identifier of an account.
type Address [AddressLength]byte

// BytesToAddress returns an Address with value b. If b is larger than 32
// bytes it is cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress returns the Address with byte values of s.
func HexToAddress(s string) Address {
	return BytesToAddress(common.FromHex(s))
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	return common.CopyBytes(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Hex returns the 0x-prefixed hex encoding.
func (a Address) Hex() string {
	return hexutil.Encode(a[:])
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

// TerminalString shortens the address for log output.
func (a Address) TerminalString() string {
	h := a.Hex()
	return h[:10] + "…" + h[len(h)-6:]
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return hexutil.Bytes(a[:]).MarshalText()
}

// UnmarshalText parses an address in hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Address", input, a[:])
}
