package core

import (
	"github.com/clydemeng/fvm/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/blake2b"
)

// ContractAddressPrefix is the first byte of every derived contract address.
const ContractAddressPrefix byte = 0xa0

// AddressDeriver computes the address of a contract created by sender.
type AddressDeriver interface {
	ContractAddress(sender types.Address, nonce uint64) types.Address
}

// AddressDeriverFunc adapts a function to AddressDeriver.
type AddressDeriverFunc func(sender types.Address, nonce uint64) types.Address

func (f AddressDeriverFunc) ContractAddress(sender types.Address, nonce uint64) types.Address {
	return f(sender, nonce)
}

// CreateAddress derives a contract address as the blake2b-256 digest of
// rlp([sender, nonce]) with its first byte replaced by ContractAddressPrefix.
func CreateAddress(sender types.Address, nonce uint64) types.Address {
	enc, err := rlp.EncodeToBytes([]interface{}{sender, nonce})
	if err != nil {
		panic(err)
	}
	h := blake2b.Sum256(enc)
	h[0] = ContractAddressPrefix
	return types.Address(h)
}
