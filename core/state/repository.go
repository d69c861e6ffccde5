// Package state provides the world-state view consumed by the executor: a
// Repository interface, a copy-on-write Cache layer that can be flushed or
// rolled back, and a key-value backed Database at the root.
package state

import (
	"github.com/clydemeng/fvm/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/blake2b"
)

// EmptyCodeHash is the code hash of accounts without code.
var EmptyCodeHash = common.Hash(blake2b.Sum256(nil))

// Repository is the account and storage interface the executor works
// against. Writes to a missing account create it implicitly.
type Repository interface {
	Exist(addr types.Address) bool
	CreateAccount(addr types.Address)
	DeleteAccount(addr types.Address)

	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)

	GetBalance(addr types.Address) *uint256.Int
	SetBalance(addr types.Address, amount *uint256.Int)

	GetCode(addr types.Address) []byte
	SetCode(addr types.Address, code []byte)

	GetStorage(addr types.Address, key types.Word) types.Word
	// SetStorage stores value under key; a zero value removes the slot.
	SetStorage(addr types.Address, key types.Word, value types.Word)

	BlockHash(number uint64) common.Hash

	// StartTracking opens a child layer whose writes stay invisible to the
	// receiver until the child is flushed.
	StartTracking() *Cache
}

// CodeHash hashes contract code the way the repository keys it.
func CodeHash(code []byte) common.Hash {
	if len(code) == 0 {
		return EmptyCodeHash
	}
	return common.Hash(blake2b.Sum256(code))
}

// AddBalance credits amount to addr.
func AddBalance(r Repository, addr types.Address, amount *uint256.Int) {
	if amount.IsZero() {
		// Touch the account so that it exists afterwards.
		r.SetBalance(addr, r.GetBalance(addr))
		return
	}
	r.SetBalance(addr, new(uint256.Int).Add(r.GetBalance(addr), amount))
}

// SubBalance debits amount from addr. Callers check the balance first.
func SubBalance(r Repository, addr types.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	r.SetBalance(addr, new(uint256.Int).Sub(r.GetBalance(addr), amount))
}

// IncrementNonce bumps the nonce of addr by one.
func IncrementNonce(r Repository, addr types.Address) {
	r.SetNonce(addr, r.GetNonce(addr)+1)
}

// Transfer moves amount from sender to recipient.
func Transfer(r Repository, sender, recipient types.Address, amount *uint256.Int) {
	SubBalance(r, sender, amount)
	AddBalance(r, recipient, amount)
}
