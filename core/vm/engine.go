package vm

import (
	"github.com/clydemeng/fvm/core/types"
	"github.com/ethereum/go-ethereum/common"
)

//go:generate mockgen -source engine.go -destination engine_mock.go -package vm -exclude_interfaces Host

// Engine executes bytecode. It receives the encoded context of the frame
// and returns an encoded Result. Every state access goes through host,
// including nested calls, and nothing may be retained across runs.
type Engine interface {
	Run(host Host, code []byte, ctx []byte, rev Revision) []byte
}

// EngineFunc adapts an ordinary function to the Engine interface.
type EngineFunc func(host Host, code []byte, ctx []byte, rev Revision) []byte

func (f EngineFunc) Run(host Host, code []byte, ctx []byte, rev Revision) []byte {
	return f(host, code, ctx, rev)
}

// Host is the set of callbacks the engine may invoke while a frame runs.
// Every method resolves against the innermost open frame.
type Host interface {
	AccountExists(addr types.Address) bool
	GetBalance(addr types.Address) types.Word
	IncreaseBalance(addr types.Address, amount types.Word)
	GetNonce(addr types.Address) uint64

	GetCode(addr types.Address) []byte
	PutCode(addr types.Address, code []byte)

	GetStorage(addr types.Address, key types.Word) types.Word
	PutStorage(addr types.Address, key types.Word, value types.Word)

	// SelfDestruct moves the owner's balance to the beneficiary and marks
	// the owner for deletion.
	SelfDestruct(owner, beneficiary types.Address)
	Log(addr types.Address, topics []common.Hash, data []byte)
	BlockHash(number uint64) common.Hash

	// Call runs a nested frame described by an encoded Message and
	// returns the encoded Result.
	Call(message []byte) []byte
}
