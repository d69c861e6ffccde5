package vm

import (
	"crypto/ed25519"
	"errors"

	"github.com/clydemeng/fvm/core/types"
	"golang.org/x/crypto/blake2b"
)

// PrecompiledContract is a built-in contract dispatched by address instead
// of running bytecode.
type PrecompiledContract interface {
	RequiredEnergy(input []byte) uint64
	Run(ctx *ExecutionContext, input []byte) ([]byte, error)
}

// PrecompiledContracts maps addresses to built-in contracts.
type PrecompiledContracts map[types.Address]PrecompiledContract

var (
	Blake2bHashAddress = types.HexToAddress("0x10")
	EDVerifyAddress    = types.HexToAddress("0x11")
	TxHashAddress      = types.HexToAddress("0x12")
)

// DefaultPrecompiles returns the built-in contracts active on every
// revision.
func DefaultPrecompiles() PrecompiledContracts {
	return PrecompiledContracts{
		Blake2bHashAddress: &blake2bHash{},
		EDVerifyAddress:    &edVerify{},
		TxHashAddress:      &txHash{},
	}
}

// Lookup returns the contract at addr, if any.
func (p PrecompiledContracts) Lookup(addr types.Address) (PrecompiledContract, bool) {
	c, ok := p[addr]
	return c, ok
}

var errPrecompileInput = errors.New("invalid precompile input")

// RunPrecompiledContract charges the required energy and runs p.
func RunPrecompiledContract(p PrecompiledContract, ctx *ExecutionContext, input []byte, energy uint64) *Result {
	cost := p.RequiredEnergy(input)
	if energy < cost {
		return NewResult(OutOfEnergy, 0, nil)
	}
	out, err := p.Run(ctx, input)
	if err != nil {
		return NewResult(PrecompileFailure, 0, nil)
	}
	return NewResult(Success, energy-cost, out)
}

const (
	blake2bBaseCost    = 10
	blake2bWordCost    = 2
	blake2bWordLength  = 4
	blake2bMaxInputLen = 2 * 1024 * 1024

	edVerifyCost     = 3000
	edVerifyInputLen = 32 + ed25519.PublicKeySize + ed25519.SignatureSize

	txHashCost = 20
)

// blake2bHash returns the blake2b-256 digest of its input.
type blake2bHash struct{}

func (c *blake2bHash) RequiredEnergy(input []byte) uint64 {
	words := (uint64(len(input)) + blake2bWordLength - 1) / blake2bWordLength
	return blake2bBaseCost + words*blake2bWordCost
}

func (c *blake2bHash) Run(_ *ExecutionContext, input []byte) ([]byte, error) {
	if len(input) == 0 || len(input) > blake2bMaxInputLen {
		return nil, errPrecompileInput
	}
	h := blake2b.Sum256(input)
	return h[:], nil
}

// edVerify checks an ed25519 signature over a 32-byte message hash. Input
// is hash(32) | publicKey(32) | signature(64); the output is the public key
// on success and 32 zero bytes otherwise.
type edVerify struct{}

func (c *edVerify) RequiredEnergy([]byte) uint64 {
	return edVerifyCost
}

func (c *edVerify) Run(_ *ExecutionContext, input []byte) ([]byte, error) {
	if len(input) != edVerifyInputLen {
		return nil, errPrecompileInput
	}
	msg := input[:32]
	pub := ed25519.PublicKey(input[32 : 32+ed25519.PublicKeySize])
	sig := input[32+ed25519.PublicKeySize:]

	out := make([]byte, types.AddressLength)
	if ed25519.Verify(pub, msg, sig) {
		copy(out, pub)
	}
	return out, nil
}

// txHash returns the hash of the transaction being executed.
type txHash struct{}

func (c *txHash) RequiredEnergy([]byte) uint64 {
	return txHashCost
}

func (c *txHash) Run(ctx *ExecutionContext, _ []byte) ([]byte, error) {
	return ctx.TxHash.Bytes(), nil
}
