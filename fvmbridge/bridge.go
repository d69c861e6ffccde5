// Package fvmbridge connects the native engine to Go state. A Bridge holds
// the stack of open frames of one transaction and answers the engine's
// callbacks against the innermost one.
package fvmbridge

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/clydemeng/fvm/core/state"
	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/clydemeng/fvm/tracing"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// ErrEmptyStack is returned when a frame is requested but none is open.
var ErrEmptyStack = errors.New("bridge: empty frame stack")

// CallHandler runs a nested frame on behalf of the engine. parent is the
// frame issuing the call, repo its state layer.
type CallHandler interface {
	PerformCall(parent, child *vm.ExecutionContext, repo *state.Cache) *vm.Result
}

var _ vm.Host = (*Bridge)(nil)

type frame struct {
	ctx  *vm.ExecutionContext
	repo *state.Cache
}

// Bridge is the per-transaction frame stack. It is not safe for concurrent
// use: the whole call tree of a transaction runs on one goroutine.
type Bridge struct {
	frames  []frame
	handler CallHandler
	hooks   *tracing.Hooks
	logger  log.Logger
}

// NewBridge creates an empty bridge that delegates nested calls to handler.
func NewBridge(handler CallHandler, hooks *tracing.Hooks) *Bridge {
	return &Bridge{
		handler: handler,
		hooks:   hooks,
		logger:  log.New("module", "fvmbridge"),
	}
}

// Push makes (ctx, repo) the current frame.
func (b *Bridge) Push(ctx *vm.ExecutionContext, repo *state.Cache) {
	b.frames = append(b.frames, frame{ctx: ctx, repo: repo})
	bridgeDepthGauge.Update(int64(len(b.frames)))
}

// Pop removes the current frame.
func (b *Bridge) Pop() error {
	if len(b.frames) == 0 {
		return ErrEmptyStack
	}
	b.frames[len(b.frames)-1] = frame{}
	b.frames = b.frames[:len(b.frames)-1]
	return nil
}

// Depth returns the number of open frames.
func (b *Bridge) Depth() int {
	return len(b.frames)
}

func (b *Bridge) current() (frame, error) {
	if len(b.frames) == 0 {
		return frame{}, ErrEmptyStack
	}
	return b.frames[len(b.frames)-1], nil
}

// CurrentContext returns the context of the innermost frame.
func (b *Bridge) CurrentContext() (*vm.ExecutionContext, error) {
	f, err := b.current()
	return f.ctx, err
}

// CurrentState returns the state layer of the innermost frame.
func (b *Bridge) CurrentState() (*state.Cache, error) {
	f, err := b.current()
	return f.repo, err
}

// mustCurrent backs the host callbacks, which have no error channel. A
// callback outside any frame is an engine bug; the panic is turned into a
// VM_INTERNAL_ERROR by the executor.
func (b *Bridge) mustCurrent() frame {
	f, err := b.current()
	if err != nil {
		panic(err)
	}
	return f
}

func (b *Bridge) AccountExists(addr types.Address) bool {
	hostCallMeter.Mark(1)
	return b.mustCurrent().repo.Exist(addr)
}

func (b *Bridge) GetBalance(addr types.Address) types.Word {
	hostCallMeter.Mark(1)
	return toWord(b.mustCurrent().repo.GetBalance(addr))
}

func (b *Bridge) IncreaseBalance(addr types.Address, amount types.Word) {
	hostCallMeter.Mark(1)
	repo := b.mustCurrent().repo
	prev := repo.GetBalance(addr)
	state.AddBalance(repo, addr, amount.Uint256())
	b.hooks.BalanceChange(addr, prev, repo.GetBalance(addr), tracing.BalanceChangeEngineIncrease)
}

func (b *Bridge) GetNonce(addr types.Address) uint64 {
	hostCallMeter.Mark(1)
	return b.mustCurrent().repo.GetNonce(addr)
}

func (b *Bridge) GetCode(addr types.Address) []byte {
	hostCallMeter.Mark(1)
	return b.mustCurrent().repo.GetCode(addr)
}

func (b *Bridge) PutCode(addr types.Address, code []byte) {
	hostCallMeter.Mark(1)
	b.mustCurrent().repo.SetCode(addr, code)
}

func (b *Bridge) GetStorage(addr types.Address, key types.Word) types.Word {
	hostCallMeter.Mark(1)
	storageReadCounter.Inc(1)
	return b.mustCurrent().repo.GetStorage(addr, key)
}

func (b *Bridge) PutStorage(addr types.Address, key types.Word, value types.Word) {
	hostCallMeter.Mark(1)
	b.mustCurrent().repo.SetStorage(addr, key, value)
}

// SelfDestruct moves the whole balance of owner to beneficiary, records the
// transfer as an internal transaction and marks owner for deletion in the
// current frame. Deletion only happens if the transaction succeeds.
func (b *Bridge) SelfDestruct(owner, beneficiary types.Address) {
	hostCallMeter.Mark(1)
	f := b.mustCurrent()

	balance := f.repo.GetBalance(owner)
	nonce := f.repo.GetNonce(owner)
	state.SubBalance(f.repo, owner, balance)
	b.hooks.BalanceChange(owner, balance, f.repo.GetBalance(owner), tracing.BalanceChangeSelfDestruct)
	prev := f.repo.GetBalance(beneficiary)
	state.AddBalance(f.repo, beneficiary, balance)
	b.hooks.BalanceChange(beneficiary, prev, f.repo.GetBalance(beneficiary), tracing.BalanceChangeSelfDestruct)

	itx := types.NewInternalTransaction(f.ctx.TxHash, f.ctx.Depth, owner, &beneficiary, nonce, toWord(balance), nil, types.NoteSelfDestruct)
	f.ctx.SideEffects().AddInternalTransaction(itx)
	f.ctx.SideEffects().AddToDeletedAddresses(owner)

	b.logger.Debug("Self-destruct", "owner", owner, "beneficiary", beneficiary, "balance", balance)
}

func (b *Bridge) Log(addr types.Address, topics []common.Hash, data []byte) {
	hostCallMeter.Mark(1)
	l := types.NewLog(addr, topics, data)
	b.mustCurrent().ctx.SideEffects().AddLog(l)
	b.hooks.Log(l)
}

func (b *Bridge) BlockHash(number uint64) common.Hash {
	hostCallMeter.Mark(1)
	return b.mustCurrent().repo.BlockHash(number)
}

// Call decodes a nested call message, runs it through the handler and
// returns the encoded result. Static fields are inherited from the current
// frame. It never panics.
func (b *Bridge) Call(message []byte) (out []byte) {
	hostCallMeter.Mark(1)
	nestedCallMeter.Mark(1)
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Nested call panicked", "err", r, "stack", string(debug.Stack()))
			out = vm.NewResult(vm.VMInternalError, 0, nil).Encode()
		}
	}()
	parent, err := b.current()
	if err != nil {
		b.logger.Error("Nested call outside of a frame", "err", err)
		return vm.NewResult(vm.VMInternalError, 0, nil).Encode()
	}
	msg, err := vm.DecodeMessage(message)
	if err != nil {
		b.logger.Error("Malformed call message", "err", err)
		return vm.NewResult(vm.VMInternalError, 0, nil).Encode()
	}
	if msg.Depth != parent.ctx.Depth+1 {
		b.logger.Warn("Call depth mismatch", "parent", parent.ctx.Depth, "child", msg.Depth)
		return vm.NewResult(vm.Failure, 0, nil).Encode()
	}
	child := parent.ctx.Child(msg)
	return b.handler.PerformCall(parent.ctx, child, parent.repo).Encode()
}

// toWord narrows a balance to the engine's word width. Balances are built
// from words, so overflow means corrupted state.
func toWord(v *uint256.Int) types.Word {
	w, err := types.Uint256ToWord(v)
	if err != nil {
		panic(fmt.Errorf("balance %v: %w", v, err))
	}
	return w
}
