// Package tracing exposes callbacks that observe transaction execution
// without influencing it.
package tracing

import (
	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/holiman/uint256"
)

type (
	// EnterHook is invoked when a frame starts executing.
	EnterHook = func(depth int32, kind vm.CallKind, from, to types.Address, input []byte, energy uint64, value types.Word)

	// ExitHook is invoked when a frame returns.
	ExitHook = func(depth int32, output []byte, energyUsed uint64, code vm.ResultCode)

	// BalanceChangeHook is invoked when the balance of an account changes.
	BalanceChangeHook = func(addr types.Address, prev, new *uint256.Int, reason BalanceChangeReason)

	// NonceChangeHook is invoked when the nonce of an account changes.
	NonceChangeHook = func(addr types.Address, prev, new uint64, reason NonceChangeReason)

	// LogHook is invoked when contract code emits a log.
	LogHook = func(log *types.Log)
)

// Hooks groups the optional callbacks. Nil fields are skipped.
type Hooks struct {
	OnEnter         EnterHook
	OnExit          ExitHook
	OnBalanceChange BalanceChangeHook
	OnNonceChange   NonceChangeHook
	OnLog           LogHook
}

// CaptureEnter calls OnEnter if set. Safe on a nil receiver.
func (h *Hooks) CaptureEnter(ctx *vm.ExecutionContext) {
	if h == nil || h.OnEnter == nil {
		return
	}
	h.OnEnter(ctx.Depth, ctx.Kind, ctx.Sender, ctx.Destination(), ctx.Data, ctx.Energy, ctx.Value)
}

// CaptureExit calls OnExit if set. Safe on a nil receiver.
func (h *Hooks) CaptureExit(ctx *vm.ExecutionContext, res *vm.Result) {
	if h == nil || h.OnExit == nil {
		return
	}
	var used uint64
	if res.EnergyRemaining < ctx.Energy {
		used = ctx.Energy - res.EnergyRemaining
	}
	h.OnExit(ctx.Depth, res.Output, used, res.Code)
}

// BalanceChange calls OnBalanceChange if set and the balance moved.
func (h *Hooks) BalanceChange(addr types.Address, prev, new *uint256.Int, reason BalanceChangeReason) {
	if h == nil || h.OnBalanceChange == nil || prev.Eq(new) {
		return
	}
	h.OnBalanceChange(addr, prev, new, reason)
}

// NonceChange calls OnNonceChange if set.
func (h *Hooks) NonceChange(addr types.Address, prev, new uint64, reason NonceChangeReason) {
	if h == nil || h.OnNonceChange == nil {
		return
	}
	h.OnNonceChange(addr, prev, new, reason)
}

// Log calls OnLog if set.
func (h *Hooks) Log(l *types.Log) {
	if h == nil || h.OnLog == nil {
		return
	}
	h.OnLog(l)
}
