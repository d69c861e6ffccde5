package core

import (
	"runtime/debug"

	"github.com/clydemeng/fvm/core/state"
	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/clydemeng/fvm/fvmbridge"
	"github.com/clydemeng/fvm/tracing"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// txRun holds what the frames of one transaction share: the bridge with
// its frame stack, the engine revision and the transaction itself.
type txRun struct {
	exec   *Executor
	tx     *types.Transaction
	rev    vm.Revision
	bridge *fvmbridge.Bridge
}

var _ fvmbridge.CallHandler = (*txRun)(nil)

func (e *Executor) newRun(header *types.Header, tx *types.Transaction) *txRun {
	run := &txRun{
		exec: e,
		tx:   tx,
		rev:  vm.RevisionAt(e.config, header.Number),
	}
	run.bridge = fvmbridge.NewBridge(run, e.hooks)
	return run
}

// PerformCall runs a nested frame requested by the engine and folds its
// side effects into the parent's ledger.
func (r *txRun) PerformCall(parent, child *vm.ExecutionContext, repo *state.Cache) *vm.Result {
	res := r.frame(child, repo)
	parent.SideEffects().AddCall(child)
	parent.SideEffects().Merge(child.SideEffects(), res.Code.IsSuccess())
	return res
}

// frame executes ctx on top of repo. Every change is made in a child
// layer that is flushed into repo only on success.
func (r *txRun) frame(ctx *vm.ExecutionContext, repo *state.Cache) (res *vm.Result) {
	hooks := r.exec.hooks
	hooks.CaptureEnter(ctx)
	defer func() { hooks.CaptureExit(ctx, res) }()

	if ctx.Depth >= r.exec.config.MaxCallDepth {
		log.Debug("Call depth exceeded", "depth", ctx.Depth)
		return vm.NewResult(vm.Failure, 0, nil)
	}
	if repo.GetBalance(ctx.Sender).Lt(ctx.Value.Uint256()) {
		log.Debug("Insufficient balance for call", "sender", ctx.Sender, "value", ctx.Value)
		return vm.NewResult(vm.Failure, 0, nil)
	}
	if ctx.Kind == vm.CREATE {
		return r.create(ctx, repo)
	}
	return r.call(ctx, repo)
}

func (r *txRun) call(ctx *vm.ExecutionContext, repo *state.Cache) *vm.Result {
	var (
		dest    = ctx.Destination()
		effects = ctx.SideEffects()
		track   = repo.StartTracking()
	)
	if ctx.Depth > 0 {
		itx := types.NewInternalTransaction(ctx.TxHash, ctx.Depth, ctx.Sender, &dest, repo.GetNonce(ctx.Sender), ctx.Value, ctx.Data, types.NoteCall)
		effects.AddInternalTransaction(itx)
	}
	if !ctx.Kind.KeepsCodeContext() {
		r.transfer(track, ctx.Sender, dest, ctx.Value.Uint256())
	}

	var res *vm.Result
	if p, ok := r.exec.precompiles.Lookup(ctx.CodeAddress()); ok {
		precompileMeter.Mark(1)
		res = vm.RunPrecompiledContract(p, ctx, ctx.Data, ctx.Energy)
	} else if code := track.GetCode(ctx.CodeAddress()); len(code) == 0 {
		res = vm.NewResult(vm.Success, ctx.Energy, nil)
	} else {
		res = r.run(ctx, track, code)
	}

	if res.Code.IsSuccess() {
		track.Flush()
	} else {
		effects.MarkAllInternalTransactionsRejected()
		track.Rollback()
	}
	return res
}

// create deploys ctx.Data as initialization code. The account setup and
// value transfer live in one layer, code execution in a second one, so a
// failed code deposit still keeps the transferred value.
func (r *txRun) create(ctx *vm.ExecutionContext, repo *state.Cache) *vm.Result {
	var (
		sender  = ctx.Sender
		nested  = ctx.Depth > 0
		effects = ctx.SideEffects()
		hooks   = r.exec.hooks
		value   = ctx.Value.Uint256()
	)
	createMeter.Mark(1)

	nonce := r.tx.Nonce
	if nested {
		nonce = repo.GetNonce(sender)
	}
	addr := r.exec.deriver.ContractAddress(sender, nonce)
	if repo.Exist(addr) && len(repo.GetCode(addr)) > 0 {
		collisionMeter.Mark(1)
		log.Debug("Contract address collision", "sender", sender, "nonce", nonce, "addr", addr)
		return vm.NewResult(vm.Failure, 0, nil)
	}
	ctx.SetContractAddress(addr)

	track := repo.StartTracking()
	preserved := track.GetBalance(addr)
	track.CreateAccount(addr)
	track.SetBalance(addr, preserved)
	hooks.BalanceChange(addr, new(uint256.Int), preserved, tracing.BalanceChangeCreatePreserve)
	state.IncrementNonce(track, addr)
	hooks.NonceChange(addr, 0, 1, tracing.NonceChangeNewContract)
	r.transfer(track, sender, addr, value)

	if nested {
		state.IncrementNonce(track, sender)
		hooks.NonceChange(sender, nonce, nonce+1, tracing.NonceChangeContractCreator)
		effects.AddInternalTransaction(types.NewInternalTransaction(ctx.TxHash, ctx.Depth, sender, &addr, nonce, ctx.Value, ctx.Data, types.NoteCreate))
		effects.AddInternalTransaction(types.NewInternalTransaction(ctx.TxHash, ctx.Depth, sender, nil, nonce, ctx.Value, ctx.Data, types.NoteCreate))
	}

	if len(ctx.Data) == 0 {
		track.Flush()
		return vm.NewResult(vm.Success, ctx.Energy, addr.Bytes())
	}

	exec := track.StartTracking()
	res := r.run(ctx, exec, ctx.Data)
	if !res.Code.IsSuccess() {
		effects.MarkAllInternalTransactionsRejected()
		exec.Rollback()
		track.Rollback()
		return res
	}
	deposit := r.exec.config.CodeDepositCost
	if res.EnergyRemaining < deposit {
		log.Debug("Code deposit failed", "addr", addr, "remaining", res.EnergyRemaining, "required", deposit)
		effects.MarkAllInternalTransactionsRejected()
		exec.Rollback()
		track.Flush()
		return vm.NewResult(vm.Failure, 0, nil)
	}
	exec.SetCode(addr, res.Output)
	exec.Flush()
	track.Flush()
	return vm.NewResult(vm.Success, res.EnergyRemaining-deposit, addr.Bytes())
}

// run hands code to the engine with ctx as the current bridge frame. A
// malformed reply, an energy overrun or a panic becomes VM_INTERNAL_ERROR.
func (r *txRun) run(ctx *vm.ExecutionContext, repo *state.Cache, code []byte) (res *vm.Result) {
	defer func() {
		if p := recover(); p != nil {
			engineErrMeter.Mark(1)
			log.Error("Engine panicked", "depth", ctx.Depth, "err", p, "stack", string(debug.Stack()))
			res = vm.NewResult(vm.VMInternalError, 0, nil)
		}
	}()

	r.bridge.Push(ctx, repo)
	defer r.bridge.Pop()

	out := r.exec.engine.Run(r.bridge, code, vm.EncodeContext(ctx), r.rev)
	res, err := vm.DecodeResult(out)
	if err != nil {
		engineErrMeter.Mark(1)
		log.Error("Malformed engine result", "depth", ctx.Depth, "err", err)
		return vm.NewResult(vm.VMInternalError, 0, nil)
	}
	if res.EnergyRemaining > ctx.Energy {
		engineErrMeter.Mark(1)
		log.Error("Engine returned more energy than supplied", "supplied", ctx.Energy, "remaining", res.EnergyRemaining)
		return vm.NewResult(vm.VMInternalError, 0, nil)
	}
	if !res.Code.IsSuccess() && res.Code != vm.Revert {
		res.EnergyRemaining = 0
	}
	return res
}

func (r *txRun) transfer(repo state.Repository, from, to types.Address, amount *uint256.Int) {
	hooks := r.exec.hooks
	prevFrom, prevTo := repo.GetBalance(from), repo.GetBalance(to)
	state.Transfer(repo, from, to, amount)
	hooks.BalanceChange(from, prevFrom, repo.GetBalance(from), tracing.BalanceChangeTransfer)
	hooks.BalanceChange(to, prevTo, repo.GetBalance(to), tracing.BalanceChangeTransfer)
}
