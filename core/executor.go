package core

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/clydemeng/fvm/core/state"
	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/clydemeng/fvm/fvmbridge"
	"github.com/clydemeng/fvm/params"
	"github.com/clydemeng/fvm/tracing"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"
)

// TxExecutor is the execution backend the StateProcessor drives.
type TxExecutor interface {
	// Execute runs tx against repo and applies the outcome to repo unless
	// the transaction is rejected.
	Execute(repo state.Repository, header *types.Header, tx *types.Transaction) *Summary
}

// Executor runs external transactions. Committing executions are
// serialized; local calls and simulations run concurrently and never
// touch the repository they read from.
//
// The engine must be safe for concurrent use if SimulateBatch is used.
type Executor struct {
	config      *params.Config
	engine      vm.Engine
	deriver     AddressDeriver
	precompiles vm.PrecompiledContracts
	hooks       *tracing.Hooks

	mu sync.Mutex
}

var _ TxExecutor = (*Executor)(nil)

// NewExecutor creates an executor. A nil deriver selects CreateAddress.
func NewExecutor(config *params.Config, engine vm.Engine, deriver AddressDeriver, hooks *tracing.Hooks) *Executor {
	if deriver == nil {
		deriver = AddressDeriverFunc(CreateAddress)
	}
	return &Executor{
		config:      config,
		engine:      engine,
		deriver:     deriver,
		precompiles: vm.DefaultPrecompiles(),
		hooks:       hooks,
	}
}

// NewTxExecutor constructs an executor on top of the native engine linked
// into the binary, or fails with fvmbridge.ErrEngineUnavailable.
func NewTxExecutor(config *params.Config, hooks *tracing.Hooks) (*Executor, error) {
	engine, err := fvmbridge.NewEngine()
	if err != nil {
		return nil, err
	}
	log.Info("Initialised transaction executor", "engine", fvmbridge.EngineName, "config", config)
	return NewExecutor(config, engine, nil, hooks), nil
}

// SetPrecompiles replaces the precompiled contract table.
func (e *Executor) SetPrecompiles(p vm.PrecompiledContracts) {
	e.precompiles = p
}

// Execute runs tx, applies its fees and deletions and commits the result
// into repo. Rejected transactions leave repo untouched.
func (e *Executor) Execute(repo state.Repository, header *types.Header, tx *types.Transaction) *Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, ctx := e.execute(repo, header, tx, false)
	s := e.finish(header, tx, ctx, res, false)
	if !res.Code.IsRejected() {
		res.State.Flush()
	}
	return s
}

// ExecuteNoFinish runs tx through the rejection checks and the call tree
// only. The caller owns the uncommitted result state; no fee settlement or
// account deletion has been applied to it.
func (e *Executor) ExecuteNoFinish(repo state.Repository, header *types.Header, tx *types.Transaction) (*vm.Result, *vm.ExecutionContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.execute(repo, header, tx, false)
}

// Call executes tx locally: no rejection checks, no energy purchase, no
// nonce bump, no fees. The changes stay in Summary.Result.State and are
// never applied to repo.
func (e *Executor) Call(repo state.Repository, header *types.Header, tx *types.Transaction) *Summary {
	res, ctx := e.execute(repo, header, tx, true)
	return e.finish(header, tx, ctx, res, true)
}

// SimulateBatch runs Call for every transaction concurrently against the
// same repository snapshot. Results keep the order of txs.
func (e *Executor) SimulateBatch(ctx context.Context, repo state.Repository, header *types.Header, txs []*types.Transaction) ([]*Summary, error) {
	out := make([]*Summary, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, tx := range txs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.Call(repo, header, tx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// execute drives the three state tiers of a transaction: outer holds the
// final result, middle the nonce bump and energy purchase, inner the call
// tree. The returned result's State is outer, not yet flushed into repo.
func (e *Executor) execute(repo state.Repository, header *types.Header, tx *types.Transaction, local bool) (*vm.Result, *vm.ExecutionContext) {
	defer executionTimer.UpdateSince(time.Now())
	executedTxMeter.Mark(1)

	var (
		create    = tx.IsContractCreation()
		intrinsic = e.config.IntrinsicCost(tx.Data, create)
		outer     = repo.StartTracking()
		ctx       = e.newContext(header, tx, intrinsic)
	)
	if !local {
		if code, energy := e.check(outer, tx, intrinsic); code != vm.Success {
			rejectedTxMeter.Mark(1)
			log.Debug("Transaction rejected", "hash", ctx.TxHash, "sender", tx.Sender, "code", code)
			res := vm.NewResult(code, energy, nil)
			res.State = outer
			return res, ctx
		}
	}

	middle := outer.StartTracking()
	if !local {
		e.buyEnergy(middle, tx)
		middle.Flush()
	}

	inner := middle.StartTracking()
	res := e.newRun(header, tx).frame(ctx, inner)

	switch {
	case res.Code.IsSuccess():
		inner.Flush()
		middle.Flush()
	case res.Code.IsRejected():
		// Only the engine can produce this past the checks; nothing of the
		// transaction is kept.
		rejectedTxMeter.Mark(1)
		outer.Rollback()
	default:
		failedTxMeter.Mark(1)
		middle.Flush()
	}
	res.State = outer
	log.Debug("Executed transaction", "hash", ctx.TxHash, "result", res.Code, "remaining", res.EnergyRemaining)
	return res, ctx
}

func (e *Executor) newContext(header *types.Header, tx *types.Transaction, intrinsic uint64) *vm.ExecutionContext {
	var energy uint64
	if tx.EnergyLimit > intrinsic {
		energy = tx.EnergyLimit - intrinsic
	}
	kind := vm.CALL
	if tx.IsContractCreation() {
		kind = vm.CREATE
	}
	return vm.NewExecutionContext(vm.TxContext{
		TxHash:      tx.Hash(),
		Origin:      tx.Sender,
		EnergyPrice: tx.EnergyPrice,
		Block:       vm.NewBlockContext(header),
	}, vm.Message{
		Destination: tx.Destination(),
		Sender:      tx.Sender,
		Energy:      energy,
		Value:       tx.Value,
		Data:        tx.Data,
		Kind:        kind,
	})
}

// check validates tx against the pre-transaction state. It returns the
// rejection code and the energy to report, or Success.
func (e *Executor) check(repo state.Repository, tx *types.Transaction, intrinsic uint64) (vm.ResultCode, uint64) {
	if !e.config.IsValidEnergyLimit(tx.EnergyLimit, tx.IsContractCreation()) || tx.EnergyLimit < intrinsic {
		return vm.InvalidEnergyLimit, tx.EnergyLimit
	}
	if nonce := repo.GetNonce(tx.Sender); nonce != tx.Nonce {
		log.Debug("Nonce mismatch", "sender", tx.Sender, "have", nonce, "want", tx.Nonce)
		return vm.InvalidNonce, 0
	}
	cost := energyCost(tx.EnergyLimit, tx.EnergyPrice)
	if _, overflow := cost.AddOverflow(cost, tx.Value.Uint256()); overflow || repo.GetBalance(tx.Sender).Lt(cost) {
		return vm.InsufficientBalance, 0
	}
	return vm.Success, 0
}

func (e *Executor) buyEnergy(repo state.Repository, tx *types.Transaction) {
	nonce := repo.GetNonce(tx.Sender)
	state.IncrementNonce(repo, tx.Sender)
	e.hooks.NonceChange(tx.Sender, nonce, nonce+1, tracing.NonceChangeTransaction)

	prev := repo.GetBalance(tx.Sender)
	state.SubBalance(repo, tx.Sender, energyCost(tx.EnergyLimit, tx.EnergyPrice))
	e.hooks.BalanceChange(tx.Sender, prev, repo.GetBalance(tx.Sender), tracing.BalanceChangeEnergyBuy)
}

// energyCost returns energy * price. Both operands fit in 128 bits, so
// the product cannot overflow 256.
func energyCost(energy uint64, price types.Word) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(energy), price.Uint256())
}
