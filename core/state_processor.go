package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clydemeng/fvm/core/state"
	"github.com/clydemeng/fvm/core/types"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"
)

var (
	// ErrEnergyLimitReached is returned when a transaction does not fit in
	// the energy left in the block.
	ErrEnergyLimitReached = errors.New("block energy limit reached")

	// ErrTxRejected is returned when a transaction of the block fails the
	// rejection checks.
	ErrTxRejected = errors.New("transaction rejected")
)

// ProcessResult contains the values computed by Process.
type ProcessResult struct {
	Receipts   []*types.Receipt
	Logs       []*types.Log
	EnergyUsed uint64
}

// prefetcher is implemented by repositories that can warm their caches.
type prefetcher interface {
	Prefetch(ctx context.Context, addrs []types.Address) error
}

// StateProcessor applies the transactions of a block one after another.
type StateProcessor struct {
	executor TxExecutor
}

// NewStateProcessor initialises a new StateProcessor.
func NewStateProcessor(executor TxExecutor) *StateProcessor {
	return &StateProcessor{executor: executor}
}

// Process runs txs in order on top of repo. The block is applied to repo
// only if every transaction is accepted; otherwise repo is left untouched
// and an error is returned.
func (p *StateProcessor) Process(repo state.Repository, header *types.Header, txs []*types.Transaction) (*ProcessResult, error) {
	start := time.Now()
	defer blockTimer.UpdateSince(start)

	if pf, ok := repo.(prefetcher); ok {
		if err := pf.Prefetch(context.Background(), touchedAccounts(header, txs)); err != nil {
			log.Warn("State prefetch failed", "number", header.Number, "err", err)
		}
	}

	var (
		blockState = repo.StartTracking()
		receipts   = make([]*types.Receipt, 0, len(txs))
		allLogs    []*types.Log
		used       uint64
	)
	for i, tx := range txs {
		if header.EnergyLimit-used < tx.EnergyLimit {
			return nil, fmt.Errorf("could not apply tx %d [%v]: %w", i, tx.Hash().Hex(), ErrEnergyLimitReached)
		}
		s := p.executor.Execute(blockState, header, tx)
		if s.IsRejected() {
			return nil, fmt.Errorf("could not apply tx %d [%v]: %w: %v", i, tx.Hash().Hex(), ErrTxRejected, s.Result.Code)
		}
		used += s.EnergyUsed
		receipts = append(receipts, s.Receipt(uint(i), used))
		allLogs = append(allLogs, s.Logs...)
	}
	blockState.Flush()

	log.Debug("Processed block", "number", header.Number, "txs", len(txs), "energy", used, "elapsed", time.Since(start))
	return &ProcessResult{Receipts: receipts, Logs: allLogs, EnergyUsed: used}, nil
}

// touchedAccounts lists the coinbase, senders and recipients of a block,
// deduplicated in first-seen order.
func touchedAccounts(header *types.Header, txs []*types.Transaction) []types.Address {
	seen := mapset.NewThreadUnsafeSetWithSize[types.Address](2*len(txs) + 1)
	out := make([]types.Address, 0, 2*len(txs)+1)
	add := func(a types.Address) {
		if seen.Add(a) {
			out = append(out, a)
		}
	}
	add(header.Coinbase)
	for _, tx := range txs {
		add(tx.Sender)
		if tx.To != nil {
			add(*tx.To)
		}
	}
	return out
}
