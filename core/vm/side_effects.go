package vm

import "github.com/clydemeng/fvm/core/types"

// SideEffects accumulates what one frame and its merged descendants
// produced: accounts marked for deletion, internal transactions, logs and
// the contexts of nested calls.
type SideEffects struct {
	deleted     []types.Address
	deletedSet  map[types.Address]struct{}
	internalTxs []*types.InternalTransaction
	logs        []*types.Log
	calls       []*ExecutionContext
}

// NewSideEffects returns an empty ledger.
func NewSideEffects() *SideEffects {
	return &SideEffects{deletedSet: make(map[types.Address]struct{})}
}

// AddToDeletedAddresses marks addr for deletion. Duplicates are ignored.
func (s *SideEffects) AddToDeletedAddresses(addr types.Address) {
	if _, ok := s.deletedSet[addr]; ok {
		return
	}
	s.deletedSet[addr] = struct{}{}
	s.deleted = append(s.deleted, addr)
}

// DeletedAddresses returns the marked accounts in insertion order.
func (s *SideEffects) DeletedAddresses() []types.Address {
	return s.deleted
}

// IsDeleted reports whether addr has been marked for deletion.
func (s *SideEffects) IsDeleted(addr types.Address) bool {
	_, ok := s.deletedSet[addr]
	return ok
}

func (s *SideEffects) AddInternalTransaction(tx *types.InternalTransaction) {
	s.internalTxs = append(s.internalTxs, tx)
}

func (s *SideEffects) InternalTransactions() []*types.InternalTransaction {
	return s.internalTxs
}

func (s *SideEffects) AddLog(l *types.Log) {
	s.logs = append(s.logs, l)
}

func (s *SideEffects) Logs() []*types.Log {
	return s.logs
}

func (s *SideEffects) AddCall(ctx *ExecutionContext) {
	s.calls = append(s.calls, ctx)
}

// Calls returns the nested frames recorded for tracing.
func (s *SideEffects) Calls() []*ExecutionContext {
	return s.calls
}

// MarkAllInternalTransactionsRejected flags every internal transaction
// recorded so far.
func (s *SideEffects) MarkAllInternalTransactionsRejected() {
	for _, tx := range s.internalTxs {
		tx.MarkRejected()
	}
}

// Merge folds a child ledger into s. Internal transactions and nested calls
// are always kept, flagged or not; logs and deletions only survive a
// successful child.
func (s *SideEffects) Merge(child *SideEffects, success bool) {
	s.internalTxs = append(s.internalTxs, child.internalTxs...)
	s.calls = append(s.calls, child.calls...)
	if !success {
		return
	}
	s.logs = append(s.logs, child.logs...)
	for _, addr := range child.deleted {
		s.AddToDeletedAddresses(addr)
	}
}
