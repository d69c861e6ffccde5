package core

import (
	"github.com/clydemeng/fvm/core/state"
	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/clydemeng/fvm/tracing"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Summary is the settled outcome of one transaction.
type Summary struct {
	Tx              *types.Transaction
	Result          *vm.Result
	EnergyUsed      uint64
	Fee             *uint256.Int
	Logs            []*types.Log
	InternalTxs     []*types.InternalTransaction
	DeletedAccounts []types.Address
	ContractAddress *types.Address
	Bloom           gethtypes.Bloom
}

// IsRejected reports whether the transaction was refused before execution.
func (s *Summary) IsRejected() bool {
	return s.Result.Code.IsRejected()
}

// Receipt converts the summary into the receipt of the transaction at
// position index of a block.
func (s *Summary) Receipt(index uint, cumulativeEnergy uint64) *types.Receipt {
	status := types.ReceiptStatusFailed
	if s.Result.Code.IsSuccess() {
		status = types.ReceiptStatusSuccessful
	}
	fee, _ := types.Uint256ToWord(s.Fee)
	return &types.Receipt{
		TxHash:               s.Tx.Hash(),
		TransactionIndex:     index,
		Status:               status,
		ResultCode:           int32(s.Result.Code),
		EnergyUsed:           s.EnergyUsed,
		CumulativeEnergyUsed: cumulativeEnergy,
		Fee:                  fee,
		ContractAddress:      s.ContractAddress,
		Output:               s.Result.Output,
		Logs:                 s.Logs,
		InternalTxs:          s.InternalTxs,
		Bloom:                s.Bloom,
	}
}

// finish settles a finished execution inside res.State: it refunds unused
// energy, pays the coinbase and removes self-destructed accounts.
func (e *Executor) finish(header *types.Header, tx *types.Transaction, ctx *vm.ExecutionContext, res *vm.Result, local bool) *Summary {
	effects := ctx.SideEffects()
	s := &Summary{
		Tx:          tx,
		Result:      res,
		Fee:         new(uint256.Int),
		InternalTxs: effects.InternalTransactions(),
	}
	if res.Code.IsRejected() {
		return s
	}
	s.EnergyUsed = tx.EnergyLimit - res.EnergyRemaining
	if tx.IsContractCreation() {
		s.ContractAddress = ctx.ContractAddress()
	}

	repo := res.State
	if !local {
		price := tx.EnergyPrice.Uint256()
		refund := new(uint256.Int).Mul(uint256.NewInt(res.EnergyRemaining), price)
		e.credit(repo, tx.Sender, refund, tracing.BalanceChangeEnergyRefund)

		s.Fee.Mul(uint256.NewInt(s.EnergyUsed), price)
		e.credit(repo, header.Coinbase, s.Fee, tracing.BalanceChangeFee)
	}
	if res.Code.IsSuccess() {
		s.DeletedAccounts = effects.DeletedAddresses()
		for _, addr := range s.DeletedAccounts {
			repo.DeleteAccount(addr)
		}
		s.Logs = effects.Logs()
	}
	s.Bloom = types.CreateBloom(s.Logs)
	return s
}

func (e *Executor) credit(repo state.Repository, addr types.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	prev := repo.GetBalance(addr)
	state.AddBalance(repo, addr, amount)
	e.hooks.BalanceChange(addr, prev, repo.GetBalance(addr), reason)
}
