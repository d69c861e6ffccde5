package vm

import (
	"testing"

	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestChildInheritsTransactionFields(t *testing.T) {
	parent := testContext(CALL, nil)
	callee := types.HexToAddress("0xca11ee")

	child := parent.Child(Message{
		Destination: callee,
		Sender:      parent.Destination(),
		Energy:      10,
		Depth:       parent.Depth + 1,
		Kind:        CALL,
	})
	require.Equal(t, parent.TxContext, child.TxContext)
	require.Equal(t, callee, child.Destination())
	require.Equal(t, callee, child.CodeAddress())
	require.Nil(t, child.ContractAddress())
	require.NotSame(t, parent.SideEffects(), child.SideEffects())
}

func TestChildKeepsCodeContext(t *testing.T) {
	parent := testContext(CALL, nil)
	library := types.HexToAddress("0x11b")

	for _, kind := range []CallKind{DELEGATECALL, CALLCODE} {
		child := parent.Child(Message{Destination: library, Kind: kind, Depth: parent.Depth + 1})
		require.Equal(t, parent.Destination(), child.Destination(), kind.String())
		require.Equal(t, library, child.CodeAddress(), kind.String())
	}
}

func TestSetContractAddress(t *testing.T) {
	ctx := testContext(CREATE, []byte{1})
	addr := types.HexToAddress("0xa0")
	ctx.SetContractAddress(addr)

	require.Equal(t, addr, ctx.Destination())
	require.Equal(t, addr, ctx.CodeAddress())
	require.Equal(t, addr, *ctx.ContractAddress())
}

func TestSideEffectsMerge(t *testing.T) {
	a, b := types.HexToAddress("0xa"), types.HexToAddress("0xb")
	newTx := func() *types.InternalTransaction {
		return types.NewInternalTransaction(common.Hash{}, 1, a, &b, 0, types.ZeroWord, nil, types.NoteCall)
	}

	parent := NewSideEffects()
	parent.AddToDeletedAddresses(a)

	failed := NewSideEffects()
	failed.AddInternalTransaction(newTx())
	failed.AddLog(types.NewLog(b, nil, nil))
	failed.AddToDeletedAddresses(b)
	failed.MarkAllInternalTransactionsRejected()
	parent.Merge(failed, false)

	require.Len(t, parent.InternalTransactions(), 1)
	require.True(t, parent.InternalTransactions()[0].Rejected)
	require.Empty(t, parent.Logs())
	require.Equal(t, []types.Address{a}, parent.DeletedAddresses())

	ok := NewSideEffects()
	ok.AddInternalTransaction(newTx())
	ok.AddLog(types.NewLog(b, nil, []byte{1}))
	ok.AddToDeletedAddresses(b)
	ok.AddToDeletedAddresses(a)
	ok.AddCall(testContext(CALL, nil))
	parent.Merge(ok, true)

	require.Len(t, parent.InternalTransactions(), 2)
	require.False(t, parent.InternalTransactions()[1].Rejected)
	require.Len(t, parent.Logs(), 1)
	require.Equal(t, []types.Address{a, b}, parent.DeletedAddresses())
	require.True(t, parent.IsDeleted(b))
	require.Len(t, parent.Calls(), 1)
}

func TestResultCodeClasses(t *testing.T) {
	require.True(t, Success.IsSuccess())
	for _, c := range []ResultCode{VMRejected, InvalidNonce, InvalidEnergyLimit, InsufficientBalance} {
		require.True(t, c.IsRejected(), c.String())
		require.False(t, c.IsFailed(), c.String())
	}
	for _, c := range []ResultCode{Failure, OutOfEnergy, Revert, VMInternalError, IncompatibleContractCall} {
		require.True(t, c.IsFailed(), c.String())
	}
	require.Equal(t, "OUT_OF_NRG", OutOfEnergy.String())
	require.Equal(t, "ResultCode(99)", ResultCode(99).String())
}

func TestRevisionAt(t *testing.T) {
	cfg := params.DefaultConfig
	require.Equal(t, RevAion, RevisionAt(&cfg, 1_000_000))

	fork := uint64(100)
	cfg.Fork040Block = &fork
	require.Equal(t, RevAion, RevisionAt(&cfg, 99))
	require.Equal(t, RevAionV1, RevisionAt(&cfg, 100))
}
