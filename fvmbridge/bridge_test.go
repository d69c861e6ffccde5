package fvmbridge

import (
	"testing"

	"github.com/clydemeng/fvm/core/state"
	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	addrX = types.HexToAddress("0x0a")
	addrY = types.HexToAddress("0x0b")
	addrZ = types.HexToAddress("0x0c")
)

type handlerFunc func(parent, child *vm.ExecutionContext, repo *state.Cache) *vm.Result

func (f handlerFunc) PerformCall(parent, child *vm.ExecutionContext, repo *state.Cache) *vm.Result {
	return f(parent, child, repo)
}

func newFrame(depth int32, dest types.Address) *vm.ExecutionContext {
	return vm.NewExecutionContext(vm.TxContext{TxHash: common.HexToHash("0x01")}, vm.Message{
		Destination: dest,
		Sender:      addrZ,
		Energy:      1000,
		Depth:       depth,
		Kind:        vm.CALL,
	})
}

func TestBridgeStack(t *testing.T) {
	b := NewBridge(nil, nil)
	_, err := b.CurrentContext()
	require.ErrorIs(t, err, ErrEmptyStack)
	_, err = b.CurrentState()
	require.ErrorIs(t, err, ErrEmptyStack)
	require.ErrorIs(t, b.Pop(), ErrEmptyStack)

	db := state.NewDatabase(memorydb.New())
	outer, inner := db.StartTracking(), db.StartTracking()
	ctx0, ctx1 := newFrame(0, addrX), newFrame(1, addrY)

	b.Push(ctx0, outer)
	b.Push(ctx1, inner)
	require.Equal(t, 2, b.Depth())

	ctx, err := b.CurrentContext()
	require.NoError(t, err)
	require.Same(t, ctx1, ctx)
	repo, err := b.CurrentState()
	require.NoError(t, err)
	require.Same(t, inner, repo)

	require.NoError(t, b.Pop())
	ctx, _ = b.CurrentContext()
	require.Same(t, ctx0, ctx)
	require.NoError(t, b.Pop())
	require.Zero(t, b.Depth())
}

func TestHostResolvesAgainstCurrentFrame(t *testing.T) {
	db := state.NewDatabase(memorydb.New())
	outer := db.StartTracking()
	inner := outer.StartTracking()

	b := NewBridge(nil, nil)
	b.Push(newFrame(0, addrX), outer)
	b.Push(newFrame(1, addrX), inner)

	key := types.Uint64ToWord(1)
	b.PutStorage(addrX, key, types.Uint64ToWord(7))
	b.IncreaseBalance(addrX, types.Uint64ToWord(10))
	b.PutCode(addrX, []byte{0xfe})

	require.Equal(t, types.Uint64ToWord(7), b.GetStorage(addrX, key))
	require.Equal(t, types.Uint64ToWord(10), b.GetBalance(addrX))
	require.Equal(t, []byte{0xfe}, b.GetCode(addrX))
	require.True(t, b.AccountExists(addrX))

	// The outer frame sees nothing until the inner layer is flushed.
	require.Equal(t, types.ZeroWord, outer.GetStorage(addrX, key))
	require.NoError(t, b.Pop())
	require.False(t, b.AccountExists(addrX))
	require.Zero(t, b.GetNonce(addrX))
}

func TestHostPanicsOutsideFrame(t *testing.T) {
	b := NewBridge(nil, nil)
	require.Panics(t, func() { b.GetBalance(addrX) })
}

func TestSelfDestruct(t *testing.T) {
	db := state.NewDatabase(memorydb.New())
	db.SetBalance(addrX, uint256.NewInt(375))
	db.SetBalance(addrY, uint256.NewInt(5))
	repo := db.StartTracking()

	ctx := newFrame(1, addrX)
	b := NewBridge(nil, nil)
	b.Push(ctx, repo)
	b.SelfDestruct(addrX, addrY)

	require.True(t, repo.GetBalance(addrX).IsZero())
	require.Equal(t, uint64(380), repo.GetBalance(addrY).Uint64())

	itxs := ctx.SideEffects().InternalTransactions()
	require.Len(t, itxs, 1)
	require.Equal(t, addrX, itxs[0].Sender)
	require.Equal(t, addrY, *itxs[0].Destination)
	require.Equal(t, uint64(375), itxs[0].Value.Uint64())
	require.False(t, itxs[0].Rejected)
	require.Equal(t, []types.Address{addrX}, ctx.SideEffects().DeletedAddresses())

	// Deletion is deferred to the end of the transaction.
	require.True(t, repo.Exist(addrX))
}

func TestSelfDestructToSelf(t *testing.T) {
	db := state.NewDatabase(memorydb.New())
	db.SetBalance(addrX, uint256.NewInt(375))
	repo := db.StartTracking()

	ctx := newFrame(1, addrX)
	b := NewBridge(nil, nil)
	b.Push(ctx, repo)
	b.SelfDestruct(addrX, addrX)

	require.Equal(t, uint64(375), repo.GetBalance(addrX).Uint64())
	require.Len(t, ctx.SideEffects().InternalTransactions(), 1)
	require.True(t, ctx.SideEffects().IsDeleted(addrX))
}

func TestLogGoesToCurrentFrame(t *testing.T) {
	repo := state.NewDatabase(memorydb.New()).StartTracking()
	outer, inner := newFrame(0, addrX), newFrame(1, addrY)

	b := NewBridge(nil, nil)
	b.Push(outer, repo)
	b.Push(inner, repo)
	b.Log(addrY, []common.Hash{{1}}, []byte{2})

	require.Empty(t, outer.SideEffects().Logs())
	require.Len(t, inner.SideEffects().Logs(), 1)
	require.Equal(t, addrY, inner.SideEffects().Logs()[0].Address)
}

func TestCallInheritsAndDelegates(t *testing.T) {
	repo := state.NewDatabase(memorydb.New()).StartTracking()
	parent := newFrame(0, addrX)
	parent.Origin = addrZ
	parent.EnergyPrice = types.Uint64ToWord(3)

	var got *vm.ExecutionContext
	b := NewBridge(handlerFunc(func(p, child *vm.ExecutionContext, r *state.Cache) *vm.Result {
		require.Same(t, parent, p)
		require.Same(t, repo, r)
		got = child
		return vm.NewResult(vm.Success, 7, []byte{0xaa})
	}), nil)
	b.Push(parent, repo)

	out := b.Call(vm.EncodeMessage(vm.Message{
		Destination: addrY,
		Sender:      addrX,
		Energy:      10,
		Depth:       1,
		Kind:        vm.DELEGATECALL,
		Data:        []byte{1},
	}))
	res, err := vm.DecodeResult(out)
	require.NoError(t, err)
	require.Equal(t, vm.Success, res.Code)
	require.Equal(t, uint64(7), res.EnergyRemaining)
	require.Equal(t, []byte{0xaa}, res.Output)

	require.Equal(t, addrZ, got.Origin)
	require.Equal(t, types.Uint64ToWord(3), got.EnergyPrice)
	require.Equal(t, parent.TxHash, got.TxHash)
	require.Equal(t, addrX, got.Destination())
	require.Equal(t, addrY, got.CodeAddress())
	require.Equal(t, int32(1), got.Depth)
}

func TestCallFailures(t *testing.T) {
	repo := state.NewDatabase(memorydb.New()).StartTracking()
	called := false
	b := NewBridge(handlerFunc(func(_, _ *vm.ExecutionContext, _ *state.Cache) *vm.Result {
		called = true
		panic("handler exploded")
	}), nil)

	decode := func(out []byte) *vm.Result {
		res, err := vm.DecodeResult(out)
		require.NoError(t, err)
		return res
	}

	// No frame open.
	require.Equal(t, vm.VMInternalError, decode(b.Call(vm.EncodeMessage(vm.Message{Depth: 1}))).Code)

	b.Push(newFrame(2, addrX), repo)
	require.Equal(t, vm.VMInternalError, decode(b.Call([]byte{1, 2, 3})).Code)

	res := decode(b.Call(vm.EncodeMessage(vm.Message{Depth: 5, Energy: 100})))
	require.Equal(t, vm.Failure, res.Code)
	require.Zero(t, res.EnergyRemaining)
	require.False(t, called)

	res = decode(b.Call(vm.EncodeMessage(vm.Message{Depth: 3, Energy: 100})))
	require.Equal(t, vm.VMInternalError, res.Code)
	require.True(t, called)
	require.Equal(t, 1, b.Depth())
}
