package core

import (
	"testing"

	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/clydemeng/fvm/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCreateEmptyInitCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := newTestDB(map[types.Address]uint64{alice: 1000})

	s := newTestExecutor(vm.NewMockEngine(ctrl)).Execute(db, testHeader(), createTx(alice, 0, 0, 100, 1, nil))
	addr := CreateAddress(alice, 0)
	require.Equal(t, vm.Success, s.Result.Code)
	require.Equal(t, uint64(100), s.Result.EnergyRemaining)
	require.Equal(t, addr.Bytes(), s.Result.Output)
	require.Equal(t, &addr, s.ContractAddress)

	require.True(t, db.Exist(addr))
	require.Empty(t, db.GetCode(addr))
	require.Equal(t, uint64(1), db.GetNonce(addr))
	require.Equal(t, uint64(1), db.GetNonce(alice))
}

func TestCreateDeploysCode(t *testing.T) {
	var (
		ctrl     = gomock.NewController(t)
		engine   = vm.NewMockEngine(ctrl)
		initCode = []byte{0x60, 0x01}
		runtime  = []byte{0xfe, 0xed}
		addr     = CreateAddress(alice, 0)
		key      = types.Uint64ToWord(1)
	)
	engine.EXPECT().Run(gomock.Any(), initCode, gomock.Any(), gomock.Any()).DoAndReturn(
		func(host vm.Host, _, raw []byte, _ vm.Revision) []byte {
			ctx := decodeContext(t, raw)
			require.Equal(t, vm.CREATE, ctx.Kind)
			require.Equal(t, addr, ctx.Destination())
			require.Empty(t, ctx.Data)
			require.Equal(t, uint64(7), host.GetBalance(addr).Uint64())
			host.PutStorage(addr, key, types.Uint64ToWord(9))
			return encoded(vm.Success, ctx.Energy-2000, runtime)
		})

	db := newTestDB(map[types.Address]uint64{alice: 100_000})
	s := newTestExecutor(engine).Execute(db, testHeader(), createTx(alice, 0, 7, 10_000, 2, initCode))

	require.Equal(t, vm.Success, s.Result.Code)
	require.Equal(t, addr.Bytes(), s.Result.Output)
	require.Equal(t, uint64(10_000-2000-params.CodeDepositCost), s.Result.EnergyRemaining)
	require.Equal(t, uint64(3000), s.EnergyUsed)
	require.Equal(t, uint64(6000), s.Fee.Uint64())

	require.Equal(t, runtime, db.GetCode(addr))
	require.Equal(t, types.Uint64ToWord(9), db.GetStorage(addr, key))
	require.Equal(t, uint64(7), balance(db, addr))
	require.Equal(t, uint64(100_000-7-6000), balance(db, alice))
}

func TestCreatePreservesBalance(t *testing.T) {
	addr := CreateAddress(alice, 0)
	db := newTestDB(map[types.Address]uint64{alice: 1000, addr: 5})
	db.SetStorage(addr, types.Uint64ToWord(1), types.Uint64ToWord(1))

	s := newTestExecutor(nil).Execute(db, testHeader(), createTx(alice, 0, 10, 100, 1, nil))
	require.Equal(t, vm.Success, s.Result.Code)
	require.Equal(t, uint64(15), balance(db, addr))
	require.Equal(t, types.ZeroWord, db.GetStorage(addr, types.Uint64ToWord(1)))
}

func TestCreateCollision(t *testing.T) {
	ctrl := gomock.NewController(t)
	addr := CreateAddress(alice, 0)
	db := newTestDB(map[types.Address]uint64{alice: 10_000, addr: 5})
	db.SetCode(addr, []byte{0x01})

	s := newTestExecutor(vm.NewMockEngine(ctrl)).Execute(db, testHeader(), createTx(alice, 0, 10, 1000, 1, []byte{0x60}))
	require.Equal(t, vm.Failure, s.Result.Code)
	require.Zero(t, s.Result.EnergyRemaining)
	require.Equal(t, uint64(1000), s.EnergyUsed)

	require.Equal(t, uint64(5), balance(db, addr))
	require.Equal(t, []byte{0x01}, db.GetCode(addr))
	require.Equal(t, uint64(9000), balance(db, alice))
	require.Equal(t, uint64(1), db.GetNonce(alice))
}

func TestCreateDepositFailure(t *testing.T) {
	var nested *vm.Result
	engine := vm.EngineFunc(func(host vm.Host, code, raw []byte, _ vm.Revision) []byte {
		ctx := decodeContext(t, raw)
		switch code[0] {
		case 0xc0:
			out := host.Call(vm.EncodeMessage(vm.Message{
				Sender: ctx.Destination(),
				Energy: 5000,
				Value:  types.Uint64ToWord(30),
				Data:   []byte{0x1c},
				Depth:  ctx.Depth + 1,
				Kind:   vm.CREATE,
			}))
			nested = decodeResult(t, out)
			return encoded(vm.Success, ctx.Energy-100, nil)
		default:
			// Not enough energy left to pay for the deposit.
			return encoded(vm.Success, 500, []byte{0xfe})
		}
	})

	db := newTestDB(map[types.Address]uint64{alice: 100_000, contract: 100})
	db.SetCode(contract, []byte{0xc0})
	s := newTestExecutor(engine).Execute(db, testHeader(), callTx(alice, contract, 0, 0, 10_000, 1))

	require.Equal(t, vm.Success, s.Result.Code)
	require.Equal(t, vm.Failure, nested.Code)
	require.Zero(t, nested.EnergyRemaining)

	addr := CreateAddress(contract, 0)
	require.True(t, db.Exist(addr))
	require.Empty(t, db.GetCode(addr))
	require.Equal(t, uint64(30), balance(db, addr))
	require.Equal(t, uint64(70), balance(db, contract))
	require.Equal(t, uint64(1), db.GetNonce(contract))

	require.Len(t, s.InternalTxs, 2)
	for _, itx := range s.InternalTxs {
		require.True(t, itx.Rejected)
		require.Equal(t, types.NoteCreate, itx.Note)
		require.Equal(t, contract, itx.Sender)
	}
	require.Equal(t, addr, *s.InternalTxs[0].Destination)
	require.Nil(t, s.InternalTxs[1].Destination)
}

func TestNestedCreate(t *testing.T) {
	engine := vm.EngineFunc(func(host vm.Host, code, raw []byte, _ vm.Revision) []byte {
		ctx := decodeContext(t, raw)
		if code[0] == 0xc0 {
			for i := 0; i < 2; i++ {
				host.Call(vm.EncodeMessage(vm.Message{
					Sender: ctx.Destination(),
					Energy: 5000,
					Data:   []byte{0x1c},
					Depth:  ctx.Depth + 1,
					Kind:   vm.CREATE,
				}))
			}
			return encoded(vm.Success, ctx.Energy, nil)
		}
		return encoded(vm.Success, ctx.Energy, []byte{0xab})
	})

	db := newTestDB(map[types.Address]uint64{alice: 100_000})
	db.SetCode(contract, []byte{0xc0})
	s := newTestExecutor(engine).Execute(db, testHeader(), callTx(alice, contract, 0, 0, 10_000, 1))
	require.Equal(t, vm.Success, s.Result.Code)

	// Each creation bumps the creator's nonce, so the two addresses differ.
	require.Equal(t, uint64(2), db.GetNonce(contract))
	require.Equal(t, []byte{0xab}, db.GetCode(CreateAddress(contract, 0)))
	require.Equal(t, []byte{0xab}, db.GetCode(CreateAddress(contract, 1)))
	require.Len(t, s.InternalTxs, 4)
}

func TestCallDepthLimit(t *testing.T) {
	var (
		runs  int
		final *vm.Result
	)
	engine := vm.EngineFunc(func(host vm.Host, _, raw []byte, _ vm.Revision) []byte {
		runs++
		ctx := decodeContext(t, raw)
		out := host.Call(vm.EncodeMessage(vm.Message{
			Destination: contract,
			Sender:      contract,
			Energy:      ctx.Energy,
			Depth:       ctx.Depth + 1,
			Kind:        vm.CALL,
		}))
		if res := decodeResult(t, out); res.Code != vm.Success {
			final = res
		}
		return encoded(vm.Success, ctx.Energy, nil)
	})

	db := newTestDB(map[types.Address]uint64{alice: 100_000})
	db.SetCode(contract, []byte{0x01})
	s := newTestExecutor(engine).Execute(db, testHeader(), callTx(alice, contract, 0, 0, 1000, 1))

	require.Equal(t, vm.Success, s.Result.Code)
	require.Equal(t, int(params.MaxCallDepth), runs)
	require.NotNil(t, final)
	require.Equal(t, vm.Failure, final.Code)
	require.Zero(t, final.EnergyRemaining)
}

func TestCodeContextCalls(t *testing.T) {
	key := types.Uint64ToWord(3)
	for _, kind := range []vm.CallKind{vm.DELEGATECALL, vm.CALLCODE} {
		t.Run(kind.String(), func(t *testing.T) {
			engine := vm.EngineFunc(func(host vm.Host, code, raw []byte, _ vm.Revision) []byte {
				ctx := decodeContext(t, raw)
				if code[0] == 0xa1 {
					out := host.Call(vm.EncodeMessage(vm.Message{
						Destination: callee,
						Sender:      contract,
						Energy:      100,
						Value:       types.Uint64ToWord(10),
						Depth:       1,
						Kind:        kind,
					}))
					require.Equal(t, vm.Success, decodeResult(t, out).Code)
					return encoded(vm.Success, ctx.Energy, nil)
				}
				require.Equal(t, contract, ctx.Destination())
				host.PutStorage(ctx.Destination(), key, types.Uint64ToWord(1))
				return encoded(vm.Success, ctx.Energy, nil)
			})

			db := newTestDB(map[types.Address]uint64{alice: 100_000, contract: 100})
			db.SetCode(contract, []byte{0xa1})
			db.SetCode(callee, []byte{0xb1})
			s := newTestExecutor(engine).Execute(db, testHeader(), callTx(alice, contract, 0, 0, 1000, 1))

			require.Equal(t, vm.Success, s.Result.Code)
			require.Equal(t, types.Uint64ToWord(1), db.GetStorage(contract, key))
			require.Equal(t, types.ZeroWord, db.GetStorage(callee, key))
			require.Equal(t, uint64(100), balance(db, contract))
			require.Zero(t, balance(db, callee))

			require.Len(t, s.InternalTxs, 1)
			require.Equal(t, contract, *s.InternalTxs[0].Destination)
		})
	}
}

func TestFailedNestedCallRollsBack(t *testing.T) {
	key := types.Uint64ToWord(5)
	for _, tt := range []struct {
		name      string
		result    []byte
		remaining uint64
	}{
		{"failure", encoded(vm.Failure, 40, nil), 0},
		{"revert", encoded(vm.Revert, 40, nil), 40},
		{"panic", nil, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var nested *vm.Result
			engine := vm.EngineFunc(func(host vm.Host, code, raw []byte, _ vm.Revision) []byte {
				ctx := decodeContext(t, raw)
				if code[0] == 0xa1 {
					nested = decodeResult(t, host.Call(vm.EncodeMessage(vm.Message{
						Destination: callee,
						Sender:      contract,
						Energy:      100,
						Value:       types.Uint64ToWord(10),
						Depth:       1,
						Kind:        vm.CALL,
					})))
					host.Log(contract, []common.Hash{{1}}, nil)
					return encoded(vm.Success, ctx.Energy, nil)
				}
				host.PutStorage(callee, key, types.Uint64ToWord(1))
				host.Log(callee, nil, nil)
				host.SelfDestruct(callee, bob)
				if tt.result == nil {
					panic("callee exploded")
				}
				return tt.result
			})

			db := newTestDB(map[types.Address]uint64{alice: 100_000, contract: 100})
			db.SetCode(contract, []byte{0xa1})
			db.SetCode(callee, []byte{0xb1})
			s := newTestExecutor(engine).Execute(db, testHeader(), callTx(alice, contract, 0, 0, 1000, 1))

			require.Equal(t, vm.Success, s.Result.Code)
			require.False(t, nested.Code.IsSuccess())
			require.Equal(t, tt.remaining, nested.EnergyRemaining)

			require.Equal(t, types.ZeroWord, db.GetStorage(callee, key))
			require.Equal(t, uint64(100), balance(db, contract))
			require.Zero(t, balance(db, callee))
			require.True(t, db.Exist(callee))
			require.False(t, db.Exist(bob))

			require.Len(t, s.Logs, 1)
			require.Equal(t, contract, s.Logs[0].Address)
			require.Empty(t, s.DeletedAccounts)
			require.Len(t, s.InternalTxs, 2)
			for _, itx := range s.InternalTxs {
				require.True(t, itx.Rejected)
			}
		})
	}
}

func TestSelfDestruct(t *testing.T) {
	engine := vm.EngineFunc(func(host vm.Host, _, raw []byte, _ vm.Revision) []byte {
		ctx := decodeContext(t, raw)
		host.Log(contract, []common.Hash{{7}}, []byte{1})
		host.SelfDestruct(contract, bob)
		return encoded(vm.Success, ctx.Energy, nil)
	})

	db := newTestDB(map[types.Address]uint64{alice: 100_000, contract: 375, bob: 5})
	db.SetCode(contract, []byte{0x01})
	s := newTestExecutor(engine).Execute(db, testHeader(), callTx(alice, contract, 0, 0, 1000, 1))

	require.Equal(t, vm.Success, s.Result.Code)
	require.Equal(t, []types.Address{contract}, s.DeletedAccounts)
	require.False(t, db.Exist(contract))
	require.Empty(t, db.GetCode(contract))
	require.Equal(t, uint64(380), balance(db, bob))

	require.Len(t, s.Logs, 1)
	require.True(t, s.Bloom.Test(contract.Bytes()))
	require.Len(t, s.InternalTxs, 1)
	require.Equal(t, types.NoteSelfDestruct, s.InternalTxs[0].Note)
}

func TestInsufficientBalanceForNestedCall(t *testing.T) {
	var nested *vm.Result
	engine := vm.EngineFunc(func(host vm.Host, code, raw []byte, _ vm.Revision) []byte {
		ctx := decodeContext(t, raw)
		nested = decodeResult(t, host.Call(vm.EncodeMessage(vm.Message{
			Destination: bob,
			Sender:      contract,
			Energy:      100,
			Value:       types.Uint64ToWord(101),
			Depth:       1,
			Kind:        vm.CALL,
		})))
		return encoded(vm.Success, ctx.Energy, nil)
	})

	db := newTestDB(map[types.Address]uint64{alice: 100_000, contract: 100})
	db.SetCode(contract, []byte{0x01})
	s := newTestExecutor(engine).Execute(db, testHeader(), callTx(alice, contract, 0, 0, 1000, 1))

	require.Equal(t, vm.Success, s.Result.Code)
	require.Equal(t, vm.Failure, nested.Code)
	require.Zero(t, nested.EnergyRemaining)
	require.Equal(t, uint256.NewInt(100), db.GetBalance(contract))
	require.False(t, db.Exist(bob))
	require.Empty(t, s.InternalTxs)
}
