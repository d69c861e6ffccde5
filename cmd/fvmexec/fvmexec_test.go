package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clydemeng/fvm/core/state"
	"github.com/clydemeng/fvm/core/types"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	cfg := defaultConfig()
	fork := uint64(100)
	cfg.Executor.Fork040Block = &fork
	cfg.Database.Cache = 128

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, cfg))

	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0644))

	var loaded fvmConfig
	require.NoError(t, loadConfig(file, &loaded))
	require.Equal(t, cfg, loaded)
}

func TestConfigUnknownField(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Executor]\nBogus = 1\n"), 0644))

	cfg := defaultConfig()
	err := loadConfig(file, &cfg)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), file))
}

func TestApplyGenesis(t *testing.T) {
	const input = `{
		"header": {"number": 7, "energyLimit": 1000000},
		"alloc": {
			"0x00000000000000000000000000000000000000000000000000000000000000aa": {
				"balance": "0x03e8",
				"nonce": "0x2",
				"code": "0x6001",
				"storage": {"0x01": "0x05"}
			}
		},
		"blockHashes": {"0x6": "0x0000000000000000000000000000000000000000000000000000000000000abc"}
	}`
	var g genesis
	require.NoError(t, json.Unmarshal([]byte(input), &g))
	require.Equal(t, uint64(7), g.Header.Number)

	db := state.NewDatabase(memorydb.New())
	require.NoError(t, applyGenesis(db, &g))

	addr := types.HexToAddress("0xaa")
	require.Equal(t, uint64(1000), db.GetBalance(addr).Uint64())
	require.Equal(t, uint64(2), db.GetNonce(addr))
	require.Equal(t, []byte{0x60, 0x01}, db.GetCode(addr))
	require.Equal(t, types.Uint64ToWord(5), db.GetStorage(addr, types.Uint64ToWord(1)))
	require.Equal(t, byte(0xbc), db.BlockHash(6)[31])
}

func TestPrintReceipts(t *testing.T) {
	addr := types.HexToAddress("0xaa")
	var buf bytes.Buffer
	printReceipts(&buf, []*types.Receipt{
		{TransactionIndex: 0, ResultCode: 0, EnergyUsed: 21000, CumulativeEnergyUsed: 21000, Fee: types.Uint64ToWord(42)},
		{TransactionIndex: 1, ResultCode: 7, ContractAddress: &addr},
	})
	out := buf.String()
	require.Contains(t, out, "SUCCESS")
	require.Contains(t, out, "REVERT")
	require.Contains(t, out, "42")
}
