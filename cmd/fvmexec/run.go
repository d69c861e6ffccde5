package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/clydemeng/fvm/core"
	"github.com/clydemeng/fvm/core/state"
	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/clydemeng/fvm/fvmbridge"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gofrs/flock"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Action:    runTransactions,
	Name:      "run",
	Usage:     "Apply a list of transactions to a genesis state",
	ArgsUsage: "<genesis.json> <txs.json>",
	Flags:     []cli.Flag{dataDirFlag, jsonFlag},
	Description: `The genesis file holds the block header and the initial accounts,
the transaction file a JSON array of transactions. All transactions run as
one block; the block is committed only if none of them is rejected.`,
}

// genesisAccount is an account in the genesis allocation.
type genesisAccount struct {
	Balance types.Word                `json:"balance"`
	Nonce   hexutil.Uint64            `json:"nonce"`
	Code    hexutil.Bytes             `json:"code"`
	Storage map[types.Word]types.Word `json:"storage"`
}

type genesis struct {
	Header types.Header                     `json:"header"`
	Alloc  map[types.Address]genesisAccount `json:"alloc"`
	// Hashes of earlier blocks, by number.
	BlockHashes map[hexutil.Uint64]common.Hash `json:"blockHashes"`
}

type txJSON struct {
	From        types.Address  `json:"from"`
	To          *types.Address `json:"to"`
	Nonce       hexutil.Uint64 `json:"nonce"`
	Value       types.Word     `json:"value"`
	Data        hexutil.Bytes  `json:"data"`
	EnergyLimit hexutil.Uint64 `json:"energyLimit"`
	EnergyPrice types.Word     `json:"energyPrice"`
}

func (tx *txJSON) toTransaction() *types.Transaction {
	return &types.Transaction{
		Sender:      tx.From,
		To:          tx.To,
		Nonce:       uint64(tx.Nonce),
		Value:       tx.Value,
		Data:        tx.Data,
		EnergyLimit: uint64(tx.EnergyLimit),
		EnergyPrice: tx.EnergyPrice,
	}
}

func readJSON(file string, v interface{}) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	return nil
}

// ErrDatadirUsed is returned if the data directory is locked by another
// process.
var ErrDatadirUsed = errors.New("datadir already used by another process")

// openDatabase opens the state database. An on-disk database is guarded
// by a lock file; the returned release function closes both.
func openDatabase(ctx *cli.Context, cfg DatabaseConfig) (ethdb.KeyValueStore, func(), error) {
	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		disk := memorydb.New()
		return disk, func() { disk.Close() }, nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, nil, err
	}
	lock := flock.New(filepath.Join(dir, "LOCK.fvmexec"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, nil, err
	}
	if !locked {
		return nil, nil, ErrDatadirUsed
	}
	disk, err := leveldb.New(filepath.Join(dir, "state"), cfg.Cache, cfg.Handles, "fvm/db/", false)
	if err != nil {
		lock.Unlock()
		return nil, nil, err
	}
	release := func() {
		if err := disk.Close(); err != nil {
			log.Error("Failed to close database", "err", err)
		}
		lock.Unlock()
	}
	return disk, release, nil
}

// applyGenesis writes the allocation and block hashes into db.
func applyGenesis(db *state.Database, g *genesis) error {
	for addr, acc := range g.Alloc {
		db.SetBalance(addr, acc.Balance.Uint256())
		db.SetNonce(addr, uint64(acc.Nonce))
		if len(acc.Code) > 0 {
			db.SetCode(addr, acc.Code)
		}
		for k, v := range acc.Storage {
			db.SetStorage(addr, k, v)
		}
	}
	for number, hash := range g.BlockHashes {
		if err := db.SetBlockHash(uint64(number), hash); err != nil {
			return err
		}
	}
	return db.Error()
}

// newExecutor uses the native engine when it is linked in. Otherwise every
// code execution fails, leaving transfers and precompiles usable.
func newExecutor(cfg *fvmConfig) (*core.Executor, error) {
	exec, err := core.NewTxExecutor(&cfg.Executor, nil)
	if err == nil {
		return exec, nil
	}
	if !errors.Is(err, fvmbridge.ErrEngineUnavailable) {
		return nil, err
	}
	log.Warn("Native engine unavailable, contract code will not run", "err", err)
	unavailable := vm.EngineFunc(func(vm.Host, []byte, []byte, vm.Revision) []byte {
		return vm.NewResult(vm.VMInternalError, 0, nil).Encode()
	})
	return core.NewExecutor(&cfg.Executor, unavailable, nil, nil), nil
}

// runTransactions is the run command.
func runTransactions(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	var (
		g   genesis
		txs []*txJSON
	)
	if err := readJSON(ctx.Args().Get(0), &g); err != nil {
		return err
	}
	if err := readJSON(ctx.Args().Get(1), &txs); err != nil {
		return err
	}

	disk, release, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer release()

	db := state.NewDatabase(disk)
	if err := applyGenesis(db, &g); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	exec, err := newExecutor(&cfg)
	if err != nil {
		return err
	}

	block := make([]*types.Transaction, len(txs))
	for i, tx := range txs {
		block[i] = tx.toTransaction()
	}
	fvmbridge.ResetProfileCounters()
	res, err := core.NewStateProcessor(exec).Process(db, &g.Header, block)
	if err != nil {
		return err
	}
	if err := db.Error(); err != nil {
		return err
	}
	reads, handles := fvmbridge.ProfileCounters()
	log.Info("Block applied", "number", g.Header.Number, "txs", len(block), "energy", res.EnergyUsed, "storageReads", reads, "liveHandles", handles)

	if ctx.Bool(jsonFlag.Name) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Receipts)
	}
	printReceipts(os.Stdout, res.Receipts)
	return nil
}

func printReceipts(w io.Writer, receipts []*types.Receipt) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Hash", "Result", "Energy", "Cumulative", "Fee", "Contract", "Logs"})
	for _, r := range receipts {
		contract := "-"
		if r.ContractAddress != nil {
			contract = r.ContractAddress.TerminalString()
		}
		table.Append([]string{
			strconv.FormatUint(uint64(r.TransactionIndex), 10),
			r.TxHash.TerminalString(),
			vm.ResultCode(r.ResultCode).String(),
			strconv.FormatUint(r.EnergyUsed, 10),
			strconv.FormatUint(r.CumulativeEnergyUsed, 10),
			r.Fee.Uint256().Dec(),
			contract,
			strconv.Itoa(len(r.Logs)),
		})
	}
	table.Render()
}
