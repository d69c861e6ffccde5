package state

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/clydemeng/fvm/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
)

const (
	accountCacheSize = 4096
	codeCacheSize    = 256
)

var (
	accountPrefix   = []byte("a") // accountPrefix + address -> rlp(Account)
	codePrefix      = []byte("c") // codePrefix + code hash -> code
	storagePrefix   = []byte("s") // storagePrefix + address + key -> value
	blockHashPrefix = []byte("h") // blockHashPrefix + num (uint64 big endian) -> hash
)

// Account is the consensus representation of an account as stored in the
// key-value store.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash common.Hash
}

func newAccount() *Account {
	return &Account{Balance: new(uint256.Int), CodeHash: EmptyCodeHash}
}

func (a *Account) copy() *Account {
	return &Account{Nonce: a.Nonce, Balance: new(uint256.Int).Set(a.Balance), CodeHash: a.CodeHash}
}

func accountKey(addr types.Address) []byte {
	return append(common.CopyBytes(accountPrefix), addr[:]...)
}

func codeKey(hash common.Hash) []byte {
	return append(common.CopyBytes(codePrefix), hash[:]...)
}

func storageKey(addr types.Address, key types.Word) []byte {
	out := make([]byte, 0, len(storagePrefix)+types.AddressLength+types.WordLength)
	out = append(out, storagePrefix...)
	out = append(out, addr[:]...)
	return append(out, key[:]...)
}

func blockHashKey(number uint64) []byte {
	out := make([]byte, len(blockHashPrefix)+8)
	copy(out, blockHashPrefix)
	binary.BigEndian.PutUint64(out[len(blockHashPrefix):], number)
	return out
}

// Database is the root Repository, persisting accounts, code, storage and
// block hashes into an ethdb.KeyValueStore. Reads go through LRU caches.
//
// Database is safe for concurrent use. Repository methods cannot return
// errors; the first storage failure is memoized and reported by Error.
type Database struct {
	disk     ethdb.KeyValueStore
	accounts *lru.Cache // types.Address -> *Account, nil entries for missing accounts
	codes    *lru.Cache // common.Hash -> []byte

	lock sync.RWMutex

	errLock sync.Mutex
	dbErr   error
}

// NewDatabase creates a repository on top of the given key-value store.
func NewDatabase(disk ethdb.KeyValueStore) *Database {
	accounts, _ := lru.New(accountCacheSize)
	codes, _ := lru.New(codeCacheSize)
	return &Database{disk: disk, accounts: accounts, codes: codes}
}

// Error returns the first storage error encountered, if any.
func (db *Database) Error() error {
	db.errLock.Lock()
	defer db.errLock.Unlock()
	return db.dbErr
}

func (db *Database) setError(err error) {
	if err == nil {
		return
	}
	log.Error("State database failure", "err", err)
	db.errLock.Lock()
	defer db.errLock.Unlock()
	if db.dbErr == nil {
		db.dbErr = err
	}
}

// readAccount loads an account, nil if it does not exist. Callers must hold
// at least the read lock.
func (db *Database) readAccount(addr types.Address) *Account {
	if v, ok := db.accounts.Get(addr); ok {
		if v == nil {
			return nil
		}
		return v.(*Account)
	}
	blob, err := db.disk.Get(accountKey(addr))
	if err != nil {
		// Missing keys are reported as errors by every ethdb backend.
		db.accounts.Add(addr, nil)
		return nil
	}
	acc := new(Account)
	if err := rlp.DecodeBytes(blob, acc); err != nil {
		db.setError(fmt.Errorf("decode account %x: %w", addr, err))
		return nil
	}
	if acc.Balance == nil {
		acc.Balance = new(uint256.Int)
	}
	db.accounts.Add(addr, acc)
	return acc
}

func (db *Database) writeAccount(addr types.Address, acc *Account) {
	blob, err := rlp.EncodeToBytes(acc)
	if err != nil {
		db.setError(fmt.Errorf("encode account %x: %w", addr, err))
		return
	}
	if err := db.disk.Put(accountKey(addr), blob); err != nil {
		db.setError(fmt.Errorf("write account %x: %w", addr, err))
		return
	}
	db.accounts.Add(addr, acc)
}

// mutate applies fn to a copy of the account at addr, creating it if
// necessary, and persists the result.
func (db *Database) mutate(addr types.Address, fn func(acc *Account)) {
	db.lock.Lock()
	defer db.lock.Unlock()

	acc := db.readAccount(addr)
	if acc == nil {
		acc = newAccount()
	} else {
		acc = acc.copy()
	}
	fn(acc)
	db.writeAccount(addr, acc)
}

// wipeStorage removes every storage slot of addr. Callers must hold the
// write lock.
func (db *Database) wipeStorage(addr types.Address) {
	prefix := append(common.CopyBytes(storagePrefix), addr[:]...)
	it := db.disk.NewIterator(prefix, nil)
	defer it.Release()

	batch := db.disk.NewBatch()
	for it.Next() {
		if err := batch.Delete(common.CopyBytes(it.Key())); err != nil {
			db.setError(err)
			return
		}
	}
	if err := it.Error(); err != nil {
		db.setError(fmt.Errorf("iterate storage %x: %w", addr, err))
		return
	}
	if err := batch.Write(); err != nil {
		db.setError(fmt.Errorf("wipe storage %x: %w", addr, err))
	}
}

func (db *Database) Exist(addr types.Address) bool {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.readAccount(addr) != nil
}

func (db *Database) CreateAccount(addr types.Address) {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.wipeStorage(addr)
	db.writeAccount(addr, newAccount())
}

func (db *Database) DeleteAccount(addr types.Address) {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.wipeStorage(addr)
	if err := db.disk.Delete(accountKey(addr)); err != nil {
		db.setError(fmt.Errorf("delete account %x: %w", addr, err))
	}
	db.accounts.Add(addr, nil)
}

func (db *Database) GetNonce(addr types.Address) uint64 {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if acc := db.readAccount(addr); acc != nil {
		return acc.Nonce
	}
	return 0
}

func (db *Database) SetNonce(addr types.Address, nonce uint64) {
	db.mutate(addr, func(acc *Account) { acc.Nonce = nonce })
}

func (db *Database) GetBalance(addr types.Address) *uint256.Int {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if acc := db.readAccount(addr); acc != nil {
		return new(uint256.Int).Set(acc.Balance)
	}
	return new(uint256.Int)
}

func (db *Database) SetBalance(addr types.Address, amount *uint256.Int) {
	db.mutate(addr, func(acc *Account) { acc.Balance = new(uint256.Int).Set(amount) })
}

// GetCodeHash returns the code hash of addr, or the zero hash if the
// account does not exist.
func (db *Database) GetCodeHash(addr types.Address) common.Hash {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if acc := db.readAccount(addr); acc != nil {
		return acc.CodeHash
	}
	return common.Hash{}
}

// CodeByHash returns the code stored under hash.
func (db *Database) CodeByHash(hash common.Hash) []byte {
	if hash == EmptyCodeHash || hash == (common.Hash{}) {
		return nil
	}
	if v, ok := db.codes.Get(hash); ok {
		return v.([]byte)
	}
	code, err := db.disk.Get(codeKey(hash))
	if err != nil || len(code) == 0 {
		return nil
	}
	db.codes.Add(hash, code)
	return code
}

func (db *Database) GetCode(addr types.Address) []byte {
	return db.CodeByHash(db.GetCodeHash(addr))
}

func (db *Database) SetCode(addr types.Address, code []byte) {
	hash := CodeHash(code)
	if len(code) > 0 {
		if err := db.disk.Put(codeKey(hash), code); err != nil {
			db.setError(fmt.Errorf("write code %x: %w", hash, err))
			return
		}
		db.codes.Add(hash, common.CopyBytes(code))
	}
	db.mutate(addr, func(acc *Account) { acc.CodeHash = hash })
}

func (db *Database) GetStorage(addr types.Address, key types.Word) types.Word {
	db.lock.RLock()
	defer db.lock.RUnlock()

	blob, err := db.disk.Get(storageKey(addr, key))
	if err != nil || len(blob) == 0 {
		return types.ZeroWord
	}
	value, err := types.BytesToWord(blob)
	if err != nil {
		return types.ZeroWord
	}
	return value
}

func (db *Database) SetStorage(addr types.Address, key types.Word, value types.Word) {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.readAccount(addr) == nil {
		db.writeAccount(addr, newAccount())
	}
	var err error
	if value.IsZero() {
		err = db.disk.Delete(storageKey(addr, key))
	} else {
		err = db.disk.Put(storageKey(addr, key), value[:])
	}
	if err != nil {
		db.setError(fmt.Errorf("write storage %x/%x: %w", addr, key, err))
	}
}

// SetBlockHash records the canonical hash of a block number.
func (db *Database) SetBlockHash(number uint64, hash common.Hash) error {
	return db.disk.Put(blockHashKey(number), hash[:])
}

func (db *Database) BlockHash(number uint64) common.Hash {
	blob, err := db.disk.Get(blockHashKey(number))
	if err != nil {
		return common.Hash{}
	}
	return common.BytesToHash(blob)
}

func (db *Database) StartTracking() *Cache {
	return NewCache(db)
}

// ForEachAccount iterates every stored account in key order. Iteration
// stops when fn returns false.
func (db *Database) ForEachAccount(fn func(addr types.Address, acc *Account) bool) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	it := db.disk.NewIterator(accountPrefix, nil)
	defer it.Release()

	for it.Next() {
		key := it.Key()
		if len(key) != len(accountPrefix)+types.AddressLength {
			continue
		}
		acc := new(Account)
		if err := rlp.DecodeBytes(it.Value(), acc); err != nil {
			return fmt.Errorf("decode account %x: %w", key[1:], err)
		}
		if acc.Balance == nil {
			acc.Balance = new(uint256.Int)
		}
		if !fn(types.BytesToAddress(key[len(accountPrefix):]), acc) {
			break
		}
	}
	return it.Error()
}
