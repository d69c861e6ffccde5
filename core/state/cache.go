package state

import (
	"bytes"
	"slices"

	"github.com/clydemeng/fvm/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// cachedAccount is the view of one account inside a Cache layer. Account
// fields are copied from the parent on first write; storage only holds the
// slots written in this layer.
type cachedAccount struct {
	exists  bool
	nonce   uint64
	balance *uint256.Int
	code    []byte
	codeSet bool

	// reset is set when the account was created or deleted in this layer;
	// the parent's code and storage are hidden from then on.
	reset   bool
	storage map[types.Word]types.Word
}

// Cache is a copy-on-write overlay over a parent Repository. Nothing
// reaches the parent until Flush; Rollback drops every pending write.
// A Cache is not safe for concurrent use.
type Cache struct {
	parent   Repository
	accounts map[types.Address]*cachedAccount
}

// NewCache opens an empty layer over parent.
func NewCache(parent Repository) *Cache {
	return &Cache{
		parent:   parent,
		accounts: make(map[types.Address]*cachedAccount),
	}
}

// Parent returns the repository this layer flushes into.
func (c *Cache) Parent() Repository {
	return c.parent
}

// StartTracking opens a nested layer.
func (c *Cache) StartTracking() *Cache {
	return NewCache(c)
}

// account returns the writable entry for addr, copying the parent's
// account fields on first touch.
func (c *Cache) account(addr types.Address) *cachedAccount {
	if acc, ok := c.accounts[addr]; ok {
		return acc
	}
	acc := &cachedAccount{
		exists:  c.parent.Exist(addr),
		nonce:   c.parent.GetNonce(addr),
		balance: new(uint256.Int).Set(c.parent.GetBalance(addr)),
		storage: make(map[types.Word]types.Word),
	}
	c.accounts[addr] = acc
	return acc
}

func (c *Cache) Exist(addr types.Address) bool {
	if acc, ok := c.accounts[addr]; ok {
		return acc.exists
	}
	return c.parent.Exist(addr)
}

// CreateAccount (re)initializes addr with zero nonce, zero balance, no code
// and empty storage.
func (c *Cache) CreateAccount(addr types.Address) {
	c.accounts[addr] = &cachedAccount{
		exists:  true,
		balance: new(uint256.Int),
		codeSet: true,
		reset:   true,
		storage: make(map[types.Word]types.Word),
	}
}

func (c *Cache) DeleteAccount(addr types.Address) {
	c.accounts[addr] = &cachedAccount{
		balance: new(uint256.Int),
		codeSet: true,
		reset:   true,
		storage: make(map[types.Word]types.Word),
	}
}

func (c *Cache) GetNonce(addr types.Address) uint64 {
	if acc, ok := c.accounts[addr]; ok {
		return acc.nonce
	}
	return c.parent.GetNonce(addr)
}

func (c *Cache) SetNonce(addr types.Address, nonce uint64) {
	acc := c.account(addr)
	acc.exists = true
	acc.nonce = nonce
}

// GetBalance returns a copy of the balance of addr.
func (c *Cache) GetBalance(addr types.Address) *uint256.Int {
	if acc, ok := c.accounts[addr]; ok {
		return new(uint256.Int).Set(acc.balance)
	}
	return c.parent.GetBalance(addr)
}

func (c *Cache) SetBalance(addr types.Address, amount *uint256.Int) {
	acc := c.account(addr)
	acc.exists = true
	acc.balance = new(uint256.Int).Set(amount)
}

func (c *Cache) GetCode(addr types.Address) []byte {
	if acc, ok := c.accounts[addr]; ok && acc.codeSet {
		return acc.code
	}
	return c.parent.GetCode(addr)
}

func (c *Cache) SetCode(addr types.Address, code []byte) {
	acc := c.account(addr)
	acc.exists = true
	acc.code = common.CopyBytes(code)
	acc.codeSet = true
}

func (c *Cache) GetStorage(addr types.Address, key types.Word) types.Word {
	if acc, ok := c.accounts[addr]; ok {
		if v, ok := acc.storage[key]; ok {
			return v
		}
		if acc.reset {
			return types.ZeroWord
		}
	}
	return c.parent.GetStorage(addr, key)
}

func (c *Cache) SetStorage(addr types.Address, key types.Word, value types.Word) {
	acc := c.account(addr)
	acc.exists = true
	acc.storage[key] = value
}

func (c *Cache) BlockHash(number uint64) common.Hash {
	return c.parent.BlockHash(number)
}

// TouchedAccounts returns the addresses with pending writes, sorted.
func (c *Cache) TouchedAccounts() []types.Address {
	addrs := make([]types.Address, 0, len(c.accounts))
	for addr := range c.accounts {
		addrs = append(addrs, addr)
	}
	slices.SortFunc(addrs, func(a, b types.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return addrs
}

// Flush writes every pending change into the parent and empties the layer.
// The layer stays usable afterwards.
func (c *Cache) Flush() {
	for _, addr := range c.TouchedAccounts() {
		acc := c.accounts[addr]
		if !acc.exists {
			c.parent.DeleteAccount(addr)
			continue
		}
		if acc.reset {
			c.parent.CreateAccount(addr)
		}
		c.parent.SetNonce(addr, acc.nonce)
		c.parent.SetBalance(addr, acc.balance)
		if acc.codeSet {
			c.parent.SetCode(addr, acc.code)
		}
		keys := make([]types.Word, 0, len(acc.storage))
		for key := range acc.storage {
			keys = append(keys, key)
		}
		slices.SortFunc(keys, func(a, b types.Word) int {
			return bytes.Compare(a[:], b[:])
		})
		for _, key := range keys {
			c.parent.SetStorage(addr, key, acc.storage[key])
		}
	}
	c.accounts = make(map[types.Address]*cachedAccount)
}

// Rollback discards every pending change.
func (c *Cache) Rollback() {
	c.accounts = make(map[types.Address]*cachedAccount)
}
