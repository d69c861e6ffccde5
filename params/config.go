// Package params holds the protocol constants and tunable rules of the
// transaction executor.
package params

import "fmt"

const (
	// MaxCallDepth is the hard bound on nested call frames.
	MaxCallDepth int32 = 128

	TxEnergyMin     uint64 = 21_000    // Minimum energy limit of a call transaction
	TxEnergyMax     uint64 = 2_000_000 // Maximum energy limit of a call transaction
	CreateEnergyMin uint64 = 200_000   // Minimum energy limit of a contract creation
	CreateEnergyMax uint64 = 5_000_000 // Maximum energy limit of a contract creation

	TxBaseCost        uint64 = 21_000  // Paid by every transaction
	TxCreateCost      uint64 = 200_000 // Paid on top of the base cost by creations
	TxDataZeroCost    uint64 = 4       // Per zero byte of transaction data
	TxDataNonZeroCost uint64 = 64      // Per non-zero byte of transaction data

	// CodeDepositCost is the energy that must remain after a successful
	// creation for its code to be stored.
	CodeDepositCost uint64 = 1_000
)

// Config carries the rules the executor enforces. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	TxEnergyMin     uint64
	TxEnergyMax     uint64
	CreateEnergyMin uint64
	CreateEnergyMax uint64

	TxBaseCost        uint64
	TxCreateCost      uint64
	TxDataZeroCost    uint64
	TxDataNonZeroCost uint64
	CodeDepositCost   uint64

	MaxCallDepth int32

	// Fork040Block switches the engine to the v1 revision; nil = never.
	Fork040Block *uint64 `toml:",omitempty"`
}

// DefaultConfig contains the mainnet protocol rules.
var DefaultConfig = Config{
	TxEnergyMin:       TxEnergyMin,
	TxEnergyMax:       TxEnergyMax,
	CreateEnergyMin:   CreateEnergyMin,
	CreateEnergyMax:   CreateEnergyMax,
	TxBaseCost:        TxBaseCost,
	TxCreateCost:      TxCreateCost,
	TxDataZeroCost:    TxDataZeroCost,
	TxDataNonZeroCost: TxDataNonZeroCost,
	CodeDepositCost:   CodeDepositCost,
	MaxCallDepth:      MaxCallDepth,
}

// TestConfig has no intrinsic costs and permissive energy bounds, so tests
// can reason about energy without accounting for the base charge.
var TestConfig = Config{
	TxEnergyMin:     0,
	TxEnergyMax:     10_000_000,
	CreateEnergyMin: 0,
	CreateEnergyMax: 10_000_000,
	CodeDepositCost: CodeDepositCost,
	MaxCallDepth:    MaxCallDepth,
}

// IsFork040 reports whether the fork is active at the given block.
func (c *Config) IsFork040(number uint64) bool {
	return c.Fork040Block != nil && *c.Fork040Block <= number
}

// IsValidEnergyLimit checks the energy limit against the bounds for the
// transaction kind.
func (c *Config) IsValidEnergyLimit(limit uint64, create bool) bool {
	if create {
		return limit >= c.CreateEnergyMin && limit <= c.CreateEnergyMax
	}
	return limit >= c.TxEnergyMin && limit <= c.TxEnergyMax
}

// IntrinsicCost is the energy charged before any code runs.
func (c *Config) IntrinsicCost(data []byte, create bool) uint64 {
	cost := c.TxBaseCost
	if create {
		cost += c.TxCreateCost
	}
	for _, b := range data {
		if b == 0 {
			cost += c.TxDataZeroCost
		} else {
			cost += c.TxDataNonZeroCost
		}
	}
	return cost
}

// Validate rejects configurations that cannot admit any transaction.
func (c *Config) Validate() error {
	if c.TxEnergyMin > c.TxEnergyMax {
		return fmt.Errorf("invalid call energy bounds: min %d > max %d", c.TxEnergyMin, c.TxEnergyMax)
	}
	if c.CreateEnergyMin > c.CreateEnergyMax {
		return fmt.Errorf("invalid create energy bounds: min %d > max %d", c.CreateEnergyMin, c.CreateEnergyMax)
	}
	if c.MaxCallDepth <= 0 {
		return fmt.Errorf("invalid max call depth %d", c.MaxCallDepth)
	}
	return nil
}

func (c *Config) String() string {
	fork := "never"
	if c.Fork040Block != nil {
		fork = fmt.Sprint(*c.Fork040Block)
	}
	return fmt.Sprintf("{call: [%d,%d] create: [%d,%d] deposit: %d depth: %d fork040: %s}",
		c.TxEnergyMin, c.TxEnergyMax, c.CreateEnergyMin, c.CreateEnergyMax, c.CodeDepositCost, c.MaxCallDepth, fork)
}
