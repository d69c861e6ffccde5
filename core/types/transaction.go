package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/blake2b"
)

// Transaction carries the fields the executor needs to run one external
// transaction. To is nil for contract creation; Data then holds the
// initialization code.
type Transaction struct {
	Sender      Address  `json:"from"`
	To          *Address `json:"to"`
	Nonce       uint64   `json:"nonce"`
	Value       Word     `json:"value"`
	Data        []byte   `json:"data"`
	EnergyLimit uint64   `json:"energyLimit"`
	EnergyPrice Word     `json:"energyPrice"`
}

// IsContractCreation reports whether the transaction deploys a contract.
func (tx *Transaction) IsContractCreation() bool {
	return tx.To == nil
}

// Destination returns the recipient, or the zero address for creations.
func (tx *Transaction) Destination() Address {
	if tx.To == nil {
		return Address{}
	}
	return *tx.To
}

// Hash returns the blake2b-256 digest of the RLP encoding of the
// transaction fields.
func (tx *Transaction) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes([]interface{}{
		tx.Sender, tx.To, tx.Nonce, tx.Value, tx.Data, tx.EnergyLimit, tx.EnergyPrice,
	})
	if err != nil {
		// All fields are fixed-size arrays, integers or byte slices.
		panic(err)
	}
	return common.Hash(blake2b.Sum256(enc))
}

// Header is the subset of block metadata visible to contract execution.
type Header struct {
	ParentHash  common.Hash `json:"parentHash"`
	Coinbase    Address     `json:"miner"`
	Number      uint64      `json:"number"`
	Timestamp   uint64      `json:"timestamp"`
	EnergyLimit uint64      `json:"energyLimit"`
	Difficulty  Word        `json:"difficulty"`
}
