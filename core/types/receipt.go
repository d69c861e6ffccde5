package types

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	// ReceiptStatusFailed is the status code of a transaction that was
	// accepted but did not execute successfully.
	ReceiptStatusFailed = uint64(0)
	// ReceiptStatusSuccessful is the status code of a successful transaction.
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt summarizes one applied transaction inside a block.
type Receipt struct {
	TxHash               common.Hash            `json:"transactionHash"`
	TransactionIndex     uint                   `json:"transactionIndex"`
	Status               uint64                 `json:"status"`
	ResultCode           int32                  `json:"resultCode"`
	EnergyUsed           uint64                 `json:"energyUsed"`
	CumulativeEnergyUsed uint64                 `json:"cumulativeEnergyUsed"`
	Fee                  Word                   `json:"fee"`
	ContractAddress      *Address               `json:"contractAddress"`
	Output               []byte                 `json:"output"`
	Logs                 []*Log                 `json:"logs"`
	InternalTxs          []*InternalTransaction `json:"internalTransactions"`
	Bloom                gethtypes.Bloom        `json:"logsBloom"`
}
