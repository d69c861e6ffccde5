package types

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Log is an event emitted by contract code through the LOG host call.
type Log struct {
	Address Address       `json:"address"`
	Topics  []common.Hash `json:"topics"`
	Data    []byte        `json:"data"`
}

// NewLog copies topics and data so the log does not alias engine buffers.
func NewLog(addr Address, topics []common.Hash, data []byte) *Log {
	l := &Log{Address: addr, Data: common.CopyBytes(data)}
	if len(topics) > 0 {
		l.Topics = append([]common.Hash(nil), topics...)
	}
	return l
}

// CreateBloom folds the address and topics of all logs into a bloom filter.
func CreateBloom(logs []*Log) gethtypes.Bloom {
	var bloom gethtypes.Bloom
	for _, l := range logs {
		bloom.Add(l.Address[:])
		for _, topic := range l.Topics {
			bloom.Add(topic[:])
		}
	}
	return bloom
}
