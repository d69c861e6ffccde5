package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Notes attached to internal transactions.
const (
	NoteCall         = "call"
	NoteCreate       = "create"
	NoteSelfDestruct = "selfdestruct"
)

// InternalTransaction records a value or call transfer caused by contract
// code rather than by the originating transaction. Records are appended
// when a call is initiated and only ever flagged, never removed.
type InternalTransaction struct {
	ParentHash  common.Hash `json:"parentHash"`
	Depth       int32       `json:"depth"`
	Sender      Address     `json:"from"`
	Destination *Address    `json:"to"` // nil for the creation event
	Nonce       uint64      `json:"nonce"`
	Value       Word        `json:"value"`
	Data        []byte      `json:"data"`
	Note        string      `json:"note"`
	Creation    bool        `json:"creation"`
	Rejected    bool        `json:"rejected"`
}

// NewInternalTransaction builds an internal transaction record. A nil
// destination denotes a contract creation event.
func NewInternalTransaction(parent common.Hash, depth int32, from Address, to *Address, nonce uint64, value Word, data []byte, note string) *InternalTransaction {
	tx := &InternalTransaction{
		ParentHash: parent,
		Depth:      depth,
		Sender:     from,
		Nonce:      nonce,
		Value:      value,
		Data:       common.CopyBytes(data),
		Note:       note,
		Creation:   to == nil,
	}
	if to != nil {
		dst := *to
		tx.Destination = &dst
	}
	return tx
}

// MarkRejected flags the transaction as belonging to a failed frame.
func (tx *InternalTransaction) MarkRejected() {
	tx.Rejected = true
}

func (tx *InternalTransaction) String() string {
	to := "<create>"
	if tx.Destination != nil {
		to = tx.Destination.Hex()
	}
	return fmt.Sprintf("itx(%s %s -> %s, nonce=%d, value=%s, rejected=%t)", tx.Note, tx.Sender.Hex(), to, tx.Nonce, tx.Value.Big(), tx.Rejected)
}
