package vm

import (
	"fmt"

	"github.com/clydemeng/fvm/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// CallKind selects the balance-transfer and code-context rules of a frame.
type CallKind int32

const (
	CALL         CallKind = 0
	DELEGATECALL CallKind = 1
	CALLCODE     CallKind = 2
	CREATE       CallKind = 3
)

func (k CallKind) String() string {
	switch k {
	case CALL:
		return "CALL"
	case DELEGATECALL:
		return "DELEGATECALL"
	case CALLCODE:
		return "CALLCODE"
	case CREATE:
		return "CREATE"
	}
	return fmt.Sprintf("CallKind(%d)", int32(k))
}

// Valid reports whether k is one of the known call kinds.
func (k CallKind) Valid() bool {
	return k >= CALL && k <= CREATE
}

// KeepsCodeContext reports whether the callee code runs against the
// caller's own account.
func (k CallKind) KeepsCodeContext() bool {
	return k == DELEGATECALL || k == CALLCODE
}

// FlagStatic marks a frame that may not modify state.
const FlagStatic uint32 = 1

// BlockContext carries the block metadata visible to every frame of a
// transaction. It is copied unchanged from the root frame.
type BlockContext struct {
	Coinbase    types.Address
	Number      uint64
	Timestamp   uint64
	EnergyLimit uint64
	Difficulty  types.Word
}

// NewBlockContext extracts the frame-visible metadata of a header.
func NewBlockContext(header *types.Header) BlockContext {
	return BlockContext{
		Coinbase:    header.Coinbase,
		Number:      header.Number,
		Timestamp:   header.Timestamp,
		EnergyLimit: header.EnergyLimit,
		Difficulty:  header.Difficulty,
	}
}

// TxContext holds the fields every frame inherits from the transaction
// rather than from its call message.
type TxContext struct {
	TxHash      common.Hash
	Origin      types.Address
	EnergyPrice types.Word
	Block       BlockContext
}

// Message is the per-frame part of a context, as carried by the
// call-message wire encoding.
type Message struct {
	Destination types.Address
	Sender      types.Address
	Energy      uint64
	Value       types.Word
	Data        []byte
	Depth       int32
	Kind        CallKind
	Flags       uint32
}

// ExecutionContext describes one call frame. Apart from the destination,
// which is rewritten at most when a CALLCODE/DELEGATECALL message is decoded
// and when CREATE assigns the new address, a context is not modified after
// construction.
type ExecutionContext struct {
	TxContext

	Sender types.Address
	Energy uint64
	Value  types.Word
	Data   []byte
	Depth  int32
	Kind   CallKind
	Flags  uint32

	destination     types.Address
	codeAddress     types.Address
	contractAddress *types.Address

	sideEffects *SideEffects
}

// NewExecutionContext assembles a frame from the inherited transaction
// fields and a call message.
func NewExecutionContext(tx TxContext, msg Message) *ExecutionContext {
	return &ExecutionContext{
		TxContext:   tx,
		Sender:      msg.Sender,
		Energy:      msg.Energy,
		Value:       msg.Value,
		Data:        msg.Data,
		Depth:       msg.Depth,
		Kind:        msg.Kind,
		Flags:       msg.Flags,
		destination: msg.Destination,
		codeAddress: msg.Destination,
		sideEffects: NewSideEffects(),
	}
}

// Destination is the account whose storage and balance the frame acts on.
func (c *ExecutionContext) Destination() types.Address {
	return c.destination
}

// SetDestination redirects the frame to another account. The code address
// is left untouched, so CALLCODE and DELEGATECALL keep running the callee
// code against the caller's account.
func (c *ExecutionContext) SetDestination(addr types.Address) {
	c.destination = addr
}

// CodeAddress is the account the frame's code is loaded from.
func (c *ExecutionContext) CodeAddress() types.Address {
	return c.codeAddress
}

// ContractAddress returns the account being created, nil unless the frame
// is a CREATE whose address has been assigned.
func (c *ExecutionContext) ContractAddress() *types.Address {
	return c.contractAddress
}

// SetContractAddress assigns the address computed for a CREATE frame. It
// becomes both the destination and the contract address.
func (c *ExecutionContext) SetContractAddress(addr types.Address) {
	c.destination = addr
	c.codeAddress = addr
	c.contractAddress = &addr
}

// SideEffects returns the ledger of effects produced by this frame.
func (c *ExecutionContext) SideEffects() *SideEffects {
	return c.sideEffects
}

// IsStatic reports whether the frame runs in static mode.
func (c *ExecutionContext) IsStatic() bool {
	return c.Flags&FlagStatic != 0
}

// Message returns the dynamic fields of the frame.
func (c *ExecutionContext) Message() Message {
	return Message{
		Destination: c.destination,
		Sender:      c.Sender,
		Energy:      c.Energy,
		Value:       c.Value,
		Data:        c.Data,
		Depth:       c.Depth,
		Kind:        c.Kind,
		Flags:       c.Flags,
	}
}

// Child builds the context of a nested frame: transaction fields come from
// the receiver, everything else from msg. For CALLCODE and DELEGATECALL the
// child keeps acting on the receiver's account while loading code from the
// message destination.
func (c *ExecutionContext) Child(msg Message) *ExecutionContext {
	child := NewExecutionContext(c.TxContext, msg)
	if msg.Kind.KeepsCodeContext() {
		child.SetDestination(c.destination)
	}
	return child
}

func (c *ExecutionContext) String() string {
	return fmt.Sprintf("{%s depth=%d from=%s to=%s code=%s energy=%d value=%s data=%d}",
		c.Kind, c.Depth, c.Sender.TerminalString(), c.destination.TerminalString(), c.codeAddress.TerminalString(),
		c.Energy, c.Value.Big(), len(c.Data))
}
