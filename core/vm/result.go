package vm

import (
	"fmt"

	"github.com/clydemeng/fvm/core/state"
)

// ResultCode is the outcome of executing a frame. Non-negative codes come
// from the engine; negative codes are produced before or around it.
type ResultCode int32

const (
	Success                  ResultCode = 0
	Failure                  ResultCode = 1
	OutOfEnergy              ResultCode = 2
	BadInstruction           ResultCode = 3
	BadJumpDestination       ResultCode = 4
	StackOverflow            ResultCode = 5
	StackUnderflow           ResultCode = 6
	Revert                   ResultCode = 7
	StaticModeError          ResultCode = 8
	PrecompileFailure        ResultCode = 9
	IncompatibleContractCall ResultCode = 10
	Abort                    ResultCode = 11

	VMRejected          ResultCode = -1
	VMInternalError     ResultCode = -2
	InvalidNonce        ResultCode = -3
	InvalidEnergyLimit  ResultCode = -4
	InsufficientBalance ResultCode = -5
)

var resultCodeNames = map[ResultCode]string{
	Success:                  "SUCCESS",
	Failure:                  "FAILURE",
	OutOfEnergy:              "OUT_OF_NRG",
	BadInstruction:           "BAD_INSTRUCTION",
	BadJumpDestination:       "BAD_JUMP_DESTINATION",
	StackOverflow:            "STACK_OVERFLOW",
	StackUnderflow:           "STACK_UNDERFLOW",
	Revert:                   "REVERT",
	StaticModeError:          "STATIC_MODE_ERROR",
	PrecompileFailure:        "PRECOMPILE_FAILURE",
	IncompatibleContractCall: "INCOMPATIBLE_CONTRACT_CALL",
	Abort:                    "ABORT",
	VMRejected:               "VM_REJECTED",
	VMInternalError:          "VM_INTERNAL_ERROR",
	InvalidNonce:             "INVALID_NONCE",
	InvalidEnergyLimit:       "INVALID_NRG_LIMIT",
	InsufficientBalance:      "INSUFFICIENT_BALANCE",
}

func (c ResultCode) String() string {
	if name, ok := resultCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ResultCode(%d)", int32(c))
}

// IsSuccess reports whether the frame completed normally.
func (c ResultCode) IsSuccess() bool {
	return c == Success
}

// IsRejected reports whether the transaction was refused before any code
// ran. Rejected transactions leave no trace in state.
func (c ResultCode) IsRejected() bool {
	switch c {
	case VMRejected, InvalidNonce, InvalidEnergyLimit, InsufficientBalance:
		return true
	}
	return false
}

// IsFailed reports an accepted transaction that did not succeed.
func (c ResultCode) IsFailed() bool {
	return !c.IsSuccess() && !c.IsRejected()
}

// Result is the outcome of one frame. State is only set on top-level
// results and holds every change the transaction made, ready to be flushed
// into the caller's repository.
type Result struct {
	Code            ResultCode
	EnergyRemaining uint64
	Output          []byte
	State           *state.Cache
}

// NewResult creates a result without a state layer.
func NewResult(code ResultCode, energy uint64, output []byte) *Result {
	return &Result{Code: code, EnergyRemaining: energy, Output: output}
}

func (r *Result) String() string {
	return fmt.Sprintf("{code=%s energy=%d output=%x}", r.Code, r.EnergyRemaining, r.Output)
}
