//go:build !cgo || !fastvm

package fvmbridge

import "github.com/clydemeng/fvm/core/vm"

// EngineName identifies the engine compiled into this binary.
const EngineName = "none"

// NewEngine reports that no native engine is linked in. Callers supply
// their own vm.Engine instead.
func NewEngine() (vm.Engine, error) {
	return nil, ErrEngineUnavailable
}
