package fvmbridge

import (
	"sync"
	"sync/atomic"

	"github.com/clydemeng/fvm/core/vm"
)

// handleMap keeps a global registry of the hosts that the native engine may
// call back into. The key type is `uintptr` because that's what cgo uses
// when passing opaque pointers around.
var handleMap sync.Map // map[uintptr]vm.Host

// handleSeq yields unique, non-zero handles. Zero is reserved for "null".
var handleSeq atomic.Uintptr

// RegisterHost registers a host for the duration of one engine run and
// returns a handle that can safely cross the FFI boundary.
func RegisterHost(host vm.Host) uintptr {
	if host == nil {
		return 0
	}
	h := handleSeq.Add(1)
	handleMap.Store(h, host)
	handleCounter.Inc(1)
	return h
}

// ReleaseHost removes a registered handle. Callbacks using it afterwards
// fail with an error code.
func ReleaseHost(h uintptr) {
	if _, ok := handleMap.LoadAndDelete(h); ok {
		handleCounter.Dec(1)
	}
}

// lookup fetches the host registered under h.
func lookup(h uintptr) (vm.Host, bool) {
	if v, ok := handleMap.Load(h); ok {
		return v.(vm.Host), true
	}
	return nil, false
}
