//go:build cgo && fastvm

package fvmbridge

/*
#cgo LDFLAGS: -lfastvm
#include <stdint.h>
#include <stdlib.h>

typedef struct {
    uint8_t* data;
    uint32_t len;
} fvm_bytes;

fvm_bytes fvm_run(uintptr_t handle, const uint8_t* code, uint32_t code_len, const uint8_t* ctx, uint32_t ctx_len, int32_t revision);
void fvm_free(fvm_bytes out);
*/
import "C"

import (
	"unsafe"

	"github.com/clydemeng/fvm/core/vm"
)

// EngineName identifies the engine compiled into this binary.
const EngineName = "fastvm"

type nativeEngine struct{}

// NewEngine returns the cgo-backed engine.
func NewEngine() (vm.Engine, error) {
	return nativeEngine{}, nil
}

// Run registers host, hands the frame to the native engine and copies the
// encoded result back into Go memory.
func (nativeEngine) Run(host vm.Host, code []byte, ctx []byte, rev vm.Revision) []byte {
	h := RegisterHost(host)
	defer ReleaseHost(h)

	out := C.fvm_run(C.uintptr_t(h), bytesPtr(code), C.uint32_t(len(code)), bytesPtr(ctx), C.uint32_t(len(ctx)), C.int32_t(rev))
	defer C.fvm_free(out)
	if out.data == nil {
		return vm.NewResult(vm.VMInternalError, 0, nil).Encode()
	}
	return C.GoBytes(unsafe.Pointer(out.data), C.int(out.len))
}

func bytesPtr(b []byte) *C.uint8_t {
	if len(b) == 0 {
		return nil
	}
	return (*C.uint8_t)(unsafe.Pointer(&b[0]))
}
