//go:build cgo && fastvm

package fvmbridge

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"unsafe"

	"github.com/clydemeng/fvm/core/types"
	"github.com/clydemeng/fvm/core/vm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Return codes of the callbacks. The native engine turns any negative code
// into VM_INTERNAL_ERROR.
const (
	cbOK            = 0
	cbUnknownHandle = -1
	cbPanic         = -2
)

// guard resolves the handle and runs fn, converting a Go panic into an
// error code: unwinding through C frames is not possible.
func guard(handle C.uintptr_t, fn func(host vm.Host) C.int) (ret C.int) {
	host, ok := lookup(uintptr(handle))
	if !ok {
		return cbUnknownHandle
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("Engine callback panicked", "handle", uintptr(handle), "err", r)
			ret = cbPanic
		}
	}()
	return fn(host)
}

func cAddress(p *C.uint8_t) types.Address {
	var out types.Address
	C.memcpy(unsafe.Pointer(&out[0]), unsafe.Pointer(p), types.AddressLength)
	return out
}

func cWord(p *C.uint8_t) types.Word {
	var out types.Word
	C.memcpy(unsafe.Pointer(&out[0]), unsafe.Pointer(p), types.WordLength)
	return out
}

func putWord(p *C.uint8_t, w types.Word) {
	C.memcpy(unsafe.Pointer(p), unsafe.Pointer(&w[0]), types.WordLength)
}

// putBytes hands b to the engine in C memory; the engine frees it.
func putBytes(b []byte, outPtr *unsafe.Pointer, outLen *C.uint32_t) {
	if len(b) == 0 {
		*outPtr = nil
		*outLen = 0
		return
	}
	*outPtr = C.CBytes(b)
	*outLen = C.uint32_t(len(b))
}

//export fvm_account_exists
func fvm_account_exists(handle C.uintptr_t, addr *C.uint8_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		if host.AccountExists(cAddress(addr)) {
			return 1
		}
		return cbOK
	})
}

//export fvm_get_balance
func fvm_get_balance(handle C.uintptr_t, addr *C.uint8_t, out *C.uint8_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		putWord(out, host.GetBalance(cAddress(addr)))
		return cbOK
	})
}

//export fvm_increase_balance
func fvm_increase_balance(handle C.uintptr_t, addr *C.uint8_t, amount *C.uint8_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		host.IncreaseBalance(cAddress(addr), cWord(amount))
		return cbOK
	})
}

//export fvm_get_nonce
func fvm_get_nonce(handle C.uintptr_t, addr *C.uint8_t, out *C.uint64_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		*out = C.uint64_t(host.GetNonce(cAddress(addr)))
		return cbOK
	})
}

//export fvm_get_code
func fvm_get_code(handle C.uintptr_t, addr *C.uint8_t, outPtr *unsafe.Pointer, outLen *C.uint32_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		putBytes(host.GetCode(cAddress(addr)), outPtr, outLen)
		return cbOK
	})
}

//export fvm_put_code
func fvm_put_code(handle C.uintptr_t, addr *C.uint8_t, code *C.uint8_t, codeLen C.uint32_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		host.PutCode(cAddress(addr), C.GoBytes(unsafe.Pointer(code), C.int(codeLen)))
		return cbOK
	})
}

//export fvm_get_storage
func fvm_get_storage(handle C.uintptr_t, addr *C.uint8_t, key *C.uint8_t, out *C.uint8_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		putWord(out, host.GetStorage(cAddress(addr), cWord(key)))
		return cbOK
	})
}

//export fvm_put_storage
func fvm_put_storage(handle C.uintptr_t, addr *C.uint8_t, key *C.uint8_t, value *C.uint8_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		host.PutStorage(cAddress(addr), cWord(key), cWord(value))
		return cbOK
	})
}

//export fvm_selfdestruct
func fvm_selfdestruct(handle C.uintptr_t, owner *C.uint8_t, beneficiary *C.uint8_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		host.SelfDestruct(cAddress(owner), cAddress(beneficiary))
		return cbOK
	})
}

//export fvm_log
func fvm_log(handle C.uintptr_t, addr *C.uint8_t, topics *C.uint8_t, numTopics C.uint32_t, data *C.uint8_t, dataLen C.uint32_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		raw := C.GoBytes(unsafe.Pointer(topics), C.int(numTopics)*common.HashLength)
		hashes := make([]common.Hash, numTopics)
		for i := range hashes {
			hashes[i] = common.BytesToHash(raw[i*common.HashLength : (i+1)*common.HashLength])
		}
		host.Log(cAddress(addr), hashes, C.GoBytes(unsafe.Pointer(data), C.int(dataLen)))
		return cbOK
	})
}

//export fvm_block_hash
func fvm_block_hash(handle C.uintptr_t, number C.uint64_t, out *C.uint8_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		h := host.BlockHash(uint64(number))
		C.memcpy(unsafe.Pointer(out), unsafe.Pointer(&h[0]), common.HashLength)
		return cbOK
	})
}

//export fvm_call
func fvm_call(handle C.uintptr_t, msg *C.uint8_t, msgLen C.uint32_t, outPtr *unsafe.Pointer, outLen *C.uint32_t) C.int {
	return guard(handle, func(host vm.Host) C.int {
		putBytes(host.Call(C.GoBytes(unsafe.Pointer(msg), C.int(msgLen))), outPtr, outLen)
		return cbOK
	})
}
