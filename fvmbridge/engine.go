package fvmbridge

import "errors"

// ErrEngineUnavailable is returned by NewEngine when the binary was built
// without the native engine.
var ErrEngineUnavailable = errors.New("native engine not available (build with cgo and -tags fastvm)")
