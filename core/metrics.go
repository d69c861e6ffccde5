package core

import "github.com/ethereum/go-ethereum/metrics"

var (
	executedTxMeter = metrics.NewRegisteredMeter("fvm/tx/executed", nil)
	failedTxMeter   = metrics.NewRegisteredMeter("fvm/tx/failed", nil)
	rejectedTxMeter = metrics.NewRegisteredMeter("fvm/tx/rejected", nil)
	createMeter     = metrics.NewRegisteredMeter("fvm/frame/create", nil)
	collisionMeter  = metrics.NewRegisteredMeter("fvm/frame/collision", nil)
	precompileMeter = metrics.NewRegisteredMeter("fvm/frame/precompile", nil)
	engineErrMeter  = metrics.NewRegisteredMeter("fvm/frame/internalerror", nil)

	executionTimer = metrics.NewRegisteredTimer("fvm/tx/execution", nil)
	blockTimer     = metrics.NewRegisteredTimer("fvm/block/process", nil)
)
