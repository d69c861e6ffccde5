package fvmbridge

import "github.com/ethereum/go-ethereum/metrics"

var (
	hostCallMeter    = metrics.NewRegisteredMeter("fvm/bridge/hostcalls", nil)
	nestedCallMeter  = metrics.NewRegisteredMeter("fvm/bridge/calls", nil)
	bridgeDepthGauge = metrics.NewRegisteredGauge("fvm/bridge/depth", nil)

	storageReadCounter = metrics.NewRegisteredCounter("fvm/bridge/storage/reads", nil)
	handleCounter      = metrics.NewRegisteredCounter("fvm/bridge/handles", nil)
)

// ResetProfileCounters zeros the storage read counter.
func ResetProfileCounters() {
	storageReadCounter.Clear()
}

// ProfileCounters returns (storageReads, liveHandles). Both stay zero
// unless metrics collection is enabled.
func ProfileCounters() (int64, int64) {
	return storageReadCounter.Snapshot().Count(), handleCounter.Snapshot().Count()
}
