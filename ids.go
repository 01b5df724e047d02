package canhal

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TxIDs returns the tracked transmit arbitration ids in ascending order.
func (itf *Interface) TxIDs() []uint32 {
	itf.txMu.RLock()
	ids := maps.Keys(itf.tx)
	itf.txMu.RUnlock()

	slices.Sort(ids)
	return ids
}

// RxIDs returns the arbitration ids seen on the bus in ascending order.
func (itf *Interface) RxIDs() []uint32 {
	itf.rxMu.RLock()
	ids := maps.Keys(itf.rx)
	itf.rxMu.RUnlock()

	slices.Sort(ids)
	return ids
}
