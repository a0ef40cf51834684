package router

import "sync/atomic"

// FeatureFlags is the immutable snapshot the stdin command parser publishes
// and the validator fan-out reads once per batch. Re-architected from the
// original's mutable globals (DB_STORAGE_CHECK and friends) per the design
// note calling for an atomic snapshot with a single publisher.
type FeatureFlags struct {
	DBStorageOn   bool
	IoTTicketOn   bool
	BatteryDemoOn bool
	BatteryIDs    map[int64]struct{}
}

// FlagStore holds the current snapshot behind an atomic pointer so readers
// never observe a torn struct during a concurrent publish.
type FlagStore struct {
	current atomic.Pointer[FeatureFlags]
}

// NewFlagStore seeds the store from the process's static configuration.
func NewFlagStore(dbStorageOn, iotTicketOn, batteryDemoOn bool, batteryIDs []int64) *FlagStore {
	ids := make(map[int64]struct{}, len(batteryIDs))
	for _, id := range batteryIDs {
		ids[id] = struct{}{}
	}
	fs := &FlagStore{}
	fs.current.Store(&FeatureFlags{
		DBStorageOn:   dbStorageOn,
		IoTTicketOn:   iotTicketOn,
		BatteryDemoOn: batteryDemoOn,
		BatteryIDs:    ids,
	})
	return fs
}

// Load returns the current snapshot. Safe to call concurrently with Store.
func (fs *FlagStore) Load() *FeatureFlags {
	return fs.current.Load()
}

// Store publishes a new snapshot derived from the current one via mutate.
// mutate must not retain or mutate the FeatureFlags it is given; it should
// return a fresh value.
func (fs *FlagStore) Store(mutate func(FeatureFlags) FeatureFlags) {
	prev := *fs.current.Load()
	// copy the id set so the mutator can't corrupt the snapshot readers
	// may still be holding.
	ids := make(map[int64]struct{}, len(prev.BatteryIDs))
	for id := range prev.BatteryIDs {
		ids[id] = struct{}{}
	}
	prev.BatteryIDs = ids
	next := mutate(prev)
	fs.current.Store(&next)
}
