package jobs

import "sync"

// LockManager holds one non-blocking mutex per job id.
// The map is built once from the catalog and never grows.
type LockManager struct {
	locks map[string]*sync.Mutex
}

// NewLockManager pre-populates a lock for every catalog job
func NewLockManager(catalog *Catalog) *LockManager {
	ids := catalog.IDs()
	m := &LockManager{locks: make(map[string]*sync.Mutex, len(ids))}
	for _, id := range ids {
		m.locks[id] = &sync.Mutex{}
	}
	return m
}

// TryAcquire takes the lock of jobID without blocking. Unknown ids never acquire.
func (m *LockManager) TryAcquire(jobID string) bool {
	l, ok := m.locks[jobID]
	if !ok {
		return false
	}
	return l.TryLock()
}

// Release frees the lock of jobID
func (m *LockManager) Release(jobID string) {
	if l, ok := m.locks[jobID]; ok {
		l.Unlock()
	}
}
