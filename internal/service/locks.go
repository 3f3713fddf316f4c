package service

import (
	"sort"
	"sync"
)

// Locks serializes registration check-and-act sequences.
//
// Lock order is fixed: the maintenance lock (shared), then one event key,
// then participant keys in ascending order. Maintenance operations take the
// maintenance lock exclusively and no keys.
type Locks struct {
	maintenance sync.RWMutex
	mu          sync.Mutex
	keys        map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocks creates an empty lock table
func NewLocks() *Locks {
	return &Locks{keys: make(map[string]*keyLock)}
}

// Registration acquires the locks for a submission or delete touching one
// event and the given participant uids. The returned func releases them all.
func (l *Locks) Registration(eventID string, uids []string) func() {
	keys := make([]string, 0, len(uids))
	seen := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		if _, ok := seen[uid]; ok || uid == "" {
			continue
		}
		seen[uid] = struct{}{}
		keys = append(keys, "participant:"+uid)
	}
	sort.Strings(keys)
	if eventID != "" {
		keys = append([]string{"event:" + eventID}, keys...)
	}

	l.maintenance.RLock()
	for _, k := range keys {
		l.lock(k)
	}
	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			l.unlock(keys[i])
		}
		l.maintenance.RUnlock()
	}
}

// Maintenance acquires exclusive access, waiting for in-flight submissions to finish
func (l *Locks) Maintenance() func() {
	l.maintenance.Lock()
	return l.maintenance.Unlock
}

func (l *Locks) lock(key string) {
	l.mu.Lock()
	kl, ok := l.keys[key]
	if !ok {
		kl = &keyLock{}
		l.keys[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
}

func (l *Locks) unlock(key string) {
	l.mu.Lock()
	kl := l.keys[key]
	kl.refs--
	if kl.refs == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()

	kl.mu.Unlock()
}
