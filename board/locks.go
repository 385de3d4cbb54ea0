package board

import (
	"sync"

	"prism-board/domain"
)

// partitionLocks serializes writers per (project, status) partition.
// Entries are dropped once no goroutine holds or waits on them.
type partitionLocks struct {
	mu    sync.Mutex
	locks map[string]*partitionLock
}

type partitionLock struct {
	mu   sync.Mutex
	refs int
}

func newPartitionLocks() *partitionLocks {
	return &partitionLocks{locks: make(map[string]*partitionLock)}
}

func (p *partitionLocks) lock(projectID string, status domain.Status) (unlock func()) {
	key := projectID + "\x00" + string(status)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &partitionLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

func (p *partitionLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
