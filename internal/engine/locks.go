package engine

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultLockStripes = 256

// lockStripes serializes transfers per account without a lock per account id.
// An id always maps to the same stripe, and stripes are always acquired in
// ascending index order, so A->B and B->A cannot deadlock.
type lockStripes struct {
	stripes []sync.Mutex
}

func newLockStripes(n int) *lockStripes {
	if n <= 0 {
		n = defaultLockStripes
	}
	return &lockStripes{stripes: make([]sync.Mutex, n)}
}

func (l *lockStripes) index(id string) int {
	return int(xxhash.Sum64String(id) % uint64(len(l.stripes)))
}

// lockPair locks the stripes of both ids and returns the matching unlock.
// Ids sharing a stripe (including a == b) lock it once.
func (l *lockStripes) lockPair(a, b string) func() {
	i, j := l.index(a), l.index(b)
	if i == j {
		l.stripes[i].Lock()
		return l.stripes[i].Unlock
	}
	if i > j {
		i, j = j, i
	}

	l.stripes[i].Lock()
	l.stripes[j].Lock()
	return func() {
		l.stripes[j].Unlock()
		l.stripes[i].Unlock()
	}
}

// lockAll locks every stripe, waiting for in-flight transfers to finish
func (l *lockStripes) lockAll() func() {
	for i := range l.stripes {
		l.stripes[i].Lock()
	}
	return func() {
		for i := len(l.stripes) - 1; i >= 0; i-- {
			l.stripes[i].Unlock()
		}
	}
}
