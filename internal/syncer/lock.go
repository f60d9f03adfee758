package syncer

import "sync"

// repoLocks is a keyed mutex. Entries are reference counted and dropped when
// the last holder or waiter releases, so the map only holds repositories with
// work in flight.
type repoLocks struct {
	mu    sync.Mutex
	locks map[string]*repoLock
}

type repoLock struct {
	mu   sync.Mutex
	refs int
}

func newRepoLocks() *repoLocks {
	return &repoLocks{locks: make(map[string]*repoLock)}
}

// lock blocks until repo is free and returns the matching unlock.
func (l *repoLocks) lock(repo string) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.locks[repo]
	if !ok {
		rl = &repoLock{}
		l.locks[repo] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			rl.mu.Unlock()

			l.mu.Lock()
			rl.refs--
			if rl.refs == 0 {
				delete(l.locks, repo)
			}
			l.mu.Unlock()
		})
	}
}

// active returns the number of repositories currently locked or awaited.
func (l *repoLocks) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
