package auth

import "sync"

// BlogLocker hands out one mutex per blog URL and counts credential
// saves per blog. LoginOrchestrator and Service share a locker so
// credential writes for the same blog never interleave, and so a
// re-login that replayed old credentials can tell they were replaced
// while its exchange was in flight.
type BlogLocker struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	versions map[string]uint64
}

// NewBlogLocker returns an empty locker.
func NewBlogLocker() *BlogLocker {
	return &BlogLocker{
		locks:    make(map[string]*sync.Mutex),
		versions: make(map[string]uint64),
	}
}

// Lock blocks until the lock for blogURL is held and returns its release.
func (l *BlogLocker) Lock(blogURL string) (unlock func()) {
	l.mu.Lock()

	m, ok := l.locks[blogURL]
	if !ok {
		m = &sync.Mutex{}
		l.locks[blogURL] = m
	}
	l.mu.Unlock()

	m.Lock()

	return m.Unlock
}

// Version returns how many times credentials were saved for blogURL.
func (l *BlogLocker) Version(blogURL string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.versions[blogURL]
}

// saved records a credential save. Callers hold the blog's lock.
func (l *BlogLocker) saved(blogURL string) {
	l.mu.Lock()
	l.versions[blogURL]++
	l.mu.Unlock()
}
