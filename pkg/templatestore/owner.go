package templatestore

import (
	"fmt"
	"strings"
	"sync"
)

// MaxOwnerIDLen is the longest owner ID accepted, in bytes.
const MaxOwnerIDLen = 128

// ValidateOwnerID reports whether id can be used as a storage key and as a
// single path component. It returns an error wrapping ErrInvalidOwnerID
// for empty or overlong IDs, IDs containing '/', '\', ':', NUL or "..",
// and the IDs "." and "..".
func ValidateOwnerID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidOwnerID)
	case len(id) > MaxOwnerIDLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidOwnerID, MaxOwnerIDLen)
	case id == ".":
		return fmt.Errorf("%w: %q", ErrInvalidOwnerID, id)
	case strings.Contains(id, ".."):
		return fmt.Errorf("%w: %q contains \"..\"", ErrInvalidOwnerID, id)
	case strings.ContainsAny(id, "/\\:\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidOwnerID, id)
	}
	return nil
}

// OwnerLocks hands out one RWMutex per owner ID. Operations on different
// owners never contend. Entries are dropped once no caller holds them.
type OwnerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	sync.RWMutex
	refs int
}

func (l *OwnerLocks) acquire(id string) *ownerLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*ownerLock)
	}
	ol, ok := l.locks[id]
	if !ok {
		ol = &ownerLock{}
		l.locks[id] = ol
	}
	ol.refs++
	return ol
}

func (l *OwnerLocks) release(id string, ol *ownerLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ol.refs--
	if ol.refs == 0 {
		delete(l.locks, id)
	}
}

// Lock takes the write lock for id and returns its unlock function.
func (l *OwnerLocks) Lock(id string) (unlock func()) {
	ol := l.acquire(id)
	ol.Lock()
	return func() {
		ol.Unlock()
		l.release(id, ol)
	}
}

// RLock takes the read lock for id and returns its unlock function.
func (l *OwnerLocks) RLock(id string) (unlock func()) {
	ol := l.acquire(id)
	ol.RLock()
	return func() {
		ol.RUnlock()
		l.release(id, ol)
	}
}

// Len returns the number of owners currently holding an entry.
func (l *OwnerLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
