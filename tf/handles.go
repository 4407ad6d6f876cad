package tf

import (
	"fmt"
	"sync"
)

// Handle is an opaque reference to a native object owned by this package.
// Handle 0 is reserved and always invalid. The low 32 bits address a slot in
// the handle table, the high 32 bits carry that slot's generation, so a
// handle kept across a delete of its object can never alias a newer object
// placed in the same slot.
type Handle uint64

func packHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

func (h Handle) index() uint32 { return uint32(h) }
func (h Handle) gen() uint32   { return uint32(h >> 32) }

type handleKind uint8

const (
	kindGraph handleKind = iota + 1
	kindSession
	kindOperation
	kindTensor
)

func (k handleKind) String() string {
	switch k {
	case kindGraph:
		return "graph"
	case kindSession:
		return "session"
	case kindOperation:
		return "operation"
	case kindTensor:
		return "tensor"
	default:
		return "unknown"
	}
}

type handleEntry struct {
	ptr     uintptr
	cleanup func()
	owner   Handle
	gen     uint32
	kind    handleKind
	valid   bool
	closed  bool
}

// handleTable is an arena of native-object ownership records. Slots are
// reused through a free list; each reuse bumps the slot generation.
type handleTable struct {
	mu      sync.RWMutex
	entries []handleEntry
	free    []uint32
}

func newHandleTable() *handleTable {
	return &handleTable{
		entries: make([]handleEntry, 0, 32),
		free:    make([]uint32, 0, 8),
	}
}

// handles is the package-wide registry. Every public operation that accepts
// a Handle resolves it here before touching native memory.
var handles = newHandleTable()

func (t *handleTable) add(kind handleKind, ptr uintptr, cleanup func()) Handle {
	return t.addOwned(kind, ptr, 0, cleanup)
}

// addOwned registers a native object whose lifetime is bounded by another
// table entry (operations belong to their graph). Removing the owner removes
// the dependents too.
func (t *handleTable) addOwned(kind handleKind, ptr uintptr, owner Handle, cleanup func()) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.free) > 0 {
		index := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		e := &t.entries[index-1]
		e.ptr = ptr
		e.cleanup = cleanup
		e.owner = owner
		e.kind = kind
		e.valid = true
		e.closed = false
		return packHandle(index, e.gen)
	}

	t.entries = append(t.entries, handleEntry{
		ptr:     ptr,
		cleanup: cleanup,
		owner:   owner,
		gen:     1,
		kind:    kind,
		valid:   true,
	})
	index := uint32(len(t.entries))
	return packHandle(index, 1)
}

func (t *handleTable) lookup(h Handle, kind handleKind) (*handleEntry, error) {
	index := h.index()
	if index == 0 || int(index) > len(t.entries) {
		return nil, fmt.Errorf("%w: %s handle %#x", ErrInvalidHandle, kind, uint64(h))
	}
	e := &t.entries[index-1]
	if !e.valid || e.gen != h.gen() || e.kind != kind {
		return nil, fmt.Errorf("%w: %s handle %#x", ErrInvalidHandle, kind, uint64(h))
	}
	return e, nil
}

// resolve returns the native pointer behind h, failing fast on a handle that
// was never allocated, was already removed, or refers to an object of a
// different kind.
func (t *handleTable) resolve(h Handle, kind handleKind) (uintptr, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, err := t.lookup(h, kind)
	if err != nil {
		return 0, err
	}
	return e.ptr, nil
}

// resolveSession returns the native session pointer and its closed mark.
func (t *handleTable) resolveSession(h Handle) (ptr uintptr, closed bool, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, err := t.lookup(h, kindSession)
	if err != nil {
		return 0, false, err
	}
	return e.ptr, e.closed, nil
}

// markSessionClosed sets the sticky closed mark on a live session entry.
func (t *handleTable) markSessionClosed(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.lookup(h, kindSession)
	if err != nil {
		return err
	}
	e.closed = true
	return nil
}

// remove invalidates h and returns its native pointer. The slot's generation
// is bumped before it reaches the free list, and the entry's cleanup hook
// (if any) runs exactly once.
func (t *handleTable) remove(h Handle, kind handleKind) (uintptr, error) {
	t.mu.Lock()

	e, err := t.lookup(h, kind)
	if err != nil {
		t.mu.Unlock()
		return 0, err
	}

	ptr := e.ptr
	cleanup := e.cleanup
	t.invalidateLocked(e, h.index())

	// Dependents (operations of a deleted graph) die with their owner.
	var cleanups []func()
	for i := range t.entries {
		d := &t.entries[i]
		if d.valid && d.owner == h {
			if d.cleanup != nil {
				cleanups = append(cleanups, d.cleanup)
			}
			t.invalidateLocked(d, uint32(i+1))
		}
	}
	t.mu.Unlock()

	if cleanup != nil {
		cleanup()
	}
	for _, fn := range cleanups {
		fn()
	}
	return ptr, nil
}

func (t *handleTable) invalidateLocked(e *handleEntry, index uint32) {
	e.ptr = 0
	e.cleanup = nil
	e.owner = 0
	e.valid = false
	e.closed = false
	e.gen++
	t.free = append(t.free, index)
}

func (t *handleTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for i := range t.entries {
		if t.entries[i].valid {
			n++
		}
	}
	return n
}
