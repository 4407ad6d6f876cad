package tf

import (
	"fmt"
	"runtime"
	"unsafe"
)

// newBufferFromBytes wraps a serialized payload in a native TF_Buffer. The
// native side copies the bytes, so the Go slice only has to survive the
// call. An empty payload yields no buffer (zero handle), which the run call
// treats as "no options".
func newBufferFromBytes(payload []byte) (uintptr, error) {
	if len(payload) == 0 {
		return 0, nil
	}
	if tfNewBufferFromStringFunc == nil {
		return 0, ErrNotInitialized
	}

	buffer := tfNewBufferFromStringFunc(unsafe.Pointer(unsafe.SliceData(payload)), uintptr(len(payload)))
	runtime.KeepAlive(payload)
	if buffer == 0 {
		return 0, fmt.Errorf("failed to allocate native buffer for %d byte payload", len(payload))
	}
	return buffer, nil
}

// releaseBuffer frees a TF_Buffer. Safe on a zero handle.
func releaseBuffer(buffer uintptr) {
	if buffer == 0 || tfDeleteBufferFunc == nil {
		return
	}
	tfDeleteBufferFunc(buffer)
}

// copyBufferBytes deep-copies a TF_Buffer's contents into Go-owned memory.
// The buffer itself is not freed; pair with releaseBuffer so no caller ever
// holds a view of native memory.
func copyBufferBytes(buffer uintptr) []byte {
	if buffer == 0 {
		return nil
	}

	// #nosec G103 -- required to read the TF_Buffer struct without cgo.
	b := (*tfBuffer)(unsafe.Pointer(buffer))
	if b.length == 0 {
		return []byte{}
	}

	out := make([]byte, b.length)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(b.data)), b.length))
	return out
}

// releaseAll runs release hooks in reverse acquisition order, skipping nils.
// Used where several native objects are acquired for one call and all must
// be freed on every exit path.
func releaseAll(releases ...func()) {
	for i := len(releases) - 1; i >= 0; i-- {
		if releases[i] != nil {
			releases[i]()
		}
	}
}
