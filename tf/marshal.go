package tf

import (
	"unsafe"
)

// Output identifies a tensor-producing endpoint within a graph: an operation
// handle plus the index of one of its outputs. Slices of Output describe the
// feeds and fetches of a run call.
type Output struct {
	Op    Handle
	Index int32
}

// resolveTensors encodes tensor handles into a native TF_Tensor* array.
// Fails before any native call if an element is dead.
func resolveTensors(hs []Handle) ([]uintptr, error) {
	if len(hs) == 0 {
		return nil, nil
	}
	ptrs := make([]uintptr, len(hs))
	for i, h := range hs {
		ptr, err := handles.resolve(h, kindTensor)
		if err != nil {
			return nil, err
		}
		ptrs[i] = ptr
	}
	return ptrs, nil
}

// resolveOperations encodes operation handles into a native TF_Operation*
// array (target operations of a run call).
func resolveOperations(hs []Handle) ([]uintptr, error) {
	if len(hs) == 0 {
		return nil, nil
	}
	ptrs := make([]uintptr, len(hs))
	for i, h := range hs {
		ptr, err := handles.resolve(h, kindOperation)
		if err != nil {
			return nil, err
		}
		ptrs[i] = ptr
	}
	return ptrs, nil
}

// resolveOutputs encodes (operation, index) descriptors into a native
// TF_Output array.
func resolveOutputs(descs []Output) ([]tfOutput, error) {
	if len(descs) == 0 {
		return nil, nil
	}
	outs := make([]tfOutput, len(descs))
	for i, d := range descs {
		ptr, err := handles.resolve(d.Op, kindOperation)
		if err != nil {
			return nil, err
		}
		outs[i] = tfOutput{oper: ptr, index: d.Index}
	}
	return outs, nil
}

// adoptTensors registers native tensors produced by a run call as new
// host-owned handles, preserving order index-for-index. Ownership transfers
// to the caller; this package frees them only through DeleteTensor.
func adoptTensors(ptrs []uintptr) []Handle {
	if len(ptrs) == 0 {
		return []Handle{}
	}
	hs := make([]Handle, len(ptrs))
	for i, ptr := range ptrs {
		hs[i] = handles.add(kindTensor, ptr, func() {
			if tfDeleteTensorFunc != nil {
				tfDeleteTensorFunc(ptr)
			}
		})
	}
	return hs
}

// sliceAddr returns the address of a slice's backing array for FFI calls,
// or nil for an empty slice.
func sliceAddr[T any](s []T) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(s))
}
