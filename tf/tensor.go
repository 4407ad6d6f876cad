package tf

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	noopDeallocatorOnce sync.Once
	noopDeallocator     uintptr
)

// tensorDeallocator returns the deallocator passed to TF_NewTensor. It does
// nothing: the backing array is Go memory pinned for the tensor's lifetime,
// and the native side must not free it.
func tensorDeallocator() uintptr {
	noopDeallocatorOnce.Do(func() {
		noopDeallocator = purego.NewCallback(func(data uintptr, length uintptr, arg uintptr) {})
	})
	return noopDeallocator
}

// tensorElementType maps the Go element type T to TensorFlow tensor element
// metadata. Supported types are float32, float64, int32, and int64.
func tensorElementType[T any]() (DataType, uintptr, error) {
	var zero T

	switch any(zero).(type) {
	case float32:
		return TypeFloat, unsafe.Sizeof(zero), nil
	case float64:
		return TypeDouble, unsafe.Sizeof(zero), nil
	case int32:
		return TypeInt32, unsafe.Sizeof(zero), nil
	case int64:
		return TypeInt64, unsafe.Sizeof(zero), nil
	default:
		return 0, 0, fmt.Errorf("unsupported tensor element type %T", zero)
	}
}

// NewTensor creates a native tensor over the given Go data and returns a
// caller-owned tensor handle. The backing array is pinned until the handle
// is released with DeleteTensor.
func NewTensor[T any](shape Shape, data []T) (Handle, error) {
	dtype, elementSize, err := tensorElementType[T]()
	if err != nil {
		return 0, err
	}

	shapeCopy := cloneShape(shape)
	elementCount, err := shapeElementCount(shapeCopy)
	if err != nil {
		return 0, err
	}
	if len(data) != elementCount {
		return 0, fmt.Errorf("data length mismatch: got %d elements, expected %d for shape %v",
			len(data), elementCount, shapeCopy)
	}

	if tfNewTensorFunc == nil {
		return 0, ErrNotInitialized
	}

	var dataPtr unsafe.Pointer
	var pinner *runtime.Pinner
	if len(data) > 0 {
		pinner = &runtime.Pinner{}
		pinner.Pin(unsafe.SliceData(data))
		// #nosec G103 -- required for CGO-free FFI; the array is pinned for
		// the native tensor's lifetime.
		dataPtr = unsafe.Pointer(unsafe.SliceData(data))
	}

	ptr := tfNewTensorFunc(int32(dtype), sliceAddr(shapeCopy), int32(len(shapeCopy)),
		dataPtr, uintptr(elementCount)*elementSize, tensorDeallocator(), 0)
	// The shape is read synchronously during TF_NewTensor.
	runtime.KeepAlive(shapeCopy)
	if ptr == 0 {
		if pinner != nil {
			pinner.Unpin()
		}
		return 0, fmt.Errorf("failed to create tensor with shape %v", shapeCopy)
	}

	// The cleanup hook owns teardown: delete the native tensor first, only
	// then unpin (and release the last reference to) the backing array.
	cleanup := func() {
		if tfDeleteTensorFunc != nil {
			tfDeleteTensorFunc(ptr)
		}
		if pinner != nil {
			pinner.Unpin()
		}
		runtime.KeepAlive(data)
	}
	return handles.add(kindTensor, ptr, cleanup), nil
}

// DeleteTensor releases a tensor created by NewTensor or returned by
// SessionRun. The handle is invalid afterwards.
func DeleteTensor(tensor Handle) error {
	_, err := handles.remove(tensor, kindTensor)
	return err
}

// TensorData copies a tensor's elements into a new Go slice. The element
// type must match the tensor's native dtype.
func TensorData[T any](tensor Handle) ([]T, error) {
	dtype, elementSize, err := tensorElementType[T]()
	if err != nil {
		return nil, err
	}

	ptr, err := handles.resolve(tensor, kindTensor)
	if err != nil {
		return nil, err
	}
	if tfTensorDataFunc == nil || tfTensorByteSizeFunc == nil || tfTensorTypeFunc == nil {
		return nil, ErrNotInitialized
	}

	if actual := DataType(tfTensorTypeFunc(ptr)); actual != dtype {
		return nil, fmt.Errorf("tensor element type mismatch: native dtype %d, requested %d", actual, dtype)
	}

	byteSize := tfTensorByteSizeFunc(ptr)
	count := byteSize / elementSize
	if count == 0 {
		return []T{}, nil
	}

	dataPtr := tfTensorDataFunc(ptr)
	out := make([]T, count)
	copy(out, unsafe.Slice((*T)(unsafe.Pointer(dataPtr)), count))
	return out, nil
}

// TensorShape returns a tensor's dimensions.
func TensorShape(tensor Handle) (Shape, error) {
	ptr, err := handles.resolve(tensor, kindTensor)
	if err != nil {
		return nil, err
	}
	if tfNumDimsFunc == nil || tfDimFunc == nil {
		return nil, ErrNotInitialized
	}

	ndims := tfNumDimsFunc(ptr)
	if ndims < 0 {
		return nil, fmt.Errorf("tensor has unknown rank")
	}
	shape := make(Shape, ndims)
	for i := int32(0); i < ndims; i++ {
		shape[i] = tfDimFunc(ptr, i)
	}
	return shape, nil
}

// TensorType returns a tensor's native element type.
func TensorType(tensor Handle) (DataType, error) {
	ptr, err := handles.resolve(tensor, kindTensor)
	if err != nil {
		return 0, err
	}
	if tfTensorTypeFunc == nil {
		return 0, ErrNotInitialized
	}
	return DataType(tfTensorTypeFunc(ptr)), nil
}
