package tf

import (
	"sync"
	"testing"
	"unsafe"

	"go.uber.org/zap"
)

// resetEnvironmentState resets global state for testing.
func resetEnvironmentState() {
	mu.Lock()
	refCount = 0
	tfLib = 0
	libPath = ""
	logger = zap.NewNop()
	mu.Unlock()

	clearNativeAPI()
	handles = newHandleTable()
}

type statusResult struct {
	code int32
	msg  string
}

type fakeDevice struct {
	name        string
	deviceType  string
	memoryBytes int64
	incarnation uint64
}

type fakeTensor struct {
	dtype int32
	dims  []int64
	data  []byte
}

// fakeNative backs the native entry points with in-process Go state so
// lifecycle, marshaling, and teardown behavior is testable without a loaded
// TensorFlow runtime. Opaque native pointers are monotonically increasing
// fake addresses, except TF_Buffer handles, which must be real *tfBuffer
// addresses because the run pipeline dereferences them.
type fakeNative struct {
	mu      sync.Mutex
	nextPtr uintptr

	statusCodes  map[uintptr]int32
	statusMsgs   map[uintptr]string
	liveStatuses int

	buffers       []*tfBuffer
	bufferBacking [][]byte
	bufferDeletes int

	tensors       map[uintptr]*fakeTensor
	tensorDeletes int

	ops map[string]uintptr

	graphDef      []byte
	importedDefs  [][]byte
	graphDeletes  int
	sessionsAlive int

	closeCalls  int
	deleteCalls int
	extendCalls int
	runCalls    int

	lastRunInputs  int32
	lastRunOutputs int32
	lastRunTargets int32
	lastRunHadOpts bool
	lastRunHadMeta bool

	newSessionResult statusResult
	setConfigResult  statusResult
	closeResult      statusResult
	extendResult     statusResult
	runResult        statusResult

	runOutputs  []uintptr
	runMetadata []byte

	devices           []fakeDevice
	deviceListDeletes int
}

// newFakeNative resets package state, installs the fake entry points, and
// registers teardown.
func newFakeNative(t *testing.T) *fakeNative {
	t.Helper()
	resetEnvironmentState()
	f := &fakeNative{
		statusCodes: make(map[uintptr]int32),
		statusMsgs:  make(map[uintptr]string),
		tensors:     make(map[uintptr]*fakeTensor),
		ops:         make(map[string]uintptr),
	}
	f.install()
	t.Cleanup(resetEnvironmentState)
	return f
}

func (f *fakeNative) alloc() uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPtr++
	return f.nextPtr
}

func (f *fakeNative) setStatus(status uintptr, r statusResult) {
	if status == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCodes[status] = r.code
	f.statusMsgs[status] = r.msg
}

// newTensorPtr registers a prefabricated native tensor, as the runtime does
// for run outputs.
func (f *fakeNative) newTensorPtr(dtype int32, dims []int64, data []byte) uintptr {
	p := f.alloc()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tensors[p] = &fakeTensor{dtype: dtype, dims: dims, data: data}
	return p
}

// addOperation makes an operation name resolvable through the fake graph.
func (f *fakeNative) addOperation(name string) uintptr {
	p := f.alloc()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops[name] = p
	return p
}

func (f *fakeNative) install() {
	tfVersionFunc = func() string { return "2.18.0-fake" }

	tfNewStatusFunc = func() uintptr {
		p := f.alloc()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.statusCodes[p] = 0
		f.liveStatuses++
		return p
	}
	tfDeleteStatusFunc = func(status uintptr) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.statusCodes, status)
		delete(f.statusMsgs, status)
		f.liveStatuses--
	}
	tfGetCodeFunc = func(status uintptr) int32 {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.statusCodes[status]
	}
	tfMessageFunc = func(status uintptr) string {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.statusMsgs[status]
	}

	tfNewBufferFunc = func() uintptr {
		b := &tfBuffer{}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.buffers = append(f.buffers, b)
		return uintptr(unsafe.Pointer(b))
	}
	tfNewBufferFromStringFunc = func(proto unsafe.Pointer, protoLen uintptr) uintptr {
		data := make([]byte, protoLen)
		if protoLen > 0 {
			copy(data, unsafe.Slice((*byte)(proto), protoLen))
		}
		b := &tfBuffer{length: protoLen}
		if protoLen > 0 {
			b.data = uintptr(unsafe.Pointer(unsafe.SliceData(data)))
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.buffers = append(f.buffers, b)
		f.bufferBacking = append(f.bufferBacking, data)
		return uintptr(unsafe.Pointer(b))
	}
	tfDeleteBufferFunc = func(buffer uintptr) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.bufferDeletes++
	}

	tfNewSessionOptionsFunc = func() uintptr { return f.alloc() }
	tfDeleteSessionOptionsFunc = func(options uintptr) {}
	tfSetTargetFunc = func(options uintptr, target string) {}
	tfSetConfigFunc = func(options uintptr, proto unsafe.Pointer, protoLen uintptr, status uintptr) {
		f.setStatus(status, f.setConfigResult)
	}

	tfNewSessionFunc = func(graph uintptr, options uintptr, status uintptr) uintptr {
		f.setStatus(status, f.newSessionResult)
		if f.newSessionResult.code != 0 {
			return 0
		}
		f.mu.Lock()
		f.sessionsAlive++
		f.mu.Unlock()
		return f.alloc()
	}
	tfCloseSessionFunc = func(session uintptr, status uintptr) {
		f.mu.Lock()
		f.closeCalls++
		f.mu.Unlock()
		f.setStatus(status, f.closeResult)
	}
	tfDeleteSessionFunc = func(session uintptr, status uintptr) {
		f.mu.Lock()
		f.deleteCalls++
		f.sessionsAlive--
		f.mu.Unlock()
	}
	tfExtendSessionFunc = func(session uintptr, status uintptr) {
		f.mu.Lock()
		f.extendCalls++
		f.mu.Unlock()
		f.setStatus(status, f.extendResult)
	}
	tfSessionRunFunc = func(session uintptr, runOptions uintptr,
		inputs unsafe.Pointer, inputValues unsafe.Pointer, ninputs int32,
		outputs unsafe.Pointer, outputValues unsafe.Pointer, noutputs int32,
		targets unsafe.Pointer, ntargets int32,
		runMetadata uintptr, status uintptr) {

		f.mu.Lock()
		f.runCalls++
		f.lastRunInputs = ninputs
		f.lastRunOutputs = noutputs
		f.lastRunTargets = ntargets
		f.lastRunHadOpts = runOptions != 0
		f.lastRunHadMeta = runMetadata != 0
		runOutputs := f.runOutputs
		metadata := f.runMetadata
		f.mu.Unlock()

		f.setStatus(status, f.runResult)
		if f.runResult.code != 0 {
			return
		}

		if noutputs > 0 && outputValues != nil {
			vals := unsafe.Slice((*uintptr)(outputValues), noutputs)
			for i := range vals {
				if i < len(runOutputs) {
					vals[i] = runOutputs[i]
				} else {
					vals[i] = f.alloc()
				}
			}
		}
		if runMetadata != 0 && len(metadata) > 0 {
			b := (*tfBuffer)(unsafe.Pointer(runMetadata))
			b.data = uintptr(unsafe.Pointer(unsafe.SliceData(metadata)))
			b.length = uintptr(len(metadata))
		}
	}

	tfSessionListDevicesFunc = func(session uintptr, status uintptr) uintptr { return f.alloc() }
	tfDeviceListCountFunc = func(list uintptr) int32 {
		f.mu.Lock()
		defer f.mu.Unlock()
		return int32(len(f.devices))
	}
	tfDeviceListNameFunc = func(list uintptr, index int32, status uintptr) string {
		return f.devices[index].name
	}
	tfDeviceListTypeFunc = func(list uintptr, index int32, status uintptr) string {
		return f.devices[index].deviceType
	}
	tfDeviceListMemoryBytesFunc = func(list uintptr, index int32, status uintptr) int64 {
		return f.devices[index].memoryBytes
	}
	tfDeviceListIncarnationFunc = func(list uintptr, index int32, status uintptr) uint64 {
		return f.devices[index].incarnation
	}
	tfDeleteDeviceListFunc = func(list uintptr) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deviceListDeletes++
	}

	tfNewGraphFunc = func() uintptr { return f.alloc() }
	tfDeleteGraphFunc = func(graph uintptr) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.graphDeletes++
	}
	tfGraphOperationByNameFunc = func(graph uintptr, name string) uintptr {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.ops[name]
	}
	tfOperationNameFunc = func(operation uintptr) string {
		f.mu.Lock()
		defer f.mu.Unlock()
		for name, ptr := range f.ops {
			if ptr == operation {
				return name
			}
		}
		return ""
	}
	tfGraphToGraphDefFunc = func(graph uintptr, buffer uintptr, status uintptr) {
		f.mu.Lock()
		def := f.graphDef
		f.mu.Unlock()
		b := (*tfBuffer)(unsafe.Pointer(buffer))
		if len(def) > 0 {
			b.data = uintptr(unsafe.Pointer(unsafe.SliceData(def)))
			b.length = uintptr(len(def))
		}
	}
	tfGraphImportGraphDefFunc = func(graph uintptr, buffer uintptr, options uintptr, status uintptr) {
		b := (*tfBuffer)(unsafe.Pointer(buffer))
		def := make([]byte, b.length)
		if b.length > 0 {
			copy(def, unsafe.Slice((*byte)(unsafe.Pointer(b.data)), b.length))
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.importedDefs = append(f.importedDefs, def)
	}
	tfNewImportGraphDefOptionsFunc = func() uintptr { return f.alloc() }
	tfDeleteImportGraphDefOptionsFunc = func(options uintptr) {}
	tfImportGraphDefOptionsSetPrefixFunc = func(options uintptr, prefix string) {}

	tfNewTensorFunc = func(dtype int32, dims unsafe.Pointer, ndims int32,
		data unsafe.Pointer, dataLen uintptr, deallocator uintptr, deallocatorArg uintptr) uintptr {

		dimsCopy := make([]int64, ndims)
		if ndims > 0 {
			copy(dimsCopy, unsafe.Slice((*int64)(dims), ndims))
		}
		dataCopy := make([]byte, dataLen)
		if dataLen > 0 {
			copy(dataCopy, unsafe.Slice((*byte)(data), dataLen))
		}
		p := f.alloc()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.tensors[p] = &fakeTensor{dtype: dtype, dims: dimsCopy, data: dataCopy}
		return p
	}
	tfDeleteTensorFunc = func(tensor uintptr) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.tensors, tensor)
		f.tensorDeletes++
	}
	tfTensorDataFunc = func(tensor uintptr) uintptr {
		f.mu.Lock()
		defer f.mu.Unlock()
		t := f.tensors[tensor]
		if t == nil || len(t.data) == 0 {
			return 0
		}
		return uintptr(unsafe.Pointer(unsafe.SliceData(t.data)))
	}
	tfTensorByteSizeFunc = func(tensor uintptr) uintptr {
		f.mu.Lock()
		defer f.mu.Unlock()
		t := f.tensors[tensor]
		if t == nil {
			return 0
		}
		return uintptr(len(t.data))
	}
	tfTensorTypeFunc = func(tensor uintptr) int32 {
		f.mu.Lock()
		defer f.mu.Unlock()
		t := f.tensors[tensor]
		if t == nil {
			return 0
		}
		return t.dtype
	}
	tfNumDimsFunc = func(tensor uintptr) int32 {
		f.mu.Lock()
		defer f.mu.Unlock()
		t := f.tensors[tensor]
		if t == nil {
			return 0
		}
		return int32(len(t.dims))
	}
	tfDimFunc = func(tensor uintptr, index int32) int64 {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.tensors[tensor].dims[index]
	}
}
