package tf

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Native entry points are package-level function variables registered from
// the loaded shared library. Tests substitute Go fakes for them, which is
// why call sites nil-check instead of assuming a loaded runtime.
var (
	tfVersionFunc func() string

	tfNewStatusFunc    func() uintptr
	tfDeleteStatusFunc func(status uintptr)
	tfGetCodeFunc      func(status uintptr) int32
	tfMessageFunc      func(status uintptr) string

	tfNewBufferFunc           func() uintptr
	tfNewBufferFromStringFunc func(proto unsafe.Pointer, protoLen uintptr) uintptr
	tfDeleteBufferFunc        func(buffer uintptr)

	tfNewSessionOptionsFunc    func() uintptr
	tfSetTargetFunc            func(options uintptr, target string)
	tfSetConfigFunc            func(options uintptr, proto unsafe.Pointer, protoLen uintptr, status uintptr)
	tfDeleteSessionOptionsFunc func(options uintptr)

	tfNewSessionFunc    func(graph uintptr, options uintptr, status uintptr) uintptr
	tfCloseSessionFunc  func(session uintptr, status uintptr)
	tfDeleteSessionFunc func(session uintptr, status uintptr)
	tfExtendSessionFunc func(session uintptr, status uintptr)
	tfSessionRunFunc    func(session uintptr, runOptions uintptr,
		inputs unsafe.Pointer, inputValues unsafe.Pointer, ninputs int32,
		outputs unsafe.Pointer, outputValues unsafe.Pointer, noutputs int32,
		targets unsafe.Pointer, ntargets int32,
		runMetadata uintptr, status uintptr)

	tfSessionListDevicesFunc    func(session uintptr, status uintptr) uintptr
	tfDeviceListCountFunc       func(list uintptr) int32
	tfDeviceListNameFunc        func(list uintptr, index int32, status uintptr) string
	tfDeviceListTypeFunc        func(list uintptr, index int32, status uintptr) string
	tfDeviceListMemoryBytesFunc func(list uintptr, index int32, status uintptr) int64
	tfDeviceListIncarnationFunc func(list uintptr, index int32, status uintptr) uint64
	tfDeleteDeviceListFunc      func(list uintptr)

	tfNewGraphFunc                       func() uintptr
	tfDeleteGraphFunc                    func(graph uintptr)
	tfGraphOperationByNameFunc           func(graph uintptr, name string) uintptr
	tfOperationNameFunc                  func(operation uintptr) string
	tfGraphToGraphDefFunc                func(graph uintptr, buffer uintptr, status uintptr)
	tfGraphImportGraphDefFunc            func(graph uintptr, buffer uintptr, options uintptr, status uintptr)
	tfNewImportGraphDefOptionsFunc       func() uintptr
	tfDeleteImportGraphDefOptionsFunc    func(options uintptr)
	tfImportGraphDefOptionsSetPrefixFunc func(options uintptr, prefix string)

	tfNewTensorFunc func(dtype int32, dims unsafe.Pointer, ndims int32,
		data unsafe.Pointer, dataLen uintptr, deallocator uintptr, deallocatorArg uintptr) uintptr
	tfDeleteTensorFunc   func(tensor uintptr)
	tfTensorDataFunc     func(tensor uintptr) uintptr
	tfTensorByteSizeFunc func(tensor uintptr) uintptr
	tfTensorTypeFunc     func(tensor uintptr) int32
	tfNumDimsFunc        func(tensor uintptr) int32
	tfDimFunc            func(tensor uintptr, index int32) int64
)

// tfOutput mirrors TF_Output ({TF_Operation* oper; int index;}).
// Explicit tail padding keeps the array stride at 16 bytes, matching the C
// layout on the 64-bit targets purego supports.
type tfOutput struct {
	oper  uintptr
	index int32
	_     int32
}

// tfBuffer mirrors TF_Buffer
// ({const void* data; size_t length; void (*deallocator)(void*, size_t);}).
type tfBuffer struct {
	data        uintptr
	length      uintptr
	deallocator uintptr
}

type apiSymbol struct {
	name     string
	fptr     any
	optional bool
}

func apiSymbols() []apiSymbol {
	return []apiSymbol{
		{name: "TF_Version", fptr: &tfVersionFunc},

		{name: "TF_NewStatus", fptr: &tfNewStatusFunc},
		{name: "TF_DeleteStatus", fptr: &tfDeleteStatusFunc},
		{name: "TF_GetCode", fptr: &tfGetCodeFunc},
		{name: "TF_Message", fptr: &tfMessageFunc},

		{name: "TF_NewBuffer", fptr: &tfNewBufferFunc},
		{name: "TF_NewBufferFromString", fptr: &tfNewBufferFromStringFunc},
		{name: "TF_DeleteBuffer", fptr: &tfDeleteBufferFunc},

		{name: "TF_NewSessionOptions", fptr: &tfNewSessionOptionsFunc},
		{name: "TF_SetTarget", fptr: &tfSetTargetFunc},
		{name: "TF_SetConfig", fptr: &tfSetConfigFunc},
		{name: "TF_DeleteSessionOptions", fptr: &tfDeleteSessionOptionsFunc},

		{name: "TF_NewSession", fptr: &tfNewSessionFunc},
		{name: "TF_CloseSession", fptr: &tfCloseSessionFunc},
		{name: "TF_DeleteSession", fptr: &tfDeleteSessionFunc},
		// Exported by runtimes built with the python C surface; the public
		// C API relies on sessions extending themselves before a run.
		{name: "TF_ExtendSession", fptr: &tfExtendSessionFunc, optional: true},
		{name: "TF_SessionRun", fptr: &tfSessionRunFunc},

		{name: "TF_SessionListDevices", fptr: &tfSessionListDevicesFunc},
		{name: "TF_DeviceListCount", fptr: &tfDeviceListCountFunc},
		{name: "TF_DeviceListName", fptr: &tfDeviceListNameFunc},
		{name: "TF_DeviceListType", fptr: &tfDeviceListTypeFunc},
		{name: "TF_DeviceListMemoryBytes", fptr: &tfDeviceListMemoryBytesFunc},
		{name: "TF_DeviceListIncarnation", fptr: &tfDeviceListIncarnationFunc},
		{name: "TF_DeleteDeviceList", fptr: &tfDeleteDeviceListFunc},

		{name: "TF_NewGraph", fptr: &tfNewGraphFunc},
		{name: "TF_DeleteGraph", fptr: &tfDeleteGraphFunc},
		{name: "TF_GraphOperationByName", fptr: &tfGraphOperationByNameFunc},
		{name: "TF_OperationName", fptr: &tfOperationNameFunc},
		{name: "TF_GraphToGraphDef", fptr: &tfGraphToGraphDefFunc},
		{name: "TF_GraphImportGraphDef", fptr: &tfGraphImportGraphDefFunc},
		{name: "TF_NewImportGraphDefOptions", fptr: &tfNewImportGraphDefOptionsFunc},
		{name: "TF_DeleteImportGraphDefOptions", fptr: &tfDeleteImportGraphDefOptionsFunc},
		{name: "TF_ImportGraphDefOptionsSetPrefix", fptr: &tfImportGraphDefOptionsSetPrefixFunc},

		{name: "TF_NewTensor", fptr: &tfNewTensorFunc},
		{name: "TF_DeleteTensor", fptr: &tfDeleteTensorFunc},
		{name: "TF_TensorData", fptr: &tfTensorDataFunc},
		{name: "TF_TensorByteSize", fptr: &tfTensorByteSizeFunc},
		{name: "TF_TensorType", fptr: &tfTensorTypeFunc},
		{name: "TF_NumDims", fptr: &tfNumDimsFunc},
		{name: "TF_Dim", fptr: &tfDimFunc},
	}
}

// registerNativeAPI binds every TF C API entry point used by this package to
// its function variable. A missing required symbol aborts initialization;
// optional symbols leave their variable nil and the corresponding operation
// reports unavailability at call time.
func registerNativeAPI(lib uintptr) error {
	for _, sym := range apiSymbols() {
		addr, err := getSymbol(lib, sym.name)
		if err != nil || addr == 0 {
			if sym.optional {
				continue
			}
			return fmt.Errorf("failed to resolve TensorFlow symbol %q: %w", sym.name, err)
		}
		purego.RegisterFunc(sym.fptr, addr)
	}
	return nil
}

// clearNativeAPI nils every registered entry point. Called when the
// environment is torn down so stale pointers into an unloaded library cannot
// be invoked.
func clearNativeAPI() {
	tfVersionFunc = nil
	tfNewStatusFunc = nil
	tfDeleteStatusFunc = nil
	tfGetCodeFunc = nil
	tfMessageFunc = nil
	tfNewBufferFunc = nil
	tfNewBufferFromStringFunc = nil
	tfDeleteBufferFunc = nil
	tfNewSessionOptionsFunc = nil
	tfSetTargetFunc = nil
	tfSetConfigFunc = nil
	tfDeleteSessionOptionsFunc = nil
	tfNewSessionFunc = nil
	tfCloseSessionFunc = nil
	tfDeleteSessionFunc = nil
	tfExtendSessionFunc = nil
	tfSessionRunFunc = nil
	tfSessionListDevicesFunc = nil
	tfDeviceListCountFunc = nil
	tfDeviceListNameFunc = nil
	tfDeviceListTypeFunc = nil
	tfDeviceListMemoryBytesFunc = nil
	tfDeviceListIncarnationFunc = nil
	tfDeleteDeviceListFunc = nil
	tfNewGraphFunc = nil
	tfDeleteGraphFunc = nil
	tfGraphOperationByNameFunc = nil
	tfOperationNameFunc = nil
	tfGraphToGraphDefFunc = nil
	tfGraphImportGraphDefFunc = nil
	tfNewImportGraphDefOptionsFunc = nil
	tfDeleteImportGraphDefOptionsFunc = nil
	tfImportGraphDefOptionsSetPrefixFunc = nil
	tfNewTensorFunc = nil
	tfDeleteTensorFunc = nil
	tfTensorDataFunc = nil
	tfTensorByteSizeFunc = nil
	tfTensorTypeFunc = nil
	tfNumDimsFunc = nil
	tfDimFunc = nil
}
