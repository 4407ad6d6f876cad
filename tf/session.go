package tf

import (
	"fmt"
	"runtime"
	"unsafe"

	"go.uber.org/zap"
)

// SessionAllocate creates a native execution session bound to a live graph.
// target selects the execution engine (empty for in-process) and configProto
// is an optional serialized ConfigProto consumed by the native runtime. The
// transient TF_SessionOptions object is released on every outcome.
func SessionAllocate(graph Handle, target string, configProto []byte) (Handle, error) {
	graphPtr, err := handles.resolve(graph, kindGraph)
	if err != nil {
		return 0, err
	}
	if tfNewSessionFunc == nil || tfNewSessionOptionsFunc == nil || tfNewStatusFunc == nil {
		return 0, ErrNotInitialized
	}

	status := newStatus()
	defer releaseStatus(status)

	options := tfNewSessionOptionsFunc()
	defer func() {
		if tfDeleteSessionOptionsFunc != nil {
			tfDeleteSessionOptionsFunc(options)
		}
	}()

	if target != "" {
		if tfSetTargetFunc == nil {
			return 0, ErrNotInitialized
		}
		tfSetTargetFunc(options, target)
	}

	if len(configProto) > 0 {
		if tfSetConfigFunc == nil {
			return 0, ErrNotInitialized
		}
		tfSetConfigFunc(options, unsafe.Pointer(unsafe.SliceData(configProto)), uintptr(len(configProto)), status)
		runtime.KeepAlive(configProto)
		if err := statusErr(status); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
	}

	sessionPtr := tfNewSessionFunc(graphPtr, options, status)
	if err := statusErr(status); err != nil {
		return 0, err
	}

	h := handles.add(kindSession, sessionPtr, nil)
	currentLogger().Debug("session allocated",
		zap.Uint64("session", uint64(h)),
		zap.String("target", target))
	return h, nil
}

// SessionRun executes one synchronous run call against a session.
//
// inputTensors and inputs are parallel: inputTensors[i] feeds the endpoint
// inputs[i]. outputs names the endpoints to fetch; targets names operations
// executed for side effects only. The returned tensor handles are owned by
// the caller, ordered exactly like outputs, and must be released with
// DeleteTensor. When wantMetadata is true the captured run metadata is
// returned as a copied byte slice (possibly empty); otherwise no metadata is
// returned. On failure all transient native allocations are released and no
// output handles are created.
func SessionRun(session Handle, runOptions []byte, inputTensors []Handle,
	inputs []Output, outputs []Output, targets []Handle, wantMetadata bool) ([]Handle, []byte, error) {

	sessionPtr, closed, err := handles.resolveSession(session)
	if err != nil {
		return nil, nil, err
	}
	if closed {
		return nil, nil, fmt.Errorf("%w: run on handle %#x", ErrSessionClosed, uint64(session))
	}

	if len(inputTensors) != len(inputs) {
		return nil, nil, fmt.Errorf("%w: %d input tensors for %d input descriptors",
			ErrArityMismatch, len(inputTensors), len(inputs))
	}
	if tfSessionRunFunc == nil || tfNewStatusFunc == nil {
		return nil, nil, ErrNotInitialized
	}
	if wantMetadata && tfNewBufferFunc == nil {
		return nil, nil, ErrNotInitialized
	}

	inputValues, err := resolveTensors(inputTensors)
	if err != nil {
		return nil, nil, err
	}
	inputDescs, err := resolveOutputs(inputs)
	if err != nil {
		return nil, nil, err
	}
	outputDescs, err := resolveOutputs(outputs)
	if err != nil {
		return nil, nil, err
	}
	targetPtrs, err := resolveOperations(targets)
	if err != nil {
		return nil, nil, err
	}
	outputValues := make([]uintptr, len(outputs))

	status := newStatus()
	defer releaseStatus(status)

	runOptionsBuffer, err := newBufferFromBytes(runOptions)
	if err != nil {
		return nil, nil, err
	}
	defer releaseBuffer(runOptionsBuffer)

	var metadataBuffer uintptr
	if wantMetadata {
		metadataBuffer = tfNewBufferFunc()
	}
	defer releaseBuffer(metadataBuffer)

	tfSessionRunFunc(sessionPtr, runOptionsBuffer,
		sliceAddr(inputDescs), sliceAddr(inputValues), int32(len(inputValues)),
		sliceAddr(outputDescs), sliceAddr(outputValues), int32(len(outputDescs)),
		sliceAddr(targetPtrs), int32(len(targetPtrs)),
		metadataBuffer, status)
	runtime.KeepAlive(inputDescs)
	runtime.KeepAlive(inputValues)
	runtime.KeepAlive(outputDescs)
	runtime.KeepAlive(targetPtrs)

	if err := statusErr(status); err != nil {
		return nil, nil, err
	}

	outputHandles := adoptTensors(outputValues)
	var metadata []byte
	if wantMetadata {
		metadata = copyBufferBytes(metadataBuffer)
		if metadata == nil {
			metadata = []byte{}
		}
	}
	return outputHandles, metadata, nil
}

// SessionExtend re-synchronizes a session with graph nodes added since the
// last run or extend. Fails after close; fails with an UNIMPLEMENTED status
// when the loaded runtime does not export the extension entry point.
func SessionExtend(session Handle) error {
	sessionPtr, closed, err := handles.resolveSession(session)
	if err != nil {
		return err
	}
	if closed {
		return fmt.Errorf("%w: extend on handle %#x", ErrSessionClosed, uint64(session))
	}
	if tfNewStatusFunc == nil {
		return ErrNotInitialized
	}
	if tfExtendSessionFunc == nil {
		return &StatusError{
			Code:    CodeUnimplemented,
			Message: "TF_ExtendSession is not exported by the loaded runtime",
		}
	}

	status := newStatus()
	defer releaseStatus(status)

	tfExtendSessionFunc(sessionPtr, status)
	return statusErr(status)
}

// SessionClose requests orderly shutdown of a session. A close failure is
// reported to the caller but never blocks a later SessionDelete. The session
// leaves the runnable states on the first call either way; repeated close is
// permitted.
func SessionClose(session Handle) error {
	sessionPtr, _, err := handles.resolveSession(session)
	if err != nil {
		return err
	}
	if tfCloseSessionFunc == nil || tfNewStatusFunc == nil {
		return ErrNotInitialized
	}

	status := newStatus()
	defer releaseStatus(status)

	tfCloseSessionFunc(sessionPtr, status)
	_ = handles.markSessionClosed(session)
	return statusErr(status)
}

// SessionDelete releases a session's native state, closing it first if the
// caller has not. Deallocation is best-effort: native close and delete
// failures are discarded, since leaking the session forever is worse. The
// only reported error is a dead handle. The handle is invalidated before any
// native call, so concurrent use of it fails with ErrInvalidHandle rather
// than racing the teardown.
func SessionDelete(session Handle) error {
	_, closed, err := handles.resolveSession(session)
	if err != nil {
		return err
	}
	sessionPtr, err := handles.remove(session, kindSession)
	if err != nil {
		return err
	}

	if !closed && tfCloseSessionFunc != nil && tfNewStatusFunc != nil {
		status := newStatus()
		tfCloseSessionFunc(sessionPtr, status)
		releaseStatus(status)
	}
	if tfDeleteSessionFunc != nil && tfNewStatusFunc != nil {
		status := newStatus()
		tfDeleteSessionFunc(sessionPtr, status)
		releaseStatus(status)
	}

	currentLogger().Debug("session deleted", zap.Uint64("session", uint64(session)))
	return nil
}
