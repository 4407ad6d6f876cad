package tf

import (
	"fmt"
)

// NewGraph allocates an empty native computation graph.
func NewGraph() (Handle, error) {
	if tfNewGraphFunc == nil {
		return 0, ErrNotInitialized
	}

	ptr := tfNewGraphFunc()
	if ptr == 0 {
		return 0, fmt.Errorf("failed to allocate graph")
	}
	return handles.add(kindGraph, ptr, nil), nil
}

// DeleteGraph releases a graph and invalidates every operation handle
// resolved from it. Sessions bound to the graph keep their native graph
// state alive; only the host-side handle dies here.
func DeleteGraph(graph Handle) error {
	ptr, err := handles.remove(graph, kindGraph)
	if err != nil {
		return err
	}
	if tfDeleteGraphFunc != nil {
		tfDeleteGraphFunc(ptr)
	}
	return nil
}

// GraphOperationByName looks up an operation in a live graph and returns a
// handle to it. The handle is owned by the graph: deleting the graph
// invalidates it.
func GraphOperationByName(graph Handle, name string) (Handle, error) {
	graphPtr, err := handles.resolve(graph, kindGraph)
	if err != nil {
		return 0, err
	}
	if tfGraphOperationByNameFunc == nil {
		return 0, ErrNotInitialized
	}

	opPtr := tfGraphOperationByNameFunc(graphPtr, name)
	if opPtr == 0 {
		return 0, fmt.Errorf("no operation named %q in graph", name)
	}
	return handles.addOwned(kindOperation, opPtr, graph, nil), nil
}

// OperationName returns the native name of an operation handle.
func OperationName(operation Handle) (string, error) {
	opPtr, err := handles.resolve(operation, kindOperation)
	if err != nil {
		return "", err
	}
	if tfOperationNameFunc == nil {
		return "", ErrNotInitialized
	}
	return tfOperationNameFunc(opPtr), nil
}

// GraphImportGraphDef merges a serialized GraphDef into a live graph,
// optionally prefixing imported node names. The transient import options and
// buffer are released on every outcome.
func GraphImportGraphDef(graph Handle, graphDef []byte, prefix string) error {
	graphPtr, err := handles.resolve(graph, kindGraph)
	if err != nil {
		return err
	}
	if len(graphDef) == 0 {
		return fmt.Errorf("empty graph definition")
	}
	if tfGraphImportGraphDefFunc == nil || tfNewImportGraphDefOptionsFunc == nil || tfNewStatusFunc == nil {
		return ErrNotInitialized
	}

	status := newStatus()
	defer releaseStatus(status)

	buffer, err := newBufferFromBytes(graphDef)
	if err != nil {
		return err
	}
	defer releaseBuffer(buffer)

	options := tfNewImportGraphDefOptionsFunc()
	defer func() {
		if tfDeleteImportGraphDefOptionsFunc != nil {
			tfDeleteImportGraphDefOptionsFunc(options)
		}
	}()
	if prefix != "" && tfImportGraphDefOptionsSetPrefixFunc != nil {
		tfImportGraphDefOptionsSetPrefixFunc(options, prefix)
	}

	tfGraphImportGraphDefFunc(graphPtr, buffer, options, status)
	return statusErr(status)
}

// GraphToGraphDef serializes a live graph into a caller-owned GraphDef byte
// slice; the native buffer is released before returning.
func GraphToGraphDef(graph Handle) ([]byte, error) {
	graphPtr, err := handles.resolve(graph, kindGraph)
	if err != nil {
		return nil, err
	}
	if tfGraphToGraphDefFunc == nil || tfNewBufferFunc == nil || tfNewStatusFunc == nil {
		return nil, ErrNotInitialized
	}

	status := newStatus()
	defer releaseStatus(status)

	buffer := tfNewBufferFunc()
	defer releaseBuffer(buffer)

	tfGraphToGraphDefFunc(graphPtr, buffer, status)
	if err := statusErr(status); err != nil {
		return nil, err
	}

	def := copyBufferBytes(buffer)
	if def == nil {
		def = []byte{}
	}
	return def, nil
}
