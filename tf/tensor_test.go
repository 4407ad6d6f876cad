package tf

import (
	"errors"
	"strings"
	"testing"
)

func TestNewTensorRoundTrip(t *testing.T) {
	newFakeNative(t)

	in := []float32{1.5, -2.25, 3.0, 0.0, 42.5, -7.125}
	tensor, err := NewTensor(NewShape(2, 3), in)
	if err != nil {
		t.Fatalf("failed to create tensor: %v", err)
	}

	dtype, err := TensorType(tensor)
	if err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}
	if dtype != TypeFloat {
		t.Errorf("expected TypeFloat, got %v", dtype)
	}

	shape, err := TensorShape(tensor)
	if err != nil {
		t.Fatalf("unexpected shape error: %v", err)
	}
	if len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Errorf("expected shape [2 3], got %v", shape)
	}

	out, err := TensorData[float32](tensor)
	if err != nil {
		t.Fatalf("unexpected data error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d elements, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("element %d: expected %v, got %v", i, in[i], out[i])
		}
	}

	if err := DeleteTensor(tensor); err != nil {
		t.Fatalf("failed to delete tensor: %v", err)
	}
}

func TestNewTensorSupportedTypes(t *testing.T) {
	newFakeNative(t)

	if _, err := NewTensor(NewShape(2), []float64{1, 2}); err != nil {
		t.Errorf("float64: unexpected error: %v", err)
	}
	if _, err := NewTensor(NewShape(2), []int32{1, 2}); err != nil {
		t.Errorf("int32: unexpected error: %v", err)
	}
	if _, err := NewTensor(NewShape(2), []int64{1, 2}); err != nil {
		t.Errorf("int64: unexpected error: %v", err)
	}

	_, err := NewTensor(NewShape(2), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error for unsupported element type")
	}
	if !strings.Contains(err.Error(), "unsupported tensor element type") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestNewTensorShapeDataMismatch(t *testing.T) {
	newFakeNative(t)

	_, err := NewTensor(NewShape(2, 2), []float32{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for shape/data mismatch")
	}
	if !strings.Contains(err.Error(), "data length mismatch") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestNewTensorScalar(t *testing.T) {
	newFakeNative(t)

	tensor, err := NewTensor(NewShape(), []float32{3.5})
	if err != nil {
		t.Fatalf("failed to create scalar tensor: %v", err)
	}

	shape, err := TensorShape(tensor)
	if err != nil {
		t.Fatalf("unexpected shape error: %v", err)
	}
	if len(shape) != 0 {
		t.Errorf("expected rank-0 shape, got %v", shape)
	}

	out, err := TensorData[float32](tensor)
	if err != nil {
		t.Fatalf("unexpected data error: %v", err)
	}
	if len(out) != 1 || out[0] != 3.5 {
		t.Errorf("expected [3.5], got %v", out)
	}
}

func TestTensorDataTypeMismatch(t *testing.T) {
	newFakeNative(t)

	tensor, err := NewTensor(NewShape(2), []float32{1, 2})
	if err != nil {
		t.Fatalf("failed to create tensor: %v", err)
	}

	_, err = TensorData[int64](tensor)
	if err == nil {
		t.Fatal("expected error for element type mismatch")
	}
	if !strings.Contains(err.Error(), "element type mismatch") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestDeleteTensorReleasesNativeTensor(t *testing.T) {
	f := newFakeNative(t)

	tensor, err := NewTensor(NewShape(2), []int32{1, 2})
	if err != nil {
		t.Fatalf("failed to create tensor: %v", err)
	}
	if err := DeleteTensor(tensor); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if f.tensorDeletes != 1 {
		t.Errorf("expected 1 native tensor delete, got %d", f.tensorDeletes)
	}

	if _, err := TensorData[int32](tensor); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle after delete, got %v", err)
	}
	if err := DeleteTensor(tensor); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle on double delete, got %v", err)
	}
}

func TestDeleteTensorReleasesRunOutputs(t *testing.T) {
	f := newFakeNative(t)
	out := f.newTensorPtr(int32(TypeFloat), []int64{1}, []byte{0, 0, 0, 0})
	f.runOutputs = []uintptr{out}

	graph, session := newTestSession(t)
	op := mustOperation(t, f, graph, "output")

	outputs, _, err := SessionRun(session, nil, nil, nil, []Output{{Op: op}}, nil, false)
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(outputs))
	}

	if err := DeleteTensor(outputs[0]); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if f.tensorDeletes != 1 {
		t.Errorf("expected adopted output tensor released natively, got %d deletes", f.tensorDeletes)
	}
}

func TestNewTensorNotInitialized(t *testing.T) {
	resetEnvironmentState()

	if _, err := NewTensor(NewShape(1), []float32{1}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}
