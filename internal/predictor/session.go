package predictor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// Session is a loaded, ready-to-run network.
type Session interface {
	// Run feeds input reshaped to shape and returns the flattened output.
	Run(shape []int, input []float32) ([]float32, error)
	Close() error
}

// OpenFunc opens a session for a local model file.
type OpenFunc func(modelPath string) (Session, error)

// Shape is one candidate input tensor layout.
type Shape struct {
	Name string
	Dims []int
}

// DefaultShapes are tried in order until the model accepts one.
var DefaultShapes = []Shape{
	{Name: "sequence", Dims: []int{1, 1, 63}},
	{Name: "flat", Dims: []int{1, 63}},
	{Name: "grouped", Dims: []int{1, 21, 3}},
}

// Elements returns the number of values the shape holds.
func (s Shape) Elements() int {
	n := 1
	for _, d := range s.Dims {
		n *= d
	}
	return n
}

// onnxSession runs an ONNX model through OpenCV's dnn module.
type onnxSession struct {
	mu  sync.Mutex
	net gocv.Net
}

// OpenONNXSession loads an ONNX model with gocv.
func OpenONNXSession(modelPath string) (Session, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("read onnx model %s: empty network", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}
	return &onnxSession{net: net}, nil
}

func (s *onnxSession) Run(shape []int, input []float32) (out []float32, err error) {
	if n := (Shape{Dims: shape}).Elements(); n != len(input) {
		return nil, fmt.Errorf("shape %v holds %d values, got %d", shape, n, len(input))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// OpenCV reports layer shape mismatches by raising; surface them as errors.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("forward with shape %v: %v", shape, r)
		}
	}()

	blob, err := gocv.NewMatWithSizesFromBytes(shape, gocv.MatTypeCV32F, float32Bytes(input))
	if err != nil {
		return nil, fmt.Errorf("build input blob: %w", err)
	}
	defer blob.Close()

	s.net.SetInput(blob, "")
	result := s.net.Forward("")
	defer result.Close()

	if result.Empty() {
		return nil, errors.New("empty output")
	}

	data, err := result.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	out = make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (s *onnxSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}

func float32Bytes(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
