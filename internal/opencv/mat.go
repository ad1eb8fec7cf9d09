// Package opencv runs OpenCV filters on legacy image planes.
package opencv

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

var ErrInvalidMat = errors.New("mat is closed or empty")

// Mat wraps a gocv.Mat so it is released exactly once, with a finalizer as
// the fallback when Close is never called.
type Mat struct {
	mat     gocv.Mat
	isValid int32
	mu      sync.RWMutex
	id      uint64
}

var nextMatID uint64

func NewMat(rows, cols int, matType gocv.MatType) (*Mat, error) {
	if err := ValidateDimensions(cols, rows, "mat allocation"); err != nil {
		return nil, err
	}

	mat := gocv.NewMatWithSize(rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create mat with size %dx%d", cols, rows)
	}
	return wrap(mat), nil
}

func wrap(mat gocv.Mat) *Mat {
	m := &Mat{
		mat:     mat,
		isValid: 1,
		id:      atomic.AddUint64(&nextMatID, 1),
	}
	runtime.SetFinalizer(m, (*Mat).finalize)
	return m
}

func (m *Mat) ID() uint64 { return m.id }

func (m *Mat) IsValid() bool {
	return atomic.LoadInt32(&m.isValid) == 1
}

func (m *Mat) Empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.IsValid() {
		return true
	}
	return m.mat.Empty()
}

func (m *Mat) Rows() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mat.Rows()
}

func (m *Mat) Cols() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mat.Cols()
}

func (m *Mat) Channels() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mat.Channels()
}

// Raw returns the wrapped mat; it stays owned by m.
func (m *Mat) Raw() *gocv.Mat {
	return &m.mat
}

func (m *Mat) Close() {
	if !atomic.CompareAndSwapInt32(&m.isValid, 1, 0) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mat.Close()
	runtime.SetFinalizer(m, nil)
}

func (m *Mat) finalize() {
	if atomic.CompareAndSwapInt32(&m.isValid, 1, 0) {
		m.mat.Close()
	}
}

func ValidateMat(m *Mat, operation string) error {
	if m == nil {
		return fmt.Errorf("%s: nil mat", operation)
	}
	if !m.IsValid() || m.Empty() {
		return fmt.Errorf("%s: %w", operation, ErrInvalidMat)
	}
	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}
	if width > 32768 || height > 32768 {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}
	return nil
}
