package models

import (
	"fmt"
	"math"
)

// Sample is any numeric type a plane buffer can hold.
type Sample interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

// Plane is one 2-D slab of samples in row-major order. Value and SetValue
// operate on the raw stored number with no bias or clamping applied.
type Plane interface {
	Len() int
	Value(i int) float64
	SetValue(i int, v float64)
	// Pixels returns the backing slice, e.g. []uint16.
	Pixels() any
	// Clone returns an independent deep copy.
	Clone() Plane
}

// Buffer is the generic Plane implementation.
type Buffer[T Sample] struct {
	Data []T
}

// NewBuffer allocates a zeroed buffer of n samples.
func NewBuffer[T Sample](n int) *Buffer[T] {
	return &Buffer[T]{Data: make([]T, n)}
}

// Wrap uses data as the buffer without copying it.
func Wrap[T Sample](data []T) *Buffer[T] {
	return &Buffer[T]{Data: data}
}

func (b *Buffer[T]) Len() int { return len(b.Data) }

func (b *Buffer[T]) Value(i int) float64 { return float64(b.Data[i]) }

func (b *Buffer[T]) SetValue(i int, v float64) {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		b.Data[i] = T(v)
	default:
		b.Data[i] = T(math.Round(v))
	}
}

func (b *Buffer[T]) Pixels() any { return b.Data }

func (b *Buffer[T]) Clone() Plane {
	data := make([]T, len(b.Data))
	copy(data, b.Data)
	return &Buffer[T]{Data: data}
}

// NewPlane allocates a plane whose Go type matches the element type.
func NewPlane(elem ElementType, n int) Plane {
	switch elem.Kind {
	case KindBit, KindUint8:
		return NewBuffer[uint8](n)
	case KindInt8:
		return NewBuffer[int8](n)
	case KindInt16:
		return NewBuffer[int16](n)
	case KindUint16:
		return NewBuffer[uint16](n)
	case KindInt32:
		return NewBuffer[int32](n)
	case KindUint32:
		return NewBuffer[uint32](n)
	case KindFloat32:
		return NewBuffer[float32](n)
	case KindFloat64:
		return NewBuffer[float64](n)
	}
	panic(fmt.Sprintf("no plane storage for element type %s", elem.Name))
}

// NewLegacyPlane allocates a plane in the native layout of a legacy pixel type.
func NewLegacyPlane(t PixelType, n int) Plane {
	switch t {
	case Gray8:
		return NewBuffer[uint8](n)
	case Gray16:
		return NewBuffer[uint16](n)
	case Gray32:
		return NewBuffer[float32](n)
	case ColorRGB:
		return NewBuffer[uint32](n)
	}
	panic(fmt.Sprintf("unknown legacy pixel type %d", t))
}

// PlaneValues copies a plane into a float64 slice, reusing dst when it is
// large enough.
func PlaneValues(p Plane, dst []float64) []float64 {
	n := p.Len()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = p.Value(i)
	}
	return dst
}
