package models

import "math"

// ElementKind enumerates the numeric element types a Dataset can hold.
type ElementKind int

const (
	KindBit ElementKind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindFloat32
	KindFloat64
)

// ElementType describes a Dataset's numeric element type.
type ElementType struct {
	Kind    ElementKind
	Name    string
	Bits    int
	Signed  bool
	Integer bool
	Min     float64
	Max     float64
}

var (
	Bit     = ElementType{KindBit, "bit", 1, false, true, 0, 1}
	Int8    = ElementType{KindInt8, "int8", 8, true, true, math.MinInt8, math.MaxInt8}
	Uint8   = ElementType{KindUint8, "uint8", 8, false, true, 0, math.MaxUint8}
	Int16   = ElementType{KindInt16, "int16", 16, true, true, math.MinInt16, math.MaxInt16}
	Uint16  = ElementType{KindUint16, "uint16", 16, false, true, 0, math.MaxUint16}
	Int32   = ElementType{KindInt32, "int32", 32, true, true, math.MinInt32, math.MaxInt32}
	Uint32  = ElementType{KindUint32, "uint32", 32, false, true, 0, math.MaxUint32}
	Float32 = ElementType{KindFloat32, "float32", 32, true, false, -math.MaxFloat32, math.MaxFloat32}
	Float64 = ElementType{KindFloat64, "float64", 64, true, false, -math.MaxFloat64, math.MaxFloat64}
)

// Clamp limits v to the representable range of the element type. NaN
// survives in floating types and becomes 0, clamped, in integer ones.
func (e ElementType) Clamp(v float64) float64 {
	if !e.Integer && math.IsNaN(v) {
		return v
	}
	return Clamp(v, e.Min, e.Max)
}

func (e ElementType) String() string { return e.Name }

// BytesPerSample is the storage size of one sample.
func (e ElementType) BytesPerSample() int {
	if e.Bits <= 8 {
		return 1
	}
	return e.Bits / 8
}

// Clamp limits v to [lo, hi]. NaN is treated as 0.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
