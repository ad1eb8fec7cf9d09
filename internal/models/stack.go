package models

import "fmt"

// Stack is the ordered plane list of a LegacyImage.
type Stack interface {
	Width() int
	Height() int
	Size() int
	// Plane returns plane i. For virtual stacks the result is only valid
	// until the next call.
	Plane(i int) Plane
	SetPlane(i int, p Plane)
	Virtual() bool
}

// ArrayStack keeps every plane in memory.
type ArrayStack struct {
	width, height int
	planes        []Plane
}

// NewArrayStack wraps planes; each must hold width*height samples.
func NewArrayStack(width, height int, planes []Plane) (*ArrayStack, error) {
	for i, p := range planes {
		if p.Len() != width*height {
			return nil, fmt.Errorf("plane %d holds %d samples, want %d", i, p.Len(), width*height)
		}
	}
	return &ArrayStack{width: width, height: height, planes: planes}, nil
}

func (s *ArrayStack) Width() int    { return s.width }
func (s *ArrayStack) Height() int   { return s.height }
func (s *ArrayStack) Size() int     { return len(s.planes) }
func (s *ArrayStack) Virtual() bool { return false }

func (s *ArrayStack) Plane(i int) Plane {
	return s.planes[i]
}

func (s *ArrayStack) SetPlane(i int, p Plane) {
	s.planes[i] = p
}

// PlaneLoader produces plane i of a virtual stack on demand.
type PlaneLoader func(i int) Plane

// VirtualStack loads planes lazily and caches only the last one requested.
// Edits made to a returned plane are lost once another plane is loaded.
type VirtualStack struct {
	width, height int
	size          int
	load          PlaneLoader
	cacheIndex    int
	cache         Plane
}

func NewVirtualStack(width, height, size int, load PlaneLoader) *VirtualStack {
	return &VirtualStack{width: width, height: height, size: size, load: load, cacheIndex: -1}
}

func (s *VirtualStack) Width() int  { return s.width }
func (s *VirtualStack) Height() int { return s.height }
func (s *VirtualStack) Size() int   { return s.size }

func (s *VirtualStack) Plane(i int) Plane {
	if i != s.cacheIndex {
		s.cache = s.load(i)
		s.cacheIndex = i
	}
	return s.cache
}

// SetPlane replaces the cached plane when i is the cached index. Other
// indices are backed by the loader and cannot be written.
func (s *VirtualStack) SetPlane(i int, p Plane) {
	if i == s.cacheIndex {
		s.cache = p
	}
}

func (s *VirtualStack) Virtual() bool { return true }
