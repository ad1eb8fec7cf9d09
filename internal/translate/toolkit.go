package translate

import (
	"errors"

	"image-bridge/internal/logger"
	"image-bridge/internal/models"
)

var (
	ErrIncompatibleDimensions = errors.New("dataset cannot be represented as a legacy image")
)

// Allocator provides plane storage for newly built images.
type Allocator interface {
	NewPlane(elem models.ElementType, n int) (models.Plane, error)
	NewLegacyPlane(t models.PixelType, n int) (models.Plane, error)
}

type heapAllocator struct{}

// HeapAllocator allocates planes directly with no accounting.
func HeapAllocator() Allocator { return heapAllocator{} }

func (heapAllocator) NewPlane(elem models.ElementType, n int) (models.Plane, error) {
	return models.NewPlane(elem, n), nil
}

func (heapAllocator) NewLegacyPlane(t models.PixelType, n int) (models.Plane, error) {
	return models.NewLegacyPlane(t, n), nil
}

// Toolkit bundles one instance of every per-attribute harmonizer. The
// creators and the orchestrator share a Toolkit so the saved plane set by
// one is seen by the others.
type Toolkit struct {
	Gray        *GrayPixelHarmonizer
	Color       *ColorPixelHarmonizer
	Planes      PlaneHarmonizer
	Metadata    MetadataHarmonizer
	Composite   CompositeHarmonizer
	ColorTables *ColorTableHarmonizer
	Position    PositionHarmonizer
	Name        NameHarmonizer

	alloc Allocator
	log   logger.Logger
}

// NewToolkit builds the harmonizers. workers bounds concurrent plane copies;
// a nil allocator means HeapAllocator.
func NewToolkit(log logger.Logger, workers int, alloc Allocator) *Toolkit {
	if alloc == nil {
		alloc = HeapAllocator()
	}
	return &Toolkit{
		Gray:        NewGrayPixelHarmonizer(workers),
		Color:       NewColorPixelHarmonizer(workers),
		ColorTables: NewColorTableHarmonizer(log),
		alloc:       alloc,
		log:         log,
	}
}

// SavePlane hands the captured current plane to both pixel harmonizers.
func (t *Toolkit) SavePlane(index int, values []float64) {
	t.Gray.SavePlane(index, values)
	t.Color.SavePlane(index, values)
}

// ClearSavedPlane forgets the saved plane and returns its buffer.
func (t *Toolkit) ClearSavedPlane() []float64 {
	t.Color.ClearSavedPlane()
	return t.Gray.ClearSavedPlane()
}
