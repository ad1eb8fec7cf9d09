package memory

import (
	"fmt"
	"runtime"
	"sync"

	"image-bridge/internal/logger"
	"image-bridge/internal/models"
)

// Manager accounts for plane allocations and refuses new planes once the
// configured limit of live bytes is reached. Planes are released when the
// garbage collector finalizes them.
type Manager struct {
	mu    sync.Mutex
	stats Stats
	log   logger.Logger
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActivePlanes   int64
	MaxAllowed     int64
}

// Live is the number of bytes currently held by planes.
func (s Stats) Live() int64 {
	return s.TotalAllocated - s.TotalReleased
}

// NewManager creates a manager; a limit of zero or less disables the cap.
func NewManager(limit int64, log logger.Logger) *Manager {
	return &Manager{
		stats: Stats{MaxAllowed: limit},
		log:   log,
	}
}

// NewPlane allocates dataset storage for n samples of elem.
func (m *Manager) NewPlane(elem models.ElementType, n int) (models.Plane, error) {
	size := int64(n) * int64(elem.BytesPerSample())
	if err := m.reserve(size); err != nil {
		return nil, err
	}
	p := models.NewPlane(elem, n)
	m.track(p, size)
	return p, nil
}

// NewLegacyPlane allocates legacy storage for n samples of type t.
func (m *Manager) NewLegacyPlane(t models.PixelType, n int) (models.Plane, error) {
	size := int64(n) * int64(legacySampleSize(t))
	if err := m.reserve(size); err != nil {
		return nil, err
	}
	p := models.NewLegacyPlane(t, n)
	m.track(p, size)
	return p, nil
}

func (m *Manager) reserve(size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stats.MaxAllowed > 0 && m.stats.Live()+size > m.stats.MaxAllowed {
		err := fmt.Errorf("memory limit exceeded: %d bytes live, %d requested, limit %d",
			m.stats.Live(), size, m.stats.MaxAllowed)
		m.log.Error("MemoryManager", err, nil)
		return err
	}
	m.stats.TotalAllocated += size
	m.stats.ActivePlanes++
	return nil
}

func (m *Manager) track(p models.Plane, size int64) {
	runtime.SetFinalizer(p, func(models.Plane) {
		m.release(size)
	})
}

func (m *Manager) release(size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.TotalReleased += size
	m.stats.ActivePlanes--
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func legacySampleSize(t models.PixelType) int {
	switch t {
	case models.Gray8:
		return 1
	case models.Gray16:
		return 2
	}
	return 4
}
