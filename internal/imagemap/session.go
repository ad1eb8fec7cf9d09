package imagemap

import (
	"sync"

	"image-bridge/internal/logger"
	"image-bridge/internal/models"
	"image-bridge/internal/window"
)

// Session carries the current mode alongside the map so callers never read
// a global switch.
type Session struct {
	m       *Map
	windows window.Manager
	log     logger.Logger

	mu   sync.RWMutex
	mode Mode
}

func NewSession(m *Map, windows window.Manager, mode Mode, log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{m: m, windows: windows, mode: mode, log: log}
}

func (s *Session) Map() *Map { return s.m }

func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode runs the transition and records the new mode. The mode is
// recorded even when some pairings failed to migrate; the error lists them.
func (s *Session) SetMode(to Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.m.SetMode(to)
	s.mode = to
	if err != nil {
		s.log.Error("Session", err, map[string]interface{}{"mode": to.String()})
	}
	return err
}

// ToggleMode switches between modern and legacy.
func (s *Session) ToggleMode() (Mode, error) {
	to := ModeLegacy
	if s.Mode() == ModeLegacy {
		to = ModeModern
	}
	return to, s.SetMode(to)
}

func (s *Session) RegisterDisplay(d *models.Display) (*models.LegacyImage, error) {
	return s.m.RegisterDisplay(s.Mode(), d)
}

func (s *Session) RegisterLegacyImage(imp *models.LegacyImage) (*models.Display, error) {
	return s.m.RegisterLegacyImage(s.Mode(), imp)
}

func (s *Session) RegisterDataset(ds *models.Dataset) (*models.Display, *models.LegacyImage, error) {
	return s.m.RegisterDataset(s.Mode(), ds)
}

func (s *Session) LookupLegacyImage(d *models.Display) *models.LegacyImage {
	return s.m.LookupLegacyImage(s.Mode(), d)
}

func (s *Session) LookupDisplay(imp *models.LegacyImage) *models.Display {
	return s.m.LookupDisplay(s.Mode(), imp)
}
