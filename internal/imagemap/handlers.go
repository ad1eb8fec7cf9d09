package imagemap

import (
	"image-bridge/internal/eventbus"
)

const handlerPrefix = "imagemap."

// Subscribe attaches the session's lifecycle handlers to bus.
func (s *Session) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.DisplayDeleted, eventbus.HandlerFunc{ID: handlerPrefix + "display-deleted", Fn: s.onDisplayDeleted})
	bus.Subscribe(eventbus.DisplayUpdated, eventbus.HandlerFunc{ID: handlerPrefix + "display-updated", Fn: s.onDisplayUpdated})
	bus.Subscribe(eventbus.LegacyChanged, eventbus.HandlerFunc{ID: handlerPrefix + "legacy-changed", Fn: s.onLegacyChanged})
	bus.Subscribe(eventbus.LegacyClosed, eventbus.HandlerFunc{ID: handlerPrefix + "legacy-closed", Fn: s.onLegacyClosed})
}

func (s *Session) onDisplayDeleted(e eventbus.Event) {
	if e.Display == nil {
		return
	}
	s.m.UnregisterDisplay(e.Display, true)
}

// onDisplayUpdated pushes display edits to the paired legacy image. In
// legacy mode an unpaired display gets its counterpart here.
func (s *Session) onDisplayUpdated(e eventbus.Event) {
	if e.Display == nil || e.Display.Closed() {
		return
	}
	mode := s.Mode()
	imp := s.m.LookupLegacyImage(mode, e.Display)
	if imp == nil {
		if mode != ModeLegacy {
			return
		}
		if _, err := s.m.RegisterDisplay(mode, e.Display); err != nil {
			s.log.Error("Session", err, map[string]interface{}{"display": e.Display.Name()})
		}
		return
	}

	if err := s.m.Harmonizer().UpdateLegacyImage(e.Display, imp); err != nil {
		s.log.Error("Session", err, map[string]interface{}{"display": e.Display.Name()})
		return
	}
	s.windows.Refresh(imp)
}

// onLegacyChanged pulls legacy edits into the paired display. In legacy
// mode an unpaired image is registered. Either way the change ends a legacy
// command.
func (s *Session) onLegacyChanged(e eventbus.Event) {
	if e.Legacy == nil {
		return
	}
	defer s.m.EndCommand()
	mode := s.Mode()
	display := s.m.LookupDisplay(mode, e.Legacy)
	if display == nil {
		if mode != ModeLegacy {
			return
		}
		if _, err := s.m.RegisterLegacyImage(mode, e.Legacy); err != nil {
			s.log.Error("Session", err, map[string]interface{}{"image": e.Legacy.Title()})
		}
		return
	}

	if err := s.m.Harmonizer().UpdateDisplay(display, e.Legacy); err != nil {
		s.log.Error("Session", err, map[string]interface{}{"image": e.Legacy.Title()})
		return
	}
	s.windows.Refresh(e.Legacy)
}

// onLegacyClosed drops pairings made unreachable by a closed window. In
// modern mode the display survives the window.
func (s *Session) onLegacyClosed(e eventbus.Event) {
	if e.Legacy == nil {
		return
	}
	defer s.m.EndCommand()
	if s.Mode() == ModeLegacy {
		s.m.Sweep()
		return
	}
	s.m.UnregisterLegacyImage(e.Legacy, false)
}
