// Package imagemap pairs legacy images with displays and keeps the pairs
// alive across mode changes.
package imagemap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"image-bridge/internal/logger"
	"image-bridge/internal/models"
	"image-bridge/internal/translate"
	"image-bridge/internal/window"
)

var (
	// ErrRegistrationCycle is returned when an object is registered again
	// while its own registration is still building the counterpart.
	ErrRegistrationCycle = errors.New("registration cycle")
	// ErrDuplicatePairing reports a table state where one object is paired
	// twice.
	ErrDuplicatePairing = errors.New("duplicate pairing")
)

// Mode selects which side is authoritative.
type Mode int

const (
	ModeModern Mode = iota
	ModeLegacy
)

func (m Mode) String() string {
	if m == ModeLegacy {
		return "legacy"
	}
	return "modern"
}

// Ownership tags how strongly the map holds a pairing.
type Ownership int

const (
	// Owned pairings live until explicitly unregistered.
	Owned Ownership = iota
	// Observed pairings are dropped by Sweep once the legacy image is no
	// longer reachable from a window or the selection.
	Observed
)

func (o Ownership) String() string {
	if o == Observed {
		return "observed"
	}
	return "owned"
}

func ownershipFor(mode Mode) Ownership {
	if mode == ModeLegacy {
		return Observed
	}
	return Owned
}

// Pairing is one legacy image and the display it corresponds to.
type Pairing struct {
	Legacy    *models.LegacyImage
	Display   *models.Display
	Ownership Ownership
}

type table struct {
	byDisplay map[*models.Display]*Pairing
	byLegacy  map[*models.LegacyImage]*Pairing
}

func newTable() table {
	return table{
		byDisplay: make(map[*models.Display]*Pairing),
		byLegacy:  make(map[*models.LegacyImage]*Pairing),
	}
}

func (t table) put(p *Pairing) {
	t.byDisplay[p.Display] = p
	t.byLegacy[p.Legacy] = p
}

func (t table) drop(p *Pairing) {
	if t.byDisplay[p.Display] == p {
		delete(t.byDisplay, p.Display)
	}
	if t.byLegacy[p.Legacy] == p {
		delete(t.byLegacy, p.Legacy)
	}
}

// Displays is the display registry and selection state the map consults.
type Displays interface {
	Displays() []*models.Display
	Add(d *models.Display)
	Remove(d *models.Display)
	ActiveLegacyImage() *models.LegacyImage
	TemporaryActive() *models.LegacyImage
	SetTemporaryActive(imp *models.LegacyImage)
}

// Disposer hands window disposal to the owner thread.
type Disposer interface {
	Submit(name string, run func() error) error
}

type Options struct {
	Harmonizer *translate.Harmonizer
	Windows    window.Manager
	Displays   Displays
	Disposer   Disposer
	Logger     logger.Logger
}

// Map is the identity map. Table mutation and mode transitions are
// serialized by one lock; SetMode holds it for its whole run, so
// collaborators it calls must not re-enter the map synchronously.
type Map struct {
	mu         sync.Mutex
	owned      table
	observed   table
	inProgress map[any]struct{}
	// mode is the target of the last SetMode and transitions counts the
	// calls, so a registration can tell that a transition ran while it was
	// building the counterpart unlocked.
	mode        Mode
	transitions uint64

	harmonizer *translate.Harmonizer
	windows    window.Manager
	displays   Displays
	disposer   Disposer
	log        logger.Logger
}

func New(opts Options) *Map {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Map{
		owned:      newTable(),
		observed:   newTable(),
		inProgress: make(map[any]struct{}),
		harmonizer: opts.Harmonizer,
		windows:    opts.Windows,
		displays:   opts.Displays,
		disposer:   opts.Disposer,
		log:        log,
	}
}

// Harmonizer returns the orchestrator used for every pairing.
func (m *Map) Harmonizer() *translate.Harmonizer { return m.harmonizer }

// RegisterDisplay returns the legacy image paired with display, building
// one when none exists yet. When a mode transition runs while the legacy
// image is being built, the pairing settles in the mode the transition
// left behind.
func (m *Map) RegisterDisplay(mode Mode, display *models.Display) (*models.LegacyImage, error) {
	if display == nil {
		return nil, fmt.Errorf("register display: %w", models.ErrNilImage)
	}

	m.mu.Lock()
	if p := m.findByDisplay(display); p != nil {
		m.mu.Unlock()
		return p.Legacy, nil
	}
	if err := m.beginLocked(display, display.Name()); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	seen := m.transitions
	m.mu.Unlock()
	defer m.end(display)

	imp, err := m.harmonizer.LegacyCreator().CreateLegacyImage(display.Dataset(), display)
	if err != nil {
		return nil, fmt.Errorf("register display %q: %w", display.Name(), err)
	}
	m.displays.Add(display)

	m.mu.Lock()
	mode = m.settledModeLocked(mode, seen)
	if mode == ModeLegacy {
		m.showLocked(imp)
	}
	m.harmonizer.RegisterType(imp)
	m.addMappingLocked(display, imp, ownershipFor(mode))
	m.mu.Unlock()

	m.log.Debug("ImageMap", "display registered", map[string]interface{}{
		"display": display.Name(),
		"mode":    mode.String(),
	})
	return imp, nil
}

// RegisterLegacyImage returns the display paired with imp, building a
// dataset and display when none exists yet. A transition that runs
// meanwhile is settled the same way as for RegisterDisplay.
func (m *Map) RegisterLegacyImage(mode Mode, imp *models.LegacyImage) (*models.Display, error) {
	if imp == nil {
		return nil, fmt.Errorf("register legacy image: %w", models.ErrNilImage)
	}

	m.mu.Lock()
	if p := m.findByLegacy(imp); p != nil {
		m.mu.Unlock()
		return p.Display, nil
	}
	if err := m.beginLocked(imp, imp.Title()); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	seen := m.transitions
	m.mu.Unlock()
	defer m.end(imp)

	display, err := m.harmonizer.DisplayCreator().CreateDisplay(imp)
	if err != nil {
		return nil, fmt.Errorf("register legacy image %q: %w", imp.Title(), err)
	}
	m.harmonizer.RegisterType(imp)

	m.mu.Lock()
	m.inProgress[display] = struct{}{}
	m.mu.Unlock()
	defer m.end(display)
	m.displays.Add(display)

	m.mu.Lock()
	moved := m.transitions != seen
	mode = m.settledModeLocked(mode, seen)
	if moved && mode == ModeLegacy {
		m.showLocked(imp)
	}
	m.addMappingLocked(display, imp, ownershipFor(mode))
	m.mu.Unlock()

	m.log.Debug("ImageMap", "legacy image registered", map[string]interface{}{
		"image": imp.Title(),
		"mode":  mode.String(),
	})
	return display, nil
}

// RegisterDataset wraps ds in a new display and registers it.
func (m *Map) RegisterDataset(mode Mode, ds *models.Dataset) (*models.Display, *models.LegacyImage, error) {
	if ds == nil || ds.Img() == nil {
		return nil, nil, fmt.Errorf("register dataset: %w", models.ErrNilImage)
	}
	display := models.NewDisplay(ds)
	imp, err := m.RegisterDisplay(mode, display)
	if err != nil {
		return nil, nil, err
	}
	return display, imp, nil
}

// LookupLegacyImage returns the legacy image paired with display, or nil.
// The table authoritative for mode is consulted first.
func (m *Map) LookupLegacyImage(mode Mode, display *models.Display) *models.LegacyImage {
	m.mu.Lock()
	defer m.mu.Unlock()

	first, second := m.tablesFor(mode)
	if p := first.byDisplay[display]; p != nil {
		return p.Legacy
	}
	if p := second.byDisplay[display]; p != nil {
		return p.Legacy
	}
	return nil
}

// LookupDisplay returns the display paired with imp, or nil.
func (m *Map) LookupDisplay(mode Mode, imp *models.LegacyImage) *models.Display {
	m.mu.Lock()
	defer m.mu.Unlock()

	first, second := m.tablesFor(mode)
	if p := first.byLegacy[imp]; p != nil {
		return p.Display
	}
	if p := second.byLegacy[imp]; p != nil {
		return p.Display
	}
	return nil
}

// UnregisterDisplay removes the pairing of display. With deleteLegacy the
// legacy window is disposed on the owner thread; otherwise the legacy image
// is only cleared from the temporary selection.
func (m *Map) UnregisterDisplay(display *models.Display, deleteLegacy bool) {
	m.mu.Lock()
	p := m.findByDisplay(display)
	if p != nil {
		m.removeLocked(p)
	}
	m.mu.Unlock()
	if p == nil {
		return
	}

	m.harmonizer.Forget(p.Legacy)
	if deleteLegacy {
		m.disposeLegacy(p.Legacy)
	} else {
		m.clearTemporary(p.Legacy)
	}
	m.log.Debug("ImageMap", "display unregistered", map[string]interface{}{
		"display":       display.Name(),
		"delete_legacy": deleteLegacy,
	})
}

// UnregisterLegacyImage removes the pairing of imp. With deleteDisplay the
// paired display is closed and dropped from the registry.
func (m *Map) UnregisterLegacyImage(imp *models.LegacyImage, deleteDisplay bool) {
	m.mu.Lock()
	p := m.findByLegacy(imp)
	if p != nil {
		m.removeLocked(p)
	}
	m.mu.Unlock()
	if p == nil {
		return
	}

	m.harmonizer.Forget(imp)
	if deleteDisplay {
		p.Display.Close()
		m.displays.Remove(p.Display)
	} else {
		m.clearTemporary(imp)
	}
	m.log.Debug("ImageMap", "legacy image unregistered", map[string]interface{}{
		"image":          imp.Title(),
		"delete_display": deleteDisplay,
	})
}

// SetMode moves every pairing into the tables of the target mode. Entering
// legacy mode creates or refreshes a legacy image for every display and
// tags the pairing observed. Leaving it drops pairings whose legacy window
// closed, closing their display, and refreshes the rest into owned
// pairings. Calling it again with the same target is a no-op.
func (m *Map) SetMode(to Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mode = to
	m.transitions++
	if to == ModeLegacy {
		return m.enterLegacyLocked()
	}
	return m.leaveLegacyLocked()
}

// settledModeLocked returns the mode a registration that started at
// transition count seen must use: the caller's mode, or the map's current
// mode once a transition has run in between.
func (m *Map) settledModeLocked(mode Mode, seen uint64) Mode {
	if m.transitions != seen {
		return m.mode
	}
	return mode
}

func (m *Map) showLocked(imp *models.LegacyImage) {
	if m.windows.IsOpen(imp) {
		return
	}
	if err := m.windows.Show(imp); err != nil {
		m.log.Warning("ImageMap", "legacy window not shown", map[string]interface{}{
			"image": imp.Title(),
			"error": err.Error(),
		})
	}
}

func (m *Map) enterLegacyLocked() error {
	var errs []error
	for _, display := range m.knownDisplaysLocked() {
		if display.Closed() {
			continue
		}
		// Registrations still building settle into legacy mode themselves.
		if _, busy := m.inProgress[display]; busy {
			continue
		}
		p := m.findByDisplay(display)
		if p != nil && p.Ownership == Observed {
			continue
		}

		var imp *models.LegacyImage
		if p == nil {
			if !translate.DimensionsCompatible(display.Dataset()) {
				m.log.Warning("ImageMap", "display has no legacy form", map[string]interface{}{
					"display": display.Name(),
				})
				continue
			}
			created, err := m.harmonizer.LegacyCreator().CreateLegacyImage(display.Dataset(), display)
			if err != nil {
				errs = append(errs, fmt.Errorf("display %q: %w", display.Name(), err))
				continue
			}
			imp = created
		} else {
			imp = p.Legacy
			imp.Unlock()
			if err := m.harmonizer.UpdateLegacyImage(display, imp); err != nil {
				errs = append(errs, fmt.Errorf("display %q: %w", display.Name(), err))
				continue
			}
		}

		m.showLocked(imp)
		m.harmonizer.RegisterType(imp)
		m.addMappingLocked(display, imp, Observed)
	}

	m.log.Info("ImageMap", "legacy mode entered", map[string]interface{}{
		"pairings": len(m.observed.byDisplay),
	})
	return errors.Join(errs...)
}

func (m *Map) leaveLegacyLocked() error {
	var errs []error
	for _, p := range m.snapshotLocked(m.observed) {
		if p.Legacy.Closed() {
			m.removeLocked(p)
			m.harmonizer.Forget(p.Legacy)
			p.Display.Close()
			m.displays.Remove(p.Display)
			m.log.Debug("ImageMap", "closed legacy window dropped", map[string]interface{}{
				"image": p.Legacy.Title(),
			})
			continue
		}

		m.addMappingLocked(p.Display, p.Legacy, Owned)
		if err := m.harmonizer.UpdateDisplay(p.Display, p.Legacy); err != nil {
			errs = append(errs, fmt.Errorf("image %q: %w", p.Legacy.Title(), err))
		}
	}

	m.log.Info("ImageMap", "modern mode entered", map[string]interface{}{
		"pairings": len(m.owned.byDisplay),
	})
	return errors.Join(errs...)
}

// Sweep drops observed pairings whose legacy image is no longer reachable:
// its window is closed and it is not the selected legacy image. It returns
// the number of pairings dropped.
func (m *Map) Sweep() int {
	active := m.displays.ActiveLegacyImage()

	m.mu.Lock()
	var dropped []*Pairing
	for _, p := range m.snapshotLocked(m.observed) {
		if p.Legacy == active || m.windows.IsOpen(p.Legacy) || !p.Legacy.Closed() {
			continue
		}
		m.removeLocked(p)
		dropped = append(dropped, p)
	}
	m.mu.Unlock()

	for _, p := range dropped {
		m.harmonizer.Forget(p.Legacy)
		m.clearTemporary(p.Legacy)
	}
	if len(dropped) > 0 {
		m.log.Debug("ImageMap", "unreachable pairings swept", map[string]interface{}{
			"count": len(dropped),
		})
	}
	return len(dropped)
}

// Pairings returns a snapshot of every pairing.
func (m *Map) Pairings() []Pairing {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Pairing, 0, len(m.owned.byDisplay)+len(m.observed.byDisplay))
	for _, p := range m.snapshotLocked(m.owned) {
		out = append(out, *p)
	}
	for _, p := range m.snapshotLocked(m.observed) {
		out = append(out, *p)
	}
	return out
}

// EndCommand closes a legacy command. Recorded bit depths are dropped and
// every paired legacy image is recorded again as the baseline for the next
// command.
func (m *Map) EndCommand() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.harmonizer.ResetTypeTracking()
	for _, imp := range lo.Keys(m.owned.byLegacy, m.observed.byLegacy) {
		m.harmonizer.RegisterType(imp)
	}
}

// Displays returns every paired display, those of the table authoritative
// for mode first.
func (m *Map) Displays(mode Mode) []*models.Display {
	m.mu.Lock()
	defer m.mu.Unlock()

	first, second := m.tablesFor(mode)
	return lo.Keys(first.byDisplay, second.byDisplay)
}

// LegacyImages returns every paired legacy image, those of the table
// authoritative for mode first.
func (m *Map) LegacyImages(mode Mode) []*models.LegacyImage {
	m.mu.Lock()
	defer m.mu.Unlock()

	first, second := m.tablesFor(mode)
	return lo.Keys(first.byLegacy, second.byLegacy)
}

// Validate checks that no object is paired twice and that both indexes of
// each table agree.
func (m *Map) Validate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range []table{m.owned, m.observed} {
		if len(t.byDisplay) != len(t.byLegacy) {
			return fmt.Errorf("%w: %d displays but %d legacy images", ErrDuplicatePairing, len(t.byDisplay), len(t.byLegacy))
		}
		for d, p := range t.byDisplay {
			if p.Display != d || t.byLegacy[p.Legacy] != p {
				return fmt.Errorf("%w: display %q", ErrDuplicatePairing, d.Name())
			}
		}
	}
	for d := range m.owned.byDisplay {
		if _, ok := m.observed.byDisplay[d]; ok {
			return fmt.Errorf("%w: display %q in both tables", ErrDuplicatePairing, d.Name())
		}
	}
	for imp := range m.owned.byLegacy {
		if _, ok := m.observed.byLegacy[imp]; ok {
			return fmt.Errorf("%w: legacy image %q in both tables", ErrDuplicatePairing, imp.Title())
		}
	}
	return nil
}

func (m *Map) tablesFor(mode Mode) (table, table) {
	if mode == ModeLegacy {
		return m.observed, m.owned
	}
	return m.owned, m.observed
}

func (m *Map) findByDisplay(d *models.Display) *Pairing {
	if p := m.owned.byDisplay[d]; p != nil {
		return p
	}
	return m.observed.byDisplay[d]
}

func (m *Map) findByLegacy(imp *models.LegacyImage) *Pairing {
	if p := m.owned.byLegacy[imp]; p != nil {
		return p
	}
	return m.observed.byLegacy[imp]
}

// addMappingLocked removes every pairing touching display or imp before
// inserting the new one.
func (m *Map) addMappingLocked(display *models.Display, imp *models.LegacyImage, own Ownership) {
	if p := m.findByDisplay(display); p != nil {
		m.removeLocked(p)
	}
	if p := m.findByLegacy(imp); p != nil {
		m.removeLocked(p)
	}
	p := &Pairing{Legacy: imp, Display: display, Ownership: own}
	if own == Observed {
		m.observed.put(p)
	} else {
		m.owned.put(p)
	}
}

func (m *Map) removeLocked(p *Pairing) {
	m.owned.drop(p)
	m.observed.drop(p)
}

func (m *Map) snapshotLocked(t table) []*Pairing {
	out := make([]*Pairing, 0, len(t.byDisplay))
	for _, p := range t.byDisplay {
		out = append(out, p)
	}
	return out
}

// knownDisplaysLocked merges the registry with displays only the map knows.
func (m *Map) knownDisplaysLocked() []*models.Display {
	seen := make(map[*models.Display]bool)
	var out []*models.Display
	for _, d := range m.displays.Displays() {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	for _, p := range m.snapshotLocked(m.owned) {
		if !seen[p.Display] {
			seen[p.Display] = true
			out = append(out, p.Display)
		}
	}
	return out
}

func (m *Map) beginLocked(key any, name string) error {
	if _, busy := m.inProgress[key]; busy {
		err := fmt.Errorf("%w: %q is already being registered", ErrRegistrationCycle, name)
		m.log.Error("ImageMap", err, nil)
		return err
	}
	m.inProgress[key] = struct{}{}
	return nil
}

func (m *Map) end(key any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inProgress, key)
}

func (m *Map) disposeLegacy(imp *models.LegacyImage) {
	err := m.disposer.Submit("dispose "+imp.Title(), func() error {
		if err := m.windows.Dispose(imp); err != nil {
			if errors.Is(err, window.ErrWindowClosed) {
				m.log.Warning("ImageMap", "legacy window already closed", map[string]interface{}{
					"image": imp.Title(),
				})
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		m.log.Warning("ImageMap", "legacy window disposal not queued", map[string]interface{}{
			"image": imp.Title(),
			"error": err.Error(),
		})
	}
	m.clearTemporary(imp)
}

func (m *Map) clearTemporary(imp *models.LegacyImage) {
	if m.displays.TemporaryActive() == imp {
		m.displays.SetTemporaryActive(nil)
	}
}
