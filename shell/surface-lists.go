package shell

import (
	"github.com/sirupsen/logrus"
	"gitlab.com/mstarongitlab/goutils/sliceutils"

	generaldata "github.com/mstarongithub/way2shell/general-data"
)

// Window is a mapped toplevel. Its identity is its surface; it persists
// across resizes and moves and dies only with the surface.
type Window struct {
	Surface  SurfaceID
	Location generaldata.Vector2i
	Size     generaldata.Vector2i
}

func (w *Window) Geometry() generaldata.Rect {
	return generaldata.Rect{Loc: w.Location, Size: w.Size}
}

// Layer is a wlr-layer-shell stacking layer
type Layer int

const (
	LayerBackground = Layer(iota)
	LayerBottom
	LayerTop
	LayerOverlay
)

func (l Layer) String() string {
	switch l {
	case LayerBackground:
		return "background"
	case LayerBottom:
		return "bottom"
	case LayerTop:
		return "top"
	case LayerOverlay:
		return "overlay"
	}
	return "unknown"
}

// LayerEntry is a mapped layer surface (panels, wallpaper, ...)
type LayerEntry struct {
	Surface   SurfaceID
	Namespace string
	Layer     Layer
	// Output the client bound the surface to. Empty means "compositor picks"
	Output string

	// One-shot flag, set when the initial configure went out (or failed
	// terminally). Never cleared.
	configured bool
}

// InitialConfigureSent reports whether the layer handshake was started
func (e *LayerEntry) InitialConfigureSent() bool {
	return e.configured
}

// PendingList holds toplevel surfaces that have the role but no committed
// buffer yet. Order is insertion order.
type PendingList struct {
	surfaces []SurfaceID
	present  map[SurfaceID]bool
}

func NewPendingList() *PendingList {
	return &PendingList{present: make(map[SurfaceID]bool)}
}

// Add registers a surface as pending. Adding a surface twice is a no-op.
func (l *PendingList) Add(surface SurfaceID) {
	if l.present[surface] {
		return
	}
	l.surfaces = append(l.surfaces, surface)
	l.present[surface] = true
}

func (l *PendingList) Contains(surface SurfaceID) bool {
	return l.present[surface]
}

func (l *PendingList) Len() int {
	return len(l.surfaces)
}

// Remove drops the surface from the pending set if present
func (l *PendingList) Remove(surface SurfaceID) {
	if !l.present[surface] {
		return
	}
	delete(l.present, surface)
	l.surfaces = sliceutils.Filter(l.surfaces, func(s SurfaceID) bool {
		return s != surface
	})
}

// TryPromote checks whether the surface can be mapped now: it must be
// pending, have an attached buffer and a resolvable geometry. On success
// the surface leaves the pending set and a fresh Window is returned.
// Returns nil otherwise, including on every call after a successful one.
// Unmappable surfaces simply stay pending; there is no error outcome.
func (l *PendingList) TryPromote(surface SurfaceID, comp Compositor) *Window {
	if !l.present[surface] {
		return nil
	}
	if !comp.HasBuffer(surface) {
		return nil
	}
	geometry, ok := comp.SurfaceGeometry(surface)
	if !ok {
		return nil
	}
	l.Remove(surface)
	return &Window{Surface: surface, Size: geometry.Size}
}

// Refresh drops pending surfaces whose backing surface died
func (l *PendingList) Refresh(alive func(SurfaceID) bool) {
	l.surfaces = sliceutils.Filter(l.surfaces, func(s SurfaceID) bool {
		if alive(s) {
			return true
		}
		delete(l.present, s)
		return false
	})
}

// WindowList is the ordered registry of mapped toplevels. Insertion order
// is meaningful: the handler iterates it for z-ordering.
type WindowList struct {
	windows   []*Window
	bySurface map[SurfaceID]*Window
}

func NewWindowList() *WindowList {
	return &WindowList{bySurface: make(map[SurfaceID]*Window)}
}

// Insert appends a freshly mapped window. Inserting a surface that is
// already mapped is a bug in the orchestrator, not a client-visible error,
// so it fails loudly.
func (l *WindowList) Insert(window *Window) {
	if _, ok := l.bySurface[window.Surface]; ok {
		logrus.WithField("surface", window.Surface).Panicln("Surface mapped twice")
	}
	l.windows = append(l.windows, window)
	l.bySurface[window.Surface] = window
}

// Find returns the mapped window for the surface, nil if not mapped.
// The returned pointer is the live entry; callers inside the shell may
// mutate it.
func (l *WindowList) Find(surface SurfaceID) *Window {
	return l.bySurface[surface]
}

// Windows returns the live entries in insertion order
func (l *WindowList) Windows() []*Window {
	return l.windows
}

func (l *WindowList) Len() int {
	return len(l.windows)
}

// Refresh removes windows whose surface died, keeping survivor order
func (l *WindowList) Refresh(alive func(SurfaceID) bool) {
	l.windows = sliceutils.Filter(l.windows, func(w *Window) bool {
		if alive(w.Surface) {
			return true
		}
		delete(l.bySurface, w.Surface)
		return false
	})
}

// LayerList is the ordered registry of mapped layer surfaces
type LayerList struct {
	layers    []*LayerEntry
	bySurface map[SurfaceID]*LayerEntry
}

func NewLayerList() *LayerList {
	return &LayerList{bySurface: make(map[SurfaceID]*LayerEntry)}
}

func (l *LayerList) Insert(entry *LayerEntry) {
	if _, ok := l.bySurface[entry.Surface]; ok {
		logrus.WithField("surface", entry.Surface).Panicln("Layer surface mapped twice")
	}
	l.layers = append(l.layers, entry)
	l.bySurface[entry.Surface] = entry
}

func (l *LayerList) Find(surface SurfaceID) *LayerEntry {
	return l.bySurface[surface]
}

// Layers returns the live entries in insertion order
func (l *LayerList) Layers() []*LayerEntry {
	return l.layers
}

func (l *LayerList) Len() int {
	return len(l.layers)
}

func (l *LayerList) Refresh(alive func(SurfaceID) bool) {
	l.layers = sliceutils.Filter(l.layers, func(e *LayerEntry) bool {
		if alive(e.Surface) {
			return true
		}
		delete(l.bySurface, e.Surface)
		return false
	})
}
