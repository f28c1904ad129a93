package shell

import (
	"gitlab.com/mstarongitlab/goutils/sliceutils"

	generaldata "github.com/mstarongithub/way2shell/general-data"
)

// Positioner is the placement rule a client supplied for a popup: the
// anchor rectangle in the parent's coordinate space, the popup size and an
// extra offset. Slides/flips/constraints are the protocol layer's business.
type Positioner struct {
	AnchorRect generaldata.Rect
	Size       generaldata.Vector2i
	Offset     generaldata.Vector2i
}

// Geometry computes the popup rectangle relative to its parent
func (p Positioner) Geometry() generaldata.Rect {
	return generaldata.Rect{
		Loc:  p.AnchorRect.Loc.Add(p.Offset),
		Size: p.Size,
	}
}

// PopupEntry tracks one popup: its parent relation, the geometry last
// derived from the positioner and the one-shot configure flag.
type PopupEntry struct {
	Surface    SurfaceID
	Parent     SurfaceID
	Positioner Positioner
	Geometry   generaldata.Rect

	configured bool
}

func (e *PopupEntry) InitialConfigureSent() bool {
	return e.configured
}

// PopupTracker maintains the popup trees. The orchestrator drives its
// Commit and configure calls; it makes no protocol decisions of its own.
type PopupTracker struct {
	popups    []*PopupEntry
	bySurface map[SurfaceID]*PopupEntry
}

func NewPopupTracker() *PopupTracker {
	return &PopupTracker{bySurface: make(map[SurfaceID]*PopupEntry)}
}

// Add registers a new popup. Returns nil if the surface already has a
// popup role (duplicate protocol traffic is tolerated silently).
func (t *PopupTracker) Add(surface, parent SurfaceID, positioner Positioner) *PopupEntry {
	if _, ok := t.bySurface[surface]; ok {
		return nil
	}
	entry := &PopupEntry{
		Surface:    surface,
		Parent:     parent,
		Positioner: positioner,
		Geometry:   positioner.Geometry(),
	}
	t.popups = append(t.popups, entry)
	t.bySurface[surface] = entry
	return entry
}

// Find returns the popup for the surface, nil if the surface is no popup
func (t *PopupTracker) Find(surface SurfaceID) *PopupEntry {
	return t.bySurface[surface]
}

// Children returns the popups anchored to the given parent surface, in
// creation order
func (t *PopupTracker) Children(parent SurfaceID) []*PopupEntry {
	return sliceutils.Filter(t.popups, func(e *PopupEntry) bool {
		return e.Parent == parent
	})
}

// Commit recomputes the popup geometry from its positioner. Runs on every
// commit of the popup's surface so popups discovered later see up to date
// geometry. A commit for a non-popup surface is a no-op.
func (t *PopupTracker) Commit(surface SurfaceID) {
	entry, ok := t.bySurface[surface]
	if !ok {
		return
	}
	entry.Geometry = entry.Positioner.Geometry()
}

// Refresh drops popups whose surface or parent surface died
func (t *PopupTracker) Refresh(alive func(SurfaceID) bool) {
	t.popups = sliceutils.Filter(t.popups, func(e *PopupEntry) bool {
		if alive(e.Surface) && alive(e.Parent) {
			return true
		}
		delete(t.bySurface, e.Surface)
		return false
	})
}
