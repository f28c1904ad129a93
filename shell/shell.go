package shell

import (
	"github.com/sirupsen/logrus"

	generaldata "github.com/mstarongithub/way2shell/general-data"
)

// Configure is the state proposal sent to a client. The protocol layer
// turns it into the wire-level configure for whatever role the surface has.
type Configure struct {
	Size generaldata.Vector2i
	// The surface is mid-resize; clients may want to draw differently
	Resizing bool
}

// Compositor is the narrow interface to the protocol and render layer. It
// must not call back into the shell.
type Compositor interface {
	// HasBuffer reports whether the surface has an attached buffer
	HasBuffer(surface SurfaceID) bool
	// IsSyncSubsurface reports whether the surface is a synchronized
	// subsurface whose state only applies with its parent's commit
	IsSyncSubsurface(surface SurfaceID) bool
	// SubsurfaceTree enumerates the surface and all surfaces below it
	SubsurfaceTree(surface SurfaceID) []SurfaceID
	// SurfaceGeometry resolves the surface's current geometry. ok is false
	// while the client has not made the geometry resolvable yet.
	SurfaceGeometry(surface SurfaceID) (geometry generaldata.Rect, ok bool)
	// ImportBuffer hands the committed buffer to the renderer
	ImportBuffer(surface SurfaceID)
	// SendConfigure pushes a state proposal to the client and returns the
	// serial the client will ack. Must only be called for surfaces whose
	// role negotiation is complete; the shell guarantees that.
	SendConfigure(surface SurfaceID, configure Configure) (serial uint32, err error)
}

// Shell is the orchestrator: it turns raw protocol events into registry
// mutations and an ordered event stream for the Handler.
//
// All methods must be called from a single goroutine, normally the protocol
// dispatch loop (or wrapped in an Actor). The shell is purely reactive: it
// never blocks, never waits for an ack, and models no timeouts.
type Shell struct {
	comp    Compositor
	handler Handler

	pending *PendingList
	windows *WindowList
	layers  *LayerList
	popups  *PopupTracker
	data    *surfaceDataTable

	// Surfaces reported destroyed, swept out of the registries on Refresh
	destroyed map[SurfaceID]bool
	// Last configure serial sent per layer surface, for ack mismatch warnings
	layerSerials map[SurfaceID]uint32

	// Guard against accidental re-entrant event processing. Single
	// threaded by contract, so this only ever catches bugs.
	busy bool

	// Log layer acks whose serial doesn't match the last configure sent.
	// The ack is forwarded either way; this is visibility only.
	WarnLayerAckMismatch bool
}

func New(comp Compositor, handler Handler) *Shell {
	return &Shell{
		comp:         comp,
		handler:      handler,
		pending:      NewPendingList(),
		windows:      NewWindowList(),
		layers:       NewLayerList(),
		popups:       NewPopupTracker(),
		data:         newSurfaceDataTable(),
		destroyed:    make(map[SurfaceID]bool),
		layerSerials: make(map[SurfaceID]uint32),

		WarnLayerAckMismatch: true,
	}
}

func (s *Shell) enter() {
	if s.busy {
		logrus.Panicln("Re-entrant shell event processing")
	}
	s.busy = true
}

func (s *Shell) leave() {
	s.busy = false
}

// hasRole reports whether the surface already negotiated any shell role
func (s *Shell) hasRole(surface SurfaceID) bool {
	return s.pending.Contains(surface) ||
		s.windows.Find(surface) != nil ||
		s.layers.Find(surface) != nil ||
		s.popups.Find(surface) != nil
}

// NewToplevel handles a client's new-toplevel request. The surface goes
// into the pending set until a commit carries enough data to map it.
func (s *Shell) NewToplevel(surface SurfaceID) {
	s.enter()
	defer s.leave()

	if s.hasRole(surface) {
		logrus.WithField("surface", surface).Debugln("Duplicate toplevel role request ignored")
		return
	}
	s.pending.Add(surface)
}

// NewPopup handles a client's new-popup request
func (s *Shell) NewPopup(surface, parent SurfaceID, positioner Positioner) {
	s.enter()
	defer s.leave()

	if s.hasRole(surface) {
		logrus.WithField("surface", surface).Debugln("Duplicate popup role request ignored")
		return
	}
	entry := s.popups.Add(surface, parent, positioner)
	if entry == nil {
		return
	}
	s.handler.OnShellEvent(PopupCreated{Popup: entry})
}

// NewLayerSurface and AckLayerConfigure live in wlr-layer.go.

// Commit handles a surface commit. The step order is load-bearing: the
// buffer must be imported before mapping (mapping needs the size), the
// subtree slots must exist before any geometry work, and the generic
// SurfaceCommitted goes out last so the handler sees settled state.
func (s *Shell) Commit(surface SurfaceID) {
	s.enter()
	defer s.leave()

	if s.destroyed[surface] {
		return
	}

	s.comp.ImportBuffer(surface)

	s.popups.Commit(surface)

	if !s.comp.IsSyncSubsurface(surface) {
		for _, sub := range s.comp.SubsurfaceTree(surface) {
			s.data.ensure(sub)
		}
	}

	s.tryMapPending(surface)

	s.tryUpdateMapped(surface)

	if entry := s.layers.Find(surface); entry != nil {
		s.sendInitialLayerConfigure(entry)
	}

	s.handler.OnShellEvent(SurfaceCommitted{Surface: surface})
}

// tryMapPending promotes a pending toplevel if it became mappable, and
// starts the configure handshake of a not-yet-configured popup
func (s *Shell) tryMapPending(surface SurfaceID) {
	if window := s.pending.TryPromote(surface, s.comp); window != nil {
		s.windows.Insert(window)
		logrus.WithFields(logrus.Fields{
			"surface": surface,
			"size":    window.Size,
		}).Debugln("Toplevel mapped")
		s.handler.OnShellEvent(WindowCreated{Window: window})
	}

	if popup := s.popups.Find(surface); popup != nil && !popup.configured {
		s.sendInitialPopupConfigure(popup)
	}
}

// tryUpdateMapped recomputes a mapped window's geometry on commit. This is
// the single place where drift from an interactive resize and from a
// queued reposition gets reconciled and reported.
func (s *Shell) tryUpdateMapped(surface SurfaceID) {
	window := s.windows.Find(surface)
	if window == nil {
		return
	}
	geometry, ok := s.comp.SurfaceGeometry(surface)
	if !ok {
		return
	}
	window.Size = geometry.Size

	data := s.data.ensure(surface)

	var newX, newY *int
	switch data.Resize.Kind {
	case ResizeActive, ResizeWaitingForAck, ResizeWaitingForCommit:
		resize := data.Resize.Data
		// A window resized by its top or left edge must be moved so the
		// opposite edge stays visually fixed under the drag.
		if resize.Edges.Intersects(EdgeLeft) {
			x := resize.InitialLocation.X + (resize.InitialSize.X - geometry.Size.X)
			newX = &x
		}
		if resize.Edges.Intersects(EdgeTop) {
			y := resize.InitialLocation.Y + (resize.InitialSize.Y - geometry.Size.Y)
			newY = &y
		}
	}

	// This is the commit the final ack was waiting on; the resize is over.
	if data.Resize.Kind == ResizeWaitingForCommit {
		data.Resize = ResizeState{}
	}

	// A queued reposition applies on exactly this commit, together with
	// whatever the resize math produced above.
	if data.MoveAfterResize.Kind == MoveWaitingForCommit {
		x := data.MoveAfterResize.Target.X
		y := data.MoveAfterResize.Target.Y
		newX, newY = &x, &y
		data.MoveAfterResize.Kind = MoveCurrent
	}

	if newX != nil {
		window.Location.X = *newX
	}
	if newY != nil {
		window.Location.Y = *newY
	}
	if newX != nil || newY != nil {
		s.handler.OnShellEvent(WindowResized{Window: window, NewX: newX, NewY: newY})
	}
}

// sendInitialPopupConfigure runs the one-shot popup handshake. The flag is
// set before sending, so no second commit can ever send again — a failed
// send abandons the surface's handshake for good.
func (s *Shell) sendInitialPopupConfigure(popup *PopupEntry) {
	if popup.configured {
		return
	}
	popup.configured = true
	_, err := s.comp.SendConfigure(popup.Surface, Configure{Size: popup.Geometry.Size})
	if err != nil {
		logrus.WithError(err).WithField("surface", popup.Surface).
			Errorln("Initial popup configure failed, abandoning surface")
	}
}

// sendInitialLayerConfigure is the layer-surface counterpart of the popup
// handshake, with the same one-shot and abandonment rules
func (s *Shell) sendInitialLayerConfigure(entry *LayerEntry) {
	if entry.configured {
		return
	}
	entry.configured = true

	var size generaldata.Vector2i
	if geometry, ok := s.comp.SurfaceGeometry(entry.Surface); ok {
		size = geometry.Size
	}
	serial, err := s.comp.SendConfigure(entry.Surface, Configure{Size: size})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"surface":   entry.Surface,
			"namespace": entry.Namespace,
		}).Errorln("Initial layer configure failed, abandoning surface")
		return
	}
	s.layerSerials[entry.Surface] = serial
}

// AckConfigure handles a toplevel's ack. Only the ack the resize state
// machine waits for has an effect; everything else is a benign no-op.
func (s *Shell) AckConfigure(surface SurfaceID, serial uint32) {
	s.enter()
	defer s.leave()

	data := s.data.get(surface)
	if data == nil {
		return
	}
	if data.Resize.Kind == ResizeWaitingForAck && data.Resize.AckSerial == serial {
		data.Resize.Kind = ResizeWaitingForCommit
		data.Resize.AckSerial = 0
	}
}

// SurfaceDestroyed handles the protocol layer's destruction notification.
// Auxiliary state dies immediately; registry entries are swept out on the
// next Refresh.
func (s *Shell) SurfaceDestroyed(surface SurfaceID) {
	s.enter()
	defer s.leave()

	s.destroyed[surface] = true
	s.data.drop(surface)
	s.pending.Remove(surface)
	delete(s.layerSerials, surface)
}

// Refresh sweeps destroyed surfaces out of every registry. The owner calls
// it once per event-loop iteration, not per event.
func (s *Shell) Refresh() {
	s.enter()
	defer s.leave()

	if len(s.destroyed) == 0 {
		return
	}
	alive := func(surface SurfaceID) bool {
		return !s.destroyed[surface]
	}
	s.pending.Refresh(alive)
	s.windows.Refresh(alive)
	s.layers.Refresh(alive)
	s.popups.Refresh(alive)
	s.destroyed = make(map[SurfaceID]bool)
}

//
// Forwarded client requests
//

// RequestMove forwards an interactive-move request for a mapped window.
// Requests for unknown surfaces are dropped silently.
func (s *Shell) RequestMove(surface SurfaceID, grab Grab) {
	s.enter()
	defer s.leave()

	window := s.windows.Find(surface)
	if window == nil {
		return
	}
	s.handler.OnShellEvent(WindowMoveRequested{Window: window, Grab: grab})
}

// RequestResize forwards an interactive-resize request for a mapped window
func (s *Shell) RequestResize(surface SurfaceID, grab Grab, edges Edges) {
	s.enter()
	defer s.leave()

	if !edges.Valid() {
		logrus.WithFields(logrus.Fields{
			"surface": surface,
			"edges":   uint32(edges),
		}).Warnln("Resize request with invalid edge set ignored")
		return
	}
	window := s.windows.Find(surface)
	if window == nil {
		return
	}
	s.handler.OnShellEvent(WindowResizeRequested{Window: window, Grab: grab, Edges: edges})
}

// RequestMaximize and friends forward client state requests verbatim
func (s *Shell) RequestMaximize(surface SurfaceID) {
	s.forwardWindowRequest(surface, func(w *Window) Event {
		return WindowMaximizeRequested{Window: w}
	})
}

func (s *Shell) RequestUnMaximize(surface SurfaceID) {
	s.forwardWindowRequest(surface, func(w *Window) Event {
		return WindowUnMaximizeRequested{Window: w}
	})
}

func (s *Shell) RequestFullscreen(surface SurfaceID, output string) {
	s.forwardWindowRequest(surface, func(w *Window) Event {
		return WindowFullscreenRequested{Window: w, Output: output}
	})
}

func (s *Shell) RequestUnFullscreen(surface SurfaceID) {
	s.forwardWindowRequest(surface, func(w *Window) Event {
		return WindowUnFullscreenRequested{Window: w}
	})
}

func (s *Shell) RequestMinimize(surface SurfaceID) {
	s.forwardWindowRequest(surface, func(w *Window) Event {
		return WindowMinimizeRequested{Window: w}
	})
}

func (s *Shell) forwardWindowRequest(surface SurfaceID, makeEvent func(*Window) Event) {
	s.enter()
	defer s.leave()

	window := s.windows.Find(surface)
	if window == nil {
		return
	}
	s.handler.OnShellEvent(makeEvent(window))
}

// RequestShowWindowMenu forwards a window-menu request
func (s *Shell) RequestShowWindowMenu(surface SurfaceID, grab Grab, location generaldata.Vector2i) {
	s.enter()
	defer s.leave()

	window := s.windows.Find(surface)
	if window == nil {
		return
	}
	s.handler.OnShellEvent(ShowWindowMenuRequested{Window: window, Grab: grab, Location: location})
}

// RequestPopupGrab forwards a popup grab request
func (s *Shell) RequestPopupGrab(surface SurfaceID, grab Grab) {
	s.enter()
	defer s.leave()

	popup := s.popups.Find(surface)
	if popup == nil {
		return
	}
	s.handler.OnShellEvent(PopupGrabRequested{Popup: popup, Grab: grab})
}

//
// Handler re-entry points (policy decisions flowing back in)
//

// StartResize records the start of a granted interactive resize, snapshotting
// the window's current location and size as the anchor for the edge math
func (s *Shell) StartResize(surface SurfaceID, edges Edges) {
	s.enter()
	defer s.leave()

	if !edges.Valid() {
		logrus.WithField("edges", uint32(edges)).Warnln("StartResize with invalid edge set ignored")
		return
	}
	window := s.windows.Find(surface)
	if window == nil {
		return
	}
	data := s.data.ensure(surface)
	data.Resize = ResizeState{
		Kind: ResizeActive,
		Data: ResizeData{
			Edges:           edges,
			InitialLocation: window.Location,
			InitialSize:     window.Size,
		},
	}
}

// FinishResize ends the grab phase of an interactive resize: a final
// configure goes out and the state machine waits for its ack. No-op unless
// a resize is actually active.
func (s *Shell) FinishResize(surface SurfaceID) {
	s.enter()
	defer s.leave()

	data := s.data.get(surface)
	if data == nil || data.Resize.Kind != ResizeActive {
		return
	}
	window := s.windows.Find(surface)
	if window == nil {
		data.Resize = ResizeState{}
		return
	}
	serial, err := s.comp.SendConfigure(surface, Configure{Size: window.Size})
	if err != nil {
		logrus.WithError(err).WithField("surface", surface).
			Errorln("Final resize configure failed, dropping resize state")
		data.Resize = ResizeState{}
		return
	}
	data.Resize.Kind = ResizeWaitingForAck
	data.Resize.AckSerial = serial
}

// QueueMove repositions a mapped window. While a resize is in flight the
// target is queued and applied atomically with the commit that finalizes
// the resize; otherwise it applies immediately.
func (s *Shell) QueueMove(surface SurfaceID, target generaldata.Vector2i) {
	s.enter()
	defer s.leave()

	window := s.windows.Find(surface)
	if window == nil {
		return
	}
	data := s.data.ensure(surface)
	if data.Resize.Kind == ResizeNone {
		window.Location = target
		data.MoveAfterResize = MoveAfterResizeState{Kind: MoveCurrent, Target: target}
		return
	}
	data.MoveAfterResize = MoveAfterResizeState{Kind: MoveWaitingForCommit, Target: target}
}

//
// Introspection
//

// Windows returns the mapped toplevels in insertion (z-)order. The slice is
// the caller's to keep; the entries still alias live registry state.
func (s *Shell) Windows() []*Window {
	return append([]*Window(nil), s.windows.Windows()...)
}

// Layers returns the mapped layer surfaces in insertion order, as a detached
// slice like Windows
func (s *Shell) Layers() []*LayerEntry {
	return append([]*LayerEntry(nil), s.layers.Layers()...)
}

// FindWindow returns the mapped window for the surface, nil if none
func (s *Shell) FindWindow(surface SurfaceID) *Window {
	return s.windows.Find(surface)
}

// PendingCount returns how many toplevels await their first mappable commit
func (s *Shell) PendingCount() int {
	return s.pending.Len()
}

// ResizeStateOf returns a copy of the surface's resize state
func (s *Shell) ResizeStateOf(surface SurfaceID) ResizeState {
	if data := s.data.get(surface); data != nil {
		return data.Resize
	}
	return ResizeState{}
}
