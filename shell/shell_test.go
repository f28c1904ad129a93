package shell

import (
	"errors"
	"testing"

	generaldata "github.com/mstarongithub/way2shell/general-data"
)

type sentConfigure struct {
	surface   SurfaceID
	configure Configure
	serial    uint32
}

// fakeCompositor stands in for the protocol/render layer
type fakeCompositor struct {
	buffers    map[SurfaceID]bool
	geometries map[SurfaceID]generaldata.Rect
	syncSubs   map[SurfaceID]bool
	subtrees   map[SurfaceID][]SurfaceID
	failSend   map[SurfaceID]bool

	imported   []SurfaceID
	sent       []sentConfigure
	nextSerial uint32
}

func newFakeCompositor() *fakeCompositor {
	return &fakeCompositor{
		buffers:    make(map[SurfaceID]bool),
		geometries: make(map[SurfaceID]generaldata.Rect),
		syncSubs:   make(map[SurfaceID]bool),
		subtrees:   make(map[SurfaceID][]SurfaceID),
		failSend:   make(map[SurfaceID]bool),
	}
}

func (f *fakeCompositor) HasBuffer(s SurfaceID) bool        { return f.buffers[s] }
func (f *fakeCompositor) IsSyncSubsurface(s SurfaceID) bool { return f.syncSubs[s] }

func (f *fakeCompositor) SubsurfaceTree(s SurfaceID) []SurfaceID {
	if tree, ok := f.subtrees[s]; ok {
		return tree
	}
	return []SurfaceID{s}
}

func (f *fakeCompositor) SurfaceGeometry(s SurfaceID) (generaldata.Rect, bool) {
	geo, ok := f.geometries[s]
	return geo, ok
}

func (f *fakeCompositor) ImportBuffer(s SurfaceID) {
	f.imported = append(f.imported, s)
}

func (f *fakeCompositor) SendConfigure(s SurfaceID, c Configure) (uint32, error) {
	if f.failSend[s] {
		return 0, errors.New("client gone")
	}
	f.nextSerial++
	f.sent = append(f.sent, sentConfigure{surface: s, configure: c, serial: f.nextSerial})
	return f.nextSerial, nil
}

func (f *fakeCompositor) sentTo(s SurfaceID) []sentConfigure {
	var out []sentConfigure
	for _, sc := range f.sent {
		if sc.surface == s {
			out = append(out, sc)
		}
	}
	return out
}

// recorder collects the emitted event stream
type recorder struct {
	events []Event
}

func (r *recorder) OnShellEvent(event Event) {
	r.events = append(r.events, event)
}

func (r *recorder) reset() {
	r.events = nil
}

func (r *recorder) countOf(match func(Event) bool) int {
	n := 0
	for _, e := range r.events {
		if match(e) {
			n++
		}
	}
	return n
}

// mapToplevel runs the full toplevel lifecycle up to mapped
func mapToplevel(t *testing.T, s *Shell, comp *fakeCompositor, surface SurfaceID, size generaldata.Vector2i) *Window {
	t.Helper()
	s.NewToplevel(surface)
	comp.buffers[surface] = true
	comp.geometries[surface] = generaldata.Rect{Size: size}
	s.Commit(surface)
	window := s.FindWindow(surface)
	if window == nil {
		t.Fatalf("Surface %d did not map", surface)
	}
	return window
}

func TestPromotionHappensAtMostOnce(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	s.NewToplevel(1)
	s.Commit(1)
	if len(s.Windows()) != 0 {
		t.Errorf("Surface without buffer got mapped")
	}
	if s.PendingCount() != 1 {
		t.Errorf("Expected 1 pending surface, got %d", s.PendingCount())
	}

	comp.buffers[1] = true
	comp.geometries[1] = generaldata.Rect{Size: generaldata.Vector2i{X: 100, Y: 50}}
	s.Commit(1)
	if len(s.Windows()) != 1 {
		t.Fatalf("Expected 1 mapped window, got %d", len(s.Windows()))
	}
	if s.PendingCount() != 0 {
		t.Errorf("Promoted surface still pending")
	}

	created := rec.countOf(func(e Event) bool { _, ok := e.(WindowCreated); return ok })
	if created != 1 {
		t.Errorf("Expected 1 WindowCreated, got %d", created)
	}

	// Commit storm after promotion must not re-create the window
	s.Commit(1)
	s.Commit(1)
	created = rec.countOf(func(e Event) bool { _, ok := e.(WindowCreated); return ok })
	if created != 1 {
		t.Errorf("Promotion fired again after success, %d WindowCreated total", created)
	}
}

func TestCommitEmitsGenericEventLast(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	s.NewToplevel(1)
	comp.buffers[1] = true
	comp.geometries[1] = generaldata.Rect{Size: generaldata.Vector2i{X: 10, Y: 10}}
	s.Commit(1)

	if len(rec.events) < 2 {
		t.Fatalf("Expected at least 2 events, got %d", len(rec.events))
	}
	if _, ok := rec.events[0].(WindowCreated); !ok {
		t.Errorf("First event is %T, not WindowCreated", rec.events[0])
	}
	last := rec.events[len(rec.events)-1]
	if _, ok := last.(SurfaceCommitted); !ok {
		t.Errorf("Last event is %T, not SurfaceCommitted", last)
	}
}

func TestResizeLeftEdgeKeepsRightEdgeFixed(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	window := mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 100, Y: 50})
	s.QueueMove(1, generaldata.Vector2i{X: 10, Y: 20})
	s.StartResize(1, EdgeLeft)
	rec.reset()

	comp.geometries[1] = generaldata.Rect{Size: generaldata.Vector2i{X: 80, Y: 50}}
	s.Commit(1)

	var resized *WindowResized
	for _, e := range rec.events {
		if ev, ok := e.(WindowResized); ok {
			resized = &ev
		}
	}
	if resized == nil {
		t.Fatal("No WindowResized event")
	}
	if resized.NewX == nil || *resized.NewX != 30 {
		t.Errorf("Expected NewX=30, got %v", resized.NewX)
	}
	if resized.NewY != nil {
		t.Errorf("Y axis reported as changed: %d", *resized.NewY)
	}
	if window.Location.X != 30 || window.Location.Y != 20 {
		t.Errorf("Window location is %+v, expected (30, 20)", window.Location)
	}
}

func TestResizeTopLeftCornerAdjustsBothAxes(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 200, Y: 200})
	s.StartResize(1, EdgeTopLeft)
	rec.reset()

	comp.geometries[1] = generaldata.Rect{Size: generaldata.Vector2i{X: 150, Y: 150}}
	s.Commit(1)

	var resized *WindowResized
	for _, e := range rec.events {
		if ev, ok := e.(WindowResized); ok {
			resized = &ev
		}
	}
	if resized == nil {
		t.Fatal("No WindowResized event")
	}
	if resized.NewX == nil || *resized.NewX != 50 {
		t.Errorf("Expected NewX=50, got %v", resized.NewX)
	}
	if resized.NewY == nil || *resized.NewY != 50 {
		t.Errorf("Expected NewY=50, got %v", resized.NewY)
	}
}

func TestResizeHandshakeCompletesExactlyOnce(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 100, Y: 100})
	s.StartResize(1, EdgeRight)
	if s.ResizeStateOf(1).Kind != ResizeActive {
		t.Fatalf("Resize not active after StartResize")
	}

	s.FinishResize(1)
	state := s.ResizeStateOf(1)
	if state.Kind != ResizeWaitingForAck {
		t.Fatalf("Expected ResizeWaitingForAck, got %v", state.Kind)
	}

	// An ack with the wrong serial changes nothing
	s.AckConfigure(1, state.AckSerial+17)
	if s.ResizeStateOf(1).Kind != ResizeWaitingForAck {
		t.Errorf("Wrong serial advanced the resize state machine")
	}

	s.AckConfigure(1, state.AckSerial)
	if s.ResizeStateOf(1).Kind != ResizeWaitingForCommit {
		t.Errorf("Matching ack did not advance to ResizeWaitingForCommit")
	}

	s.Commit(1)
	if s.ResizeStateOf(1).Kind != ResizeNone {
		t.Errorf("Commit did not finish the resize")
	}

	// Further commits with no active resize must stay silent
	rec.reset()
	s.Commit(1)
	if rec.countOf(func(e Event) bool { _, ok := e.(WindowResized); return ok }) != 0 {
		t.Errorf("Got WindowResized after the resize finished")
	}
}

func TestMoveAfterResizeAppliesOnNextCommitOnly(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	window := mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 100, Y: 100})
	s.StartResize(1, EdgeRight)
	s.FinishResize(1)
	s.AckConfigure(1, s.ResizeStateOf(1).AckSerial)

	// Queue a reposition while the resize waits for its final commit
	s.QueueMove(1, generaldata.Vector2i{X: 300, Y: 400})
	if window.Location.X == 300 {
		t.Fatal("Queued move applied before the commit")
	}

	rec.reset()
	s.Commit(1)

	var resized *WindowResized
	for _, e := range rec.events {
		if ev, ok := e.(WindowResized); ok {
			resized = &ev
		}
	}
	if resized == nil {
		t.Fatal("No WindowResized on the finalizing commit")
	}
	if resized.NewX == nil || *resized.NewX != 300 || resized.NewY == nil || *resized.NewY != 400 {
		t.Errorf("Queued target not applied, event: %+v", resized)
	}
	if window.Location.X != 300 || window.Location.Y != 400 {
		t.Errorf("Window location is %+v, expected (300, 400)", window.Location)
	}

	// No newly queued target: the next commit must not move the window
	rec.reset()
	s.Commit(1)
	if rec.countOf(func(e Event) bool { _, ok := e.(WindowResized); return ok }) != 0 {
		t.Errorf("Stale move target re-applied on a later commit")
	}
}

func TestImmediateMoveWithoutResize(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	window := mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 100, Y: 100})
	s.QueueMove(1, generaldata.Vector2i{X: 42, Y: 7})
	if window.Location.X != 42 || window.Location.Y != 7 {
		t.Errorf("Move without active resize not applied immediately, location %+v", window.Location)
	}
}

func TestLayerInitialConfigureSentOnce(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	s.NewLayerSurface(5, "", LayerTop, "panel")
	if rec.countOf(func(e Event) bool { _, ok := e.(LayerCreated); return ok }) != 1 {
		t.Fatal("No LayerCreated event")
	}

	for i := 0; i < 5; i++ {
		s.Commit(5)
	}
	if got := len(comp.sentTo(5)); got != 1 {
		t.Errorf("Expected exactly 1 configure under commit storm, got %d", got)
	}
}

func TestLayerConfigureFailureAbandonsHandshake(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	s.NewLayerSurface(5, "", LayerOverlay, "lock")
	comp.failSend[5] = true
	s.Commit(5)

	// The failed handshake must never be retried
	comp.failSend[5] = false
	s.Commit(5)
	s.Commit(5)
	if got := len(comp.sentTo(5)); got != 0 {
		t.Errorf("Abandoned handshake was retried, %d configures sent", got)
	}
	if s.Layers()[0].InitialConfigureSent() != true {
		t.Errorf("Abandoned surface not marked configured")
	}
}

func TestPopupInitialConfigureSentOnce(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 100, Y: 100})
	positioner := Positioner{
		AnchorRect: generaldata.Rect{Loc: generaldata.Vector2i{X: 10, Y: 10}},
		Size:       generaldata.Vector2i{X: 30, Y: 40},
	}
	s.NewPopup(2, 1, positioner)
	if rec.countOf(func(e Event) bool { _, ok := e.(PopupCreated); return ok }) != 1 {
		t.Fatal("No PopupCreated event")
	}

	for i := 0; i < 4; i++ {
		s.Commit(2)
	}
	sent := comp.sentTo(2)
	if len(sent) != 1 {
		t.Fatalf("Expected exactly 1 popup configure, got %d", len(sent))
	}
	if sent[0].configure.Size != (generaldata.Vector2i{X: 30, Y: 40}) {
		t.Errorf("Popup configure size is %+v", sent[0].configure.Size)
	}
}

func TestRefreshRemovesDeadAndKeepsOrder(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	for _, id := range []SurfaceID{1, 2, 3} {
		mapToplevel(t, s, comp, id, generaldata.Vector2i{X: 10, Y: 10})
	}
	s.SurfaceDestroyed(2)
	s.Refresh()

	windows := s.Windows()
	if len(windows) != 2 {
		t.Fatalf("Expected 2 survivors, got %d", len(windows))
	}
	if windows[0].Surface != 1 || windows[1].Surface != 3 {
		t.Errorf("Survivor order broken: %d, %d", windows[0].Surface, windows[1].Surface)
	}
}

func TestSurfaceNeverPendingAndMapped(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	check := func(step string) {
		t.Helper()
		for _, w := range s.Windows() {
			if s.pending.Contains(w.Surface) {
				t.Errorf("After %s: surface %d both pending and mapped", step, w.Surface)
			}
		}
	}

	s.NewToplevel(1)
	check("role request")
	s.Commit(1)
	check("unmappable commit")
	comp.buffers[1] = true
	comp.geometries[1] = generaldata.Rect{Size: generaldata.Vector2i{X: 10, Y: 10}}
	s.Commit(1)
	check("promotion")
	s.Commit(1)
	check("post-promotion commit")
}

func TestUnknownSurfaceEventsAreBenign(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	// None of these may panic or emit window events
	s.Commit(99)
	s.AckConfigure(99, 1)
	s.RequestMove(99, Grab{})
	s.RequestResize(99, Grab{}, EdgeLeft)
	s.RequestMaximize(99)
	s.FinishResize(99)
	s.QueueMove(99, generaldata.Vector2i{})

	for _, e := range rec.events {
		if _, ok := e.(SurfaceCommitted); !ok {
			t.Errorf("Unknown surface produced event %T", e)
		}
	}
}

func TestCommitAfterDestroyIsIgnored(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 10, Y: 10})
	s.SurfaceDestroyed(1)
	rec.reset()
	s.Commit(1)
	if len(rec.events) != 0 {
		t.Errorf("Destroyed surface still produced %d events", len(rec.events))
	}
	if s.ResizeStateOf(1).Kind != ResizeNone {
		t.Errorf("Auxiliary state outlived destruction")
	}
}

func TestDuplicateRoleRequestsIgnored(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	s.NewToplevel(1)
	s.NewLayerSurface(1, "", LayerTop, "sneaky")
	if len(s.Layers()) != 0 {
		t.Errorf("Surface with toplevel role got a layer role too")
	}
	s.NewPopup(1, 2, Positioner{})
	if rec.countOf(func(e Event) bool { _, ok := e.(PopupCreated); return ok }) != 0 {
		t.Errorf("Surface with toplevel role got a popup role too")
	}
}

func TestLayerAckForwardedVerbatim(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	s.NewLayerSurface(5, "HDMI-1", LayerBottom, "bar")
	s.Commit(5)
	rec.reset()

	// Even a serial the shell never sent is forwarded, not rejected
	s.AckLayerConfigure(5, 12345)
	if len(rec.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(rec.events))
	}
	ack, ok := rec.events[0].(LayerAckConfigure)
	if !ok {
		t.Fatalf("Event is %T, not LayerAckConfigure", rec.events[0])
	}
	if ack.Surface != 5 || ack.Serial != 12345 {
		t.Errorf("Ack not forwarded verbatim: %+v", ack)
	}
}

func TestReentrantEventProcessingFailsLoudly(t *testing.T) {
	comp := newFakeCompositor()
	var s *Shell
	s = New(comp, HandlerFunc(func(Event) {
		s.Commit(1) // handlers must never call back in
	}))

	defer func() {
		if recover() == nil {
			t.Error("Re-entrant call did not panic")
		}
	}()
	s.Commit(1)
}

func TestForwardedStateRequests(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 10, Y: 10})
	rec.reset()

	s.RequestMaximize(1)
	s.RequestUnMaximize(1)
	s.RequestFullscreen(1, "DP-1")
	s.RequestUnFullscreen(1)
	s.RequestMinimize(1)
	s.RequestMove(1, Grab{Seat: "seat0", Serial: 9})
	s.RequestResize(1, Grab{Seat: "seat0", Serial: 10}, EdgeBottomRight)
	s.RequestShowWindowMenu(1, Grab{Serial: 11}, generaldata.Vector2i{X: 5, Y: 5})

	if len(rec.events) != 8 {
		t.Fatalf("Expected 8 forwarded events, got %d", len(rec.events))
	}
	if fs, ok := rec.events[2].(WindowFullscreenRequested); !ok || fs.Output != "DP-1" {
		t.Errorf("Fullscreen request not forwarded with its output: %+v", rec.events[2])
	}
	if rr, ok := rec.events[6].(WindowResizeRequested); !ok || rr.Edges != EdgeBottomRight {
		t.Errorf("Resize request lost its edges: %+v", rec.events[6])
	}
}

func TestSubtreeSlotsInitializedOnCommit(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	comp.subtrees[1] = []SurfaceID{1, 2, 3}
	s.Commit(1)
	for _, id := range []SurfaceID{1, 2, 3} {
		if s.data.get(id) == nil {
			t.Errorf("Subsurface %d has no auxiliary slot", id)
		}
	}

	// Synchronized subsurfaces don't get their subtree touched
	comp.syncSubs[4] = true
	comp.subtrees[4] = []SurfaceID{4, 5}
	s.Commit(4)
	if s.data.get(5) != nil {
		t.Errorf("Sync subsurface commit initialized child slots")
	}
}

func TestIntrospectionSlicesAreDetached(t *testing.T) {
	comp := newFakeCompositor()
	rec := &recorder{}
	s := New(comp, rec)

	mapToplevel(t, s, comp, 1, generaldata.Vector2i{X: 100, Y: 100})
	mapToplevel(t, s, comp, 2, generaldata.Vector2i{X: 100, Y: 100})
	s.NewLayerSurface(3, "", LayerTop, "bar")
	s.NewLayerSurface(4, "", LayerOverlay, "notify")

	windows := s.Windows()
	windows[0], windows[1] = windows[1], windows[0]
	_ = append(windows, &Window{Surface: 99})

	got := s.Windows()
	if len(got) != 2 {
		t.Fatalf("Registry has %d windows after caller appended, expected 2", len(got))
	}
	if got[0].Surface != 1 || got[1].Surface != 2 {
		t.Errorf("Registry order changed by caller-side swap: %d, %d", got[0].Surface, got[1].Surface)
	}

	layers := s.Layers()
	layers[0], layers[1] = layers[1], layers[0]

	gotLayers := s.Layers()
	if gotLayers[0].Surface != 3 || gotLayers[1].Surface != 4 {
		t.Errorf("Layer registry order changed by caller-side swap: %d, %d", gotLayers[0].Surface, gotLayers[1].Surface)
	}
}
