package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"
	"github.com/swaywm/go-wlroots/xkb"

	"github.com/mstarongithub/way2shell/config"
	generaldata "github.com/mstarongithub/way2shell/general-data"
	"github.com/mstarongithub/way2shell/shell"
	"github.com/mstarongithub/way2shell/util"
	"github.com/mstarongithub/way2shell/util/multiplexer"
)

type CursorMode int

const (
	CursorModePassThrough CursorMode = iota
	CursorModeMove
	CursorModeResize
)

type Server struct {
	conf *config.Config

	display     wlroots.Display
	backend     wlroots.Backend
	renderer    wlroots.Renderer
	allocator   wlroots.Allocator
	scene       wlroots.Scene
	sceneLayout wlroots.SceneOutputLayout

	xdgShell wlroots.XDGShell

	// The shell engine owns all surface lifecycle state. Everything below
	// feeds it from the single wlroots dispatch thread.
	shell    *shell.Shell
	surfaces *surfaceTable
	events   *multiplexer.OneToMany[shell.Event]

	// Published copy of the shell state for other goroutines (the repl,
	// tool mode). The shell itself is single threaded; dispatch callbacks
	// republish after every mutation and never hand out live state.
	stateLock sync.RWMutex
	state     shellSnapshot

	cursor    wlroots.Cursor
	cursorMgr wlroots.XCursorManager

	seat        wlroots.Seat
	keyboards   []*Keyboard
	cursorMode  CursorMode
	grabbed     shell.SurfaceID
	grabX       float64
	grabY       float64
	grabGeobox  wlroots.GeoBox
	resizeEdges shell.Edges

	// Serial source for configures pushed through the shell. wlroots
	// manages the real wire serials internally, so these only correlate
	// the shell's configure/ack pairs.
	configureSerial uint32

	outputLayout wlroots.OutputLayout
	outputs      []*wlroots.Output
}

type Keyboard struct {
	dev wlroots.InputDevice
}

// surfaceTable hands out the stable ids the shell keys on and maps them
// back to wlroots handles
type surfaceTable struct {
	next   shell.SurfaceID
	ids    map[wlroots.XDGSurface]shell.SurfaceID
	xdgs   map[shell.SurfaceID]wlroots.XDGSurface
	mapped map[shell.SurfaceID]bool
}

func newSurfaceTable() *surfaceTable {
	return &surfaceTable{
		ids:    make(map[wlroots.XDGSurface]shell.SurfaceID),
		xdgs:   make(map[shell.SurfaceID]wlroots.XDGSurface),
		mapped: make(map[shell.SurfaceID]bool),
	}
}

func (t *surfaceTable) register(xdgSurface wlroots.XDGSurface) shell.SurfaceID {
	if id, ok := t.ids[xdgSurface]; ok {
		return id
	}
	t.next++
	t.ids[xdgSurface] = t.next
	t.xdgs[t.next] = xdgSurface
	return t.next
}

func (t *surfaceTable) lookup(xdgSurface wlroots.XDGSurface) (shell.SurfaceID, bool) {
	id, ok := t.ids[xdgSurface]
	return id, ok
}

func (t *surfaceTable) xdg(id shell.SurfaceID) (wlroots.XDGSurface, bool) {
	xdgSurface, ok := t.xdgs[id]
	return xdgSurface, ok
}

func (t *surfaceTable) forget(id shell.SurfaceID) {
	if xdgSurface, ok := t.xdgs[id]; ok {
		delete(t.ids, xdgSurface)
	}
	delete(t.xdgs, id)
	delete(t.mapped, id)
}

// shellSnapshot is a value copy of everything the repl and tool mode want
// to inspect. Once published a snapshot is never mutated, so readers may
// hold on to it without a lock.
type shellSnapshot struct {
	Windows     []shell.Window
	Layers      []shell.LayerEntry
	Pending     int
	Resize      map[shell.SurfaceID]shell.ResizeState
	Grabbed     shell.SurfaceID
	ResizeEdges shell.Edges
	Mode        CursorMode
}

// publishState rebuilds the snapshot from the live shell. Must run on the
// dispatch thread, after every callback that touched shell state.
func (server *Server) publishState() {
	snap := shellSnapshot{
		Pending:     server.shell.PendingCount(),
		Resize:      make(map[shell.SurfaceID]shell.ResizeState),
		Grabbed:     server.grabbed,
		ResizeEdges: server.resizeEdges,
		Mode:        server.cursorMode,
	}
	for _, window := range server.shell.Windows() {
		snap.Windows = append(snap.Windows, *window)
		snap.Resize[window.Surface] = server.shell.ResizeStateOf(window.Surface)
	}
	for _, entry := range server.shell.Layers() {
		snap.Layers = append(snap.Layers, *entry)
	}
	server.stateLock.Lock()
	server.state = snap
	server.stateLock.Unlock()
}

// Snapshot returns the last published shell state. Safe from any goroutine.
func (server *Server) Snapshot() shellSnapshot {
	server.stateLock.RLock()
	defer server.stateLock.RUnlock()
	return server.state
}

//
// shell.Compositor implementation
//

func (server *Server) HasBuffer(id shell.SurfaceID) bool {
	// wlroots maps an xdg surface once it has a committed buffer, so
	// mapped is exactly "has a buffer" at this layer
	return server.surfaces.mapped[id]
}

func (server *Server) IsSyncSubsurface(id shell.SurfaceID) bool {
	// Subsurface synchronization is resolved inside the wlroots scene
	// graph before we ever see the surface
	return false
}

func (server *Server) SubsurfaceTree(id shell.SurfaceID) []shell.SurfaceID {
	// Subsurfaces don't surface through go-wlroots; the tree is its root
	return []shell.SurfaceID{id}
}

func (server *Server) SurfaceGeometry(id shell.SurfaceID) (generaldata.Rect, bool) {
	xdgSurface, ok := server.surfaces.xdg(id)
	if !ok {
		return generaldata.Rect{}, false
	}
	box := xdgSurface.Geometry()
	if box.Width == 0 && box.Height == 0 {
		return generaldata.Rect{}, false
	}
	return generaldata.Rect{
		Loc:  generaldata.Vector2i{X: box.X, Y: box.Y},
		Size: generaldata.Vector2i{X: box.Width, Y: box.Height},
	}, true
}

func (server *Server) ImportBuffer(id shell.SurfaceID) {
	// The scene graph imports committed buffers on its own
}

func (server *Server) SendConfigure(id shell.SurfaceID, configure shell.Configure) (uint32, error) {
	xdgSurface, ok := server.surfaces.xdg(id)
	if !ok {
		return 0, errors.New("surface is gone")
	}
	xdgSurface.TopLevelSetSize(uint32(configure.Size.X), uint32(configure.Size.Y))
	server.configureSerial++
	return server.configureSerial, nil
}

//
// shell.Handler implementation
//

func (server *Server) OnShellEvent(event shell.Event) {
	switch ev := event.(type) {
	case shell.WindowCreated:
		logrus.WithFields(logrus.Fields{
			"surface": ev.Window.Surface,
			"size":    ev.Window.Size,
		}).Debugln("Window created")
		server.focusWindow(ev.Window.Surface)
	case shell.WindowResized:
		if xdgSurface, ok := server.surfaces.xdg(ev.Window.Surface); ok {
			xdgSurface.SceneTree().Node().SetPosition(
				float64(ev.Window.Location.X),
				float64(ev.Window.Location.Y),
			)
		}
	}
	// Every event also goes out to whoever is observing (repl, ipc)
	select {
	case server.events.GetSender() <- event:
	default:
	}
}

func (server *Server) focusWindow(id shell.SurfaceID) {
	xdgSurface, ok := server.surfaces.xdg(id)
	if !ok {
		return
	}
	topLevel := xdgSurface.TopLevel()
	surface := xdgSurface.Surface()
	server.focusTopLevel(&topLevel, &surface)
}

func (server *Server) focusTopLevel(topLevel *wlroots.XDGTopLevel, surface *wlroots.Surface) {
	/* Note: this function only deals with keyboard focus. */
	if topLevel == nil {
		return
	}
	prevSurface := server.seat.KeyboardState().FocusedSurface()
	if prevSurface == *surface {
		/* Don't re-focus an already focused surface. */
		return
	}

	if !prevSurface.Nil() {
		/* Deactivate the previously focused surface so the client repaints
		 * accordingly, e.g. stops displaying a caret. */
		prevTopLevel, err := prevSurface.XDGTopLevel()
		if err == nil {
			prevTopLevel.SetActivated(false)
		}
	}

	topLevel.Base().SceneTree().Node().RaiseToTop()
	topLevel.SetActivated(true)
	/* Tell the seat to have the keyboard enter this surface. wlroots keeps
	 * track of this and sends key events to the right client on its own. */
	server.seat.NotifyKeyboardEnter(topLevel.Base().Surface(), server.seat.Keyboard())
}

func (server *Server) handleNewPointer(dev wlroots.InputDevice) {
	/* All pointer handling is proxied through wlr_cursor. */
	server.cursor.AttachInputDevice(dev)
}

func (server *Server) handleKey(keyboard wlroots.Keyboard, time uint32, keyCode uint32, updateState bool, state wlroots.KeyState) {
	// translate libinput keycode to xkbcommon and obtain keysyms
	syms := keyboard.XKBState().Syms(xkb.KeyCode(keyCode + 8))

	handled := false
	modifiers := keyboard.Modifiers()
	if (modifiers&wlroots.KeyboardModifierAlt != 0) && state == wlroots.KeyStatePressed {
		for _, sym := range syms {
			handled = server.handleKeyBinding(sym)
		}
	}

	if !handled {
		/* Otherwise, we pass it along to the client. */
		server.seat.SetKeyboard(keyboard.Base())
		server.seat.NotifyKeyboardKey(time, keyCode, state)
	}
}

func (server *Server) handleNewKeyboard(dev wlroots.InputDevice) {
	keyboard := dev.Keyboard()

	/* Prepare an XKB keymap with the defaults (e.g. layout = "us"). */
	context := xkb.NewContext(xkb.KeySymFlagNoFlags)
	keymap := context.KeyMap()
	keyboard.SetKeymap(keymap)
	keymap.Destroy()
	context.Destroy()
	keyboard.SetRepeatInfo(25, 600)

	keyboard.OnModifiers(func(keyboard wlroots.Keyboard) {
		server.seat.SetKeyboard(dev)
		server.seat.NotifyKeyboardModifiers(keyboard)
	})
	keyboard.OnKey(server.handleKey)

	server.seat.SetKeyboard(dev)
	server.keyboards = append(server.keyboards, &Keyboard{dev: dev})
}

func (server *Server) handleNewInput(dev wlroots.InputDevice) {
	switch dev.Type() {
	case wlroots.InputDeviceTypePointer:
		server.handleNewPointer(dev)
	case wlroots.InputDeviceTypeKeyboard:
		server.handleNewKeyboard(dev)
	}

	/* Always advertise a cursor, even with no pointer devices. */
	caps := wlroots.SeatCapabilityPointer
	if len(server.keyboards) > 0 {
		caps |= wlroots.SeatCapabilityKeyboard
	}
	server.seat.SetCapabilities(caps)
}

// topLevelAt returns the mapped toplevel under the layout coordinates, if any
func (server *Server) topLevelAt(lx float64, ly float64) (*wlroots.XDGTopLevel, *wlroots.Surface, float64, float64) {
	node, sx, sy := server.scene.Tree().Node().At(lx, ly)

	if node.Nil() || node.Type() != wlroots.SceneNodeBuffer {
		return nil, nil, 0, 0
	}
	sceneSurface := node.SceneBuffer().SceneSurface()
	if sceneSurface.Nil() {
		return nil, nil, 0, 0
	}
	surface := sceneSurface.Surface()

	topLevel := surface.XDGSurface().TopLevel()
	if id, ok := server.surfaces.lookup(topLevel.Base()); ok && server.shell.FindWindow(id) != nil {
		return &topLevel, &surface, sx, sy
	}
	return nil, &surface, sx, sy
}

func (server *Server) handleNewFrame(output wlroots.Output) {
	/* Called every time an output is ready to display a frame, generally
	 * at the output's refresh rate. */
	sOut, err := server.scene.SceneOutput(output)
	if err != nil {
		return
	}
	sOut.Commit()
	sOut.SendFrameDone(time.Now())
}

func (server *Server) handleOutputRequestState(output wlroots.Output, state wlroots.OutputState) {
	/* The backend requests a new state, e.g. the Wayland/X11 backends on
	 * window resize. */
	output.CommitState(state)
}

func (server *Server) handleOutputDestroy(output wlroots.Output) {
	logrus.WithField("name", output.Name()).Debugln("Output getting destroyed")
}

func (server *Server) handleNewOutput(output wlroots.Output) {
	logrus.WithField("name", output.Name()).Debugln("New output added")
	server.outputs = append(server.outputs, &output)

	/* Must be done once, before committing the output */
	output.InitRender(server.allocator, server.renderer)

	/* The output may be disabled, switch it on. */
	oState := wlroots.NewOutputState()
	oState.StateInit()
	oState.StateSetEnabled(true)

	/* Pick the monitor's preferred mode when the backend has modes. */
	mode, err := output.PrefferedMode()
	if err == nil {
		oState.SetMode(mode)
	}

	output.CommitState(oState)
	oState.Finish()

	output.OnFrame(server.handleNewFrame)
	output.OnRequestState(server.handleOutputRequestState)
	output.OnDestroy(server.handleOutputDestroy)

	/* add_auto arranges outputs left-to-right in the order they appear and
	 * publishes a wl_output global for clients. */
	lOutput := server.outputLayout.AddOutputAuto(output)
	sceneOutput := server.scene.NewOutput(output)
	server.sceneLayout.AddOutput(lOutput, sceneOutput)

	if err = output.SetTitle(fmt.Sprintf("way2shell - %s", output.Name())); err != nil {
		return
	}
}

func (server *Server) handleCursorMotion(dev wlroots.InputDevice, time uint32, dx float64, dy float64) {
	server.cursor.Move(dev, dx, dy)
	server.processCursorMotion(time)
}

func (server *Server) handleCursorMotionAbsolute(dev wlroots.InputDevice, time uint32, x float64, y float64) {
	server.cursor.WarpAbsolute(dev, x, y)
	server.processCursorMotion(time)
}

func (server *Server) processCursorMotion(time uint32) {
	if server.cursorMode == CursorModeMove {
		server.processCursorMove(time)
		return
	} else if server.cursorMode == CursorModeResize {
		server.processCursorResize(time)
		return
	}

	/* Find the toplevel under the pointer and forward the event. */
	topLevel, surface, sx, sy := server.topLevelAt(server.cursor.X(), server.cursor.Y())
	if topLevel == nil {
		server.cursor.SetXCursor(server.cursorMgr, "default")
	}
	if surface != nil {
		/* The enter event gives the surface pointer focus. wlroots avoids
		 * sending duplicate enter/motion events on its own. */
		server.seat.NotifyPointerEnter(*surface, sx, sy)
		server.seat.NotifyPointerMotion(time, sx, sy)
	} else {
		server.seat.ClearPointerFocus()
	}
}

func (server *Server) processCursorMove(_ uint32) {
	/* Reposition through the shell so a queued move coalesces with any
	 * in-flight resize instead of fighting it. */
	server.shell.QueueMove(server.grabbed, generaldata.Vector2i{
		X: int(server.cursor.X() - server.grabX),
		Y: int(server.cursor.Y() - server.grabY),
	})
	if xdgSurface, ok := server.surfaces.xdg(server.grabbed); ok {
		if window := server.shell.FindWindow(server.grabbed); window != nil {
			xdgSurface.SceneTree().Node().SetPosition(
				float64(window.Location.X),
				float64(window.Location.Y),
			)
		}
	}
	server.publishState()
}

func (server *Server) processCursorResize(_ uint32) {
	/* Resizing can happen from any corner or edge, so one or two axes
	 * change and the shell moves the toplevel when the top or left edge
	 * follows the drag. The position catch-up happens in the shell's
	 * commit handling; here we only propose sizes. */
	borderX := int(server.cursor.X())
	borderY := int(server.cursor.Y())
	nLeft := server.grabGeobox.X
	nRight := server.grabGeobox.X + server.grabGeobox.Width
	nTop := server.grabGeobox.Y
	nBottom := server.grabGeobox.Y + server.grabGeobox.Height

	if server.resizeEdges.Intersects(shell.EdgeTop) {
		nTop = util.Clamp(borderY, math.MinInt32, nBottom-1)
	} else if server.resizeEdges.Intersects(shell.EdgeBottom) {
		nBottom = util.Clamp(borderY, nTop+1, math.MaxInt32)
	}

	if server.resizeEdges.Intersects(shell.EdgeLeft) {
		nLeft = util.Clamp(borderX, math.MinInt32, nRight-1)
	} else if server.resizeEdges.Intersects(shell.EdgeRight) {
		nRight = util.Clamp(borderX, nLeft+1, math.MaxInt32)
	}

	if xdgSurface, ok := server.surfaces.xdg(server.grabbed); ok {
		xdgSurface.TopLevelSetSize(uint32(nRight-nLeft), uint32(nBottom-nTop))
	}
}

func (server *Server) handleSetCursorRequest(client wlroots.SeatClient, surface wlroots.Surface, _ uint32, hotspotX int32, hotspotY int32) {
	/* Any client can send this, so check that it has pointer focus. */
	focusedClient := server.seat.PointerState().FocusedClient()
	if focusedClient == client {
		server.cursor.SetSurface(surface, hotspotX, hotspotY)
	}
}

func (server *Server) resetCursorMode() {
	if server.cursorMode == CursorModeResize && server.grabbed != 0 {
		/* The grab ended: the shell sends the final configure and waits
		 * for the client's ack/commit pair. */
		server.shell.FinishResize(server.grabbed)
	}
	server.cursorMode = CursorModePassThrough
	server.grabbed = 0
	server.publishState()
}

func (server *Server) handleCursorButton(_ wlroots.InputDevice, time uint32, button uint32, state wlroots.ButtonState) {
	server.seat.NotifyPointerButton(time, button, state)

	if state == wlroots.ButtonStateReleased {
		/* Releasing any button exits interactive move/resize mode. */
		server.resetCursorMode()
	} else {
		topLevel, surface, _, _ := server.topLevelAt(server.cursor.X(), server.cursor.Y())
		server.focusTopLevel(topLevel, surface)
	}
}

func (server *Server) handleCursorAxis(_ wlroots.InputDevice, time uint32, source wlroots.AxisSource, orientation wlroots.AxisOrientation, delta float64, deltaDiscrete int32) {
	server.seat.NotifyPointerAxis(time, orientation, delta, deltaDiscrete, source)
}

func (server *Server) handleCursorFrame() {
	server.seat.NotifyPointerFrame()
}

func (server *Server) handleKeyBinding(sym xkb.KeySym) bool {
	/* Compositor keybindings, processed while Alt is held down. */
	switch sym {
	case xkb.KeySymEscape:
		server.display.Terminate()
	case xkb.KeySymF1:
		/* Cycle to the next mapped window in z-order */
		windows := server.shell.Windows()
		if len(windows) < 2 {
			break
		}
		server.focusWindow(windows[len(windows)-1].Surface)
	default:
		return false
	}
	return true
}

func (server *Server) handleMapXDGToplevel(xdgSurface wlroots.XDGSurface) {
	/* The surface is ready to display: it has a buffer now, which is the
	 * commit the shell has been waiting for. */
	id, ok := server.surfaces.lookup(xdgSurface)
	if !ok {
		return
	}
	server.surfaces.mapped[id] = true
	server.shell.Commit(id)
	server.publishState()
}

func (server *Server) handleUnMapXDGToplevel(xdgSurface wlroots.XDGSurface) {
	id, ok := server.surfaces.lookup(xdgSurface)
	if !ok {
		return
	}
	if server.grabbed == id {
		server.resetCursorMode()
	}
	server.shell.SurfaceDestroyed(id)
	server.shell.Refresh()
	server.publishState()
}

func (server *Server) handleDestroyXDGSurface(xdgSurface wlroots.XDGSurface) {
	id, ok := server.surfaces.lookup(xdgSurface)
	if !ok {
		return
	}
	server.shell.SurfaceDestroyed(id)
	server.shell.Refresh()
	server.surfaces.forget(id)
	server.publishState()
}

func (server *Server) handleNewXDGSurface(xdgSurface wlroots.XDGSurface) {
	/* Raised when a client creates a new xdg surface, either a toplevel
	 * (application window) or a popup. */
	logrus.WithField("surface", xdgSurface).Debugln("New surface inbound")

	if xdgSurface.Role() == wlroots.XDGSurfaceRolePopup {
		parent := xdgSurface.Popup().Parent()
		if parent.Nil() {
			logrus.WithField("surface", xdgSurface).Errorln("Popup without a parent, ignoring")
			return
		}
		xdgSurface.SetData(parent.XDGSurface().SceneTree().NewXDGSurface(xdgSurface))

		id := server.surfaces.register(xdgSurface)
		parentID, ok := server.surfaces.lookup(parent.XDGSurface())
		if !ok {
			return
		}
		// go-wlroots doesn't expose the positioner; the popup's own
		// geometry stands in once it commits
		server.shell.NewPopup(id, parentID, shell.Positioner{})
		server.publishState()
		xdgSurface.OnMap(server.handleMapXDGToplevel)
		xdgSurface.OnDestroy(server.handleDestroyXDGSurface)
		return
	}
	if xdgSurface.Role() != wlroots.XDGSurfaceRoleTopLevel {
		logrus.WithFields(logrus.Fields{
			"surface": xdgSurface,
			"role":    xdgSurface.Role(),
		}).Errorln("Surface with unknown role, ignoring")
		return
	}

	xdgSurface.SetData(server.scene.Tree().NewXDGSurface(xdgSurface.TopLevel().Base()))

	id := server.surfaces.register(xdgSurface)
	server.shell.NewToplevel(id)
	server.publishState()

	xdgSurface.OnMap(server.handleMapXDGToplevel)
	xdgSurface.OnUnmap(server.handleUnMapXDGToplevel)
	xdgSurface.OnDestroy(server.handleDestroyXDGSurface)

	toplevel := xdgSurface.TopLevel()
	toplevel.OnRequestMove(func(client wlroots.SeatClient, serial uint32) {
		server.shell.RequestMove(id, server.grabSnapshot(serial))
		server.beginInteractive(&toplevel, id, CursorModeMove, shell.EdgeNone)
		server.publishState()
	})
	toplevel.OnRequestResize(func(client wlroots.SeatClient, serial uint32, edges wlroots.Edges) {
		shellEdges := convertEdges(edges)
		server.shell.RequestResize(id, server.grabSnapshot(serial), shellEdges)
		server.beginInteractive(&toplevel, id, CursorModeResize, shellEdges)
		server.shell.StartResize(id, shellEdges)
		server.publishState()
	})
}

func (server *Server) grabSnapshot(serial uint32) shell.Grab {
	return shell.Grab{
		Seat:   server.conf.SeatName,
		Serial: serial,
		Location: generaldata.Vector2i{
			X: int(server.cursor.X()),
			Y: int(server.cursor.Y()),
		},
	}
}

// convertEdges translates the wlroots edge bits into the shell's
func convertEdges(edges wlroots.Edges) shell.Edges {
	var out shell.Edges
	if edges&wlroots.EdgeTop != 0 {
		out |= shell.EdgeTop
	}
	if edges&wlroots.EdgeBottom != 0 {
		out |= shell.EdgeBottom
	}
	if edges&wlroots.EdgeLeft != 0 {
		out |= shell.EdgeLeft
	}
	if edges&wlroots.EdgeRight != 0 {
		out |= shell.EdgeRight
	}
	return out
}

func (server *Server) beginInteractive(topLevel *wlroots.XDGTopLevel, id shell.SurfaceID, mode CursorMode, edges shell.Edges) {
	/* Set up an interactive move or resize: the compositor consumes
	 * pointer events itself instead of propagating them to the client. */
	if topLevel.Base().Surface() != server.seat.PointerState().FocusedSurface() {
		/* Deny move/resize requests from unfocused clients. */
		return
	}
	server.grabbed = id
	server.cursorMode = mode

	if mode == CursorModeMove {
		server.grabX = server.cursor.X() - float64(topLevel.Base().SceneTree().Node().X())
		server.grabY = server.cursor.Y() - float64(topLevel.Base().SceneTree().Node().Y())
	} else {
		box := topLevel.Base().Geometry()
		r := 0
		if edges.Intersects(shell.EdgeRight) {
			r = box.Width
		}
		b := 0
		if edges.Intersects(shell.EdgeBottom) {
			b = box.Height
		}
		borderX := (topLevel.Base().SceneTree().Node().X() + box.X) + r
		borderY := (topLevel.Base().SceneTree().Node().Y() + box.Y) + b
		server.grabX = server.cursor.X() + float64(borderX)
		server.grabY = server.cursor.Y() + float64(borderY)
		server.grabGeobox = box
		server.grabGeobox.X += topLevel.Base().SceneTree().Node().X()
		server.grabGeobox.Y += topLevel.Base().SceneTree().Node().Y()

		server.resizeEdges = edges
	}
}

func (server *Server) GetOutputs() []*wlroots.Output {
	return server.outputs
}

// Events returns the plexer broadcasting every shell event, for observers
// like the repl
func (server *Server) Events() *multiplexer.OneToMany[shell.Event] {
	return server.events
}

func NewServer(conf *config.Config) (server *Server, err error) {
	server = new(Server)
	server.conf = conf
	server.surfaces = newSurfaceTable()
	server.events = multiplexer.NewOneToMany[shell.Event](32)
	go server.events.Run()

	server.shell = shell.New(server, server)
	server.shell.WarnLayerAckMismatch = conf.WarnLayerAcks
	server.publishState()

	/* The Wayland display is managed by libwayland. It handles accepting
	 * clients from the Unix socket, managing Wayland globals, and so on. */
	server.display = wlroots.NewDisplay()

	/* The backend abstracts the underlying input and output hardware. The
	 * autocreate option picks the most suitable backend for the current
	 * environment, e.g. an X11 window when an X11 server is running. */
	server.backend, err = server.display.BackendAutocreate()
	if err != nil {
		return nil, err
	}

	/* Autocreates a renderer, either Pixman, GLES2 or Vulkan. The user can
	 * also pick one via the WLR_RENDERER env var. */
	server.renderer, err = server.backend.RendererAutoCreate()
	if err != nil {
		return nil, err
	}
	server.renderer.InitDisplay(server.display)

	/* The allocator bridges the renderer and the backend, handling buffer
	 * creation. */
	server.allocator, err = server.backend.AllocatorAutocreate(server.renderer)
	if err != nil {
		return nil, err
	}

	/* The compositor global lets clients allocate surfaces, the
	 * subcompositor assigns the subsurface role, the data device manager
	 * handles the clipboard. */
	server.display.CompositorCreate(5, server.renderer)
	server.display.SubCompositorCreate()
	server.display.DataDeviceManagerCreate()

	/* An output layout arranges screens in a physical layout. */
	server.outputLayout = wlroots.NewOutputLayout()
	server.backend.OnNewOutput(server.handleNewOutput)

	/* The scene graph handles all rendering and damage tracking; we only
	 * add things to it at the right positions. */
	server.scene = wlroots.NewScene()
	server.sceneLayout = server.scene.AttachOutputLayout(server.outputLayout)

	/* xdg-shell v3, the Wayland protocol for application windows. Every
	 * new surface flows into the shell engine from here. */
	server.xdgShell = server.display.XDGShellCreate(3)
	server.xdgShell.OnNewSurface(server.handleNewXDGSurface)

	/* The cursor is a wlroots utility for tracking the cursor image. */
	server.cursor = wlroots.NewCursor()
	server.cursor.AttachOutputLayout(server.outputLayout)

	/* An xcursor manager loads Xcursor themes at all needed scale factors. */
	server.cursorMgr = wlroots.NewXCursorManager("", 24)

	server.cursorMode = CursorModePassThrough
	server.cursor.OnMotion(server.handleCursorMotion)
	server.cursor.OnMotionAbsolute(server.handleCursorMotionAbsolute)
	server.cursor.OnButton(server.handleCursorButton)
	server.cursor.OnAxis(server.handleCursorAxis)
	server.cursor.OnFrame(server.handleCursorFrame)
	server.cursorMgr.Load(1)

	/* A seat is a single "seat" at which a user operates the computer:
	 * up to one keyboard, pointer, touch and drawing tablet. */
	server.backend.OnNewInput(server.handleNewInput)
	server.seat = server.display.SeatCreate(conf.SeatName)
	server.seat.OnSetCursorRequest(server.handleSetCursorRequest)

	return
}

func (server *Server) Start() error {
	/* Add a Unix socket to the Wayland display. */
	socket, err := server.display.AddSocketAuto()
	if err != nil {
		server.backend.Destroy()
		return err
	}
	logrus.WithField("socket", socket).Debugln("got wl socket")

	/* Start the backend: enumerate outputs and inputs, become the DRM
	 * master, etc. */
	if err = server.backend.Start(); err != nil {
		server.backend.Destroy()
		server.display.Destroy()
		return err
	}

	if res := os.Getenv("WAYLAND_DISPLAY"); res != "" {
		logrus.WithField("WAYLAND_DISPLAY", res).Debugln("Wayland display already set, overwriting")
	}
	if err = os.Setenv("WAYLAND_DISPLAY", socket); err != nil {
		return err
	}

	logrus.WithField("WAYLAND_DISPLAY", socket).Infoln("Running Wayland compositor")
	return err
}

func (server *Server) Run() error {
	/* Run the Wayland event loop. Does not return until the compositor
	 * exits. */
	server.display.Run()

	/* Once the loop returns, destroy all clients then shut down. */
	server.events.CloseSender()
	server.display.DestroyClients()
	server.scene.Tree().Node().Destroy()
	server.cursorMgr.Destroy()
	server.outputLayout.Destroy()
	server.display.Destroy()
	return nil
}

func (server *Server) Stop() {
	server.display.Terminate()
}
