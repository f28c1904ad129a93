package shell

import (
	generaldata "github.com/mstarongithub/way2shell/general-data"
)

// Handler is the embedding policy layer. It receives every shell event in
// order, from the same goroutine that fed the shell the protocol event.
type Handler interface {
	OnShellEvent(event Event)
}

// Event is the closed set of notifications the shell emits. Switch on the
// concrete type to consume them.
type Event interface {
	shellEvent()
}

// Grab is a snapshot of the pointer grab that initiated an interactive
// request: which seat, the request serial and where the pointer was.
type Grab struct {
	Seat     string
	Serial   uint32
	Location generaldata.Vector2i
}

// WindowCreated fires once when a pending toplevel gets mapped
type WindowCreated struct {
	Window *Window
}

// WindowMoveRequested forwards a client's interactive-move request.
// Granting it (and calling QueueMove later) is the handler's call.
type WindowMoveRequested struct {
	Window *Window
	Grab   Grab
}

// WindowResizeRequested forwards a client's interactive-resize request.
// The handler decides whether to grant it via StartResize.
type WindowResizeRequested struct {
	Window *Window
	Grab   Grab
	Edges  Edges
}

// WindowResized reports the reconciled geometry drift of a commit while a
// resize or queued move was in flight. A nil axis means that axis did not
// change on this commit.
type WindowResized struct {
	Window *Window
	NewX   *int
	NewY   *int
}

// Forwarded client state requests. The shell takes no position on them.
type (
	WindowMaximizeRequested struct {
		Window *Window
	}
	WindowUnMaximizeRequested struct {
		Window *Window
	}
	WindowFullscreenRequested struct {
		Window *Window
		// Output the client asked for, empty for "any"
		Output string
	}
	WindowUnFullscreenRequested struct {
		Window *Window
	}
	WindowMinimizeRequested struct {
		Window *Window
	}
)

// PopupCreated fires when a client assigns the popup role to a surface
type PopupCreated struct {
	Popup *PopupEntry
}

// PopupGrabRequested forwards a client's explicit popup grab request
type PopupGrabRequested struct {
	Popup *PopupEntry
	Grab  Grab
}

// ShowWindowMenuRequested forwards a client's window-menu request, with
// the menu location in window-local logical coordinates
type ShowWindowMenuRequested struct {
	Window   *Window
	Grab     Grab
	Location generaldata.Vector2i
}

// SurfaceCommitted is the generic commit notification. It is emitted for
// every commit, always after all state-specific events of that commit, so
// the handler observes fully settled state.
type SurfaceCommitted struct {
	Surface SurfaceID
}

// LayerCreated fires when a client assigns the layer role to a surface
type LayerCreated struct {
	Layer *LayerEntry
}

// LayerAckConfigure forwards a layer surface's ack verbatim. The shell
// does not validate the serial; see AckLayerConfigure.
type LayerAckConfigure struct {
	Surface SurfaceID
	Serial  uint32
}

func (WindowCreated) shellEvent()               {}
func (WindowMoveRequested) shellEvent()         {}
func (WindowResizeRequested) shellEvent()       {}
func (WindowResized) shellEvent()               {}
func (WindowMaximizeRequested) shellEvent()     {}
func (WindowUnMaximizeRequested) shellEvent()   {}
func (WindowFullscreenRequested) shellEvent()   {}
func (WindowUnFullscreenRequested) shellEvent() {}
func (WindowMinimizeRequested) shellEvent()     {}
func (PopupCreated) shellEvent()                {}
func (PopupGrabRequested) shellEvent()          {}
func (ShowWindowMenuRequested) shellEvent()     {}
func (SurfaceCommitted) shellEvent()            {}
func (LayerCreated) shellEvent()                {}
func (LayerAckConfigure) shellEvent()           {}

// HandlerFunc adapts a plain function to the Handler interface
type HandlerFunc func(Event)

func (f HandlerFunc) OnShellEvent(event Event) {
	f(event)
}
