package ipc

// TODO: Grow this into a proper unix-socket protocol so external bars and
// launchers can query shell state the way they query sway

type (
	// A request to list the shell's mapped windows
	WindowRequest struct {
		// Include per-window resize state in the response
		IncludeResizeState bool `json:"include_resize_state"`
		// Target one specific surface
		SpecifiesSurface bool `json:"specifies_surface"`
		// Surface id to report on. Only matters if SpecifiesSurface is set
		TargetSurface uint64 `json:"target_surface"`
	}

	// One mapped toplevel
	WindowInfo struct {
		// Surface id backing the window
		Surface uint64 `json:"surface"`
		// Window geometry in logical coordinates
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
		// Human readable resize state. Only set if requested
		ResizeState string `json:"resize_state,omitempty"`
	}

	// Response to a WindowRequest message
	WindowResponse struct {
		// All mapped windows in z-order. Only the target window if one was specified
		Windows []WindowInfo `json:"windows"`
		// Nr of windows found
		WindowsFound int `json:"windows_found"`
		// Nr of surfaces with a toplevel role still waiting for their first buffer
		PendingSurfaces int `json:"pending_surfaces"`
	}

	// A request to list the shell's mapped layer surfaces
	LayerRequest struct {
		// Only report surfaces on this layer (background, bottom, top, overlay)
		FilterLayer string `json:"filter_layer,omitempty"`
	}

	// One mapped layer surface
	LayerInfo struct {
		Surface   uint64 `json:"surface"`
		Namespace string `json:"namespace"`
		Layer     string `json:"layer"`
		// Output the surface is bound to, empty if the compositor picks
		Output string `json:"output,omitempty"`
		// Whether the initial configure handshake has started
		Configured bool `json:"configured"`
	}

	// Response to a LayerRequest message
	LayerResponse struct {
		Layers      []LayerInfo `json:"layers"`
		LayersFound int         `json:"layers_found"`
	}
)
