package shell

import (
	generaldata "github.com/mstarongithub/way2shell/general-data"
)

// SurfaceID is the stable identity of a client surface. The protocol layer
// owns the surface itself; the shell only ever holds this non-owning key.
type SurfaceID uint64

type ResizeKind int

const (
	// No resize in flight
	ResizeNone = ResizeKind(iota)
	// The pointer grab is active and the client is following the drag
	ResizeActive
	// The grab ended, a final configure went out, waiting for its ack
	ResizeWaitingForAck
	// The final configure was acked, waiting for the commit that applies it
	ResizeWaitingForCommit
)

func (k ResizeKind) String() string {
	switch k {
	case ResizeNone:
		return "none"
	case ResizeActive:
		return "active"
	case ResizeWaitingForAck:
		return "waiting-for-ack"
	case ResizeWaitingForCommit:
		return "waiting-for-commit"
	}
	return "invalid"
}

// ResizeData is the snapshot taken when an interactive resize starts.
// The initial location and size anchor the top/left adjustment math for the
// whole duration of the resize.
type ResizeData struct {
	Edges           Edges
	InitialLocation generaldata.Vector2i
	InitialSize     generaldata.Vector2i
}

// ResizeState is a tagged union. Data is meaningful for every kind except
// ResizeNone, AckSerial only for ResizeWaitingForAck.
type ResizeState struct {
	Kind      ResizeKind
	Data      ResizeData
	AckSerial uint32
}

type MoveAfterResizeKind int

const (
	// No queued reposition
	MoveIdle = MoveAfterResizeKind(iota)
	// A target location is queued and will be applied on the next commit
	MoveWaitingForCommit
	// The target was applied; kept around so the last requested location is inspectable
	MoveCurrent
)

// MoveAfterResizeState lets the compositor reposition a window atomically
// with the commit that finalizes a resize, so the client never shows an
// intermediate jump.
type MoveAfterResizeState struct {
	Kind   MoveAfterResizeKind
	Target generaldata.Vector2i
}

// SurfaceData is the per-surface auxiliary slot. One exists for every
// surface the shell has seen in a commit subtree, lazily created.
type SurfaceData struct {
	Resize          ResizeState
	MoveAfterResize MoveAfterResizeState
}

// surfaceDataTable is an explicit slot table keyed by surface identity.
// Only the shell mutates it, always from inside event processing.
type surfaceDataTable struct {
	slots map[SurfaceID]*SurfaceData
}

func newSurfaceDataTable() *surfaceDataTable {
	return &surfaceDataTable{slots: make(map[SurfaceID]*SurfaceData)}
}

// ensure returns the slot for the surface, creating an empty one if missing
func (t *surfaceDataTable) ensure(surface SurfaceID) *SurfaceData {
	if data, ok := t.slots[surface]; ok {
		return data
	}
	data := &SurfaceData{}
	t.slots[surface] = data
	return data
}

// get returns the slot for the surface or nil if none was ever created
func (t *surfaceDataTable) get(surface SurfaceID) *SurfaceData {
	return t.slots[surface]
}

// drop removes the slot. Called on surface destruction so resize state
// never outlives the surface.
func (t *surfaceDataTable) drop(surface SurfaceID) {
	delete(t.slots, surface)
}
