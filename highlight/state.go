package highlight

import "fmt"

// ObservableState is the low part of a packed line state: what the next
// line needs to know to restore the context stack.
type ObservableState int

const (
	// Default starts the next line from the default context.
	Default ObservableState = 0
	// WillContinue marks a line ending in a line continuation.
	WillContinue ObservableState = 1
	// Continued marks the line following a WillContinue line.
	Continued ObservableState = 2
	// PersistentsStart is the first id of the persistent-state table.
	PersistentsStart ObservableState = 3
)

// Packed layout, least significant bit first:
//
//	bits  0..11  observable state
//	bits 12..30  region depth
//
// Every packed state is a non-negative value that fits in an int32.
const (
	ObservableBits  = 12
	RegionDepthBits = 19

	ObservableMask  = 1<<ObservableBits - 1
	MaxObservable   = ObservableState(ObservableMask)
	MaxRegionDepth  = 1<<RegionDepthBits - 1
	MaxPersistentID = MaxObservable
)

// BlockState is the unpacked form of a line state.
type BlockState struct {
	RegionDepth int
	Observable  ObservableState
}

// Encode packs s. RegionDepth is clamped to [0, MaxRegionDepth] and
// Observable to [0, MaxObservable].
func (s BlockState) Encode() int {
	depth := min(max(s.RegionDepth, 0), MaxRegionDepth)
	obs := min(max(s.Observable, 0), MaxObservable)
	return depth<<ObservableBits | int(obs)
}

// DecodeState unpacks a value produced by Encode.
func DecodeState(v int) BlockState {
	return BlockState{
		RegionDepth: (v >> ObservableBits) & MaxRegionDepth,
		Observable:  ObservableState(v & ObservableMask),
	}
}

// Persistent reports whether the observable part is a persistent-state id.
func (s BlockState) Persistent() bool {
	return s.Observable >= PersistentsStart
}

func (o ObservableState) String() string {
	switch o {
	case Default:
		return "Default"
	case WillContinue:
		return "WillContinue"
	case Continued:
		return "Continued"
	}
	return fmt.Sprintf("Persistent(%d)", int(o))
}

func (s BlockState) String() string {
	return fmt.Sprintf("depth=%d %s", s.RegionDepth, s.Observable)
}
