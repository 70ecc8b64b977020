package world

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGraph means generation left no usable locations or connections.
	ErrEmptyGraph = errors.New("generated graph is empty")
	// ErrSelfConnection means a connection was requested between a location and itself.
	ErrSelfConnection = errors.New("location cannot connect to itself")
	// ErrNilLocationType means a type change was requested with no target type.
	ErrNilLocationType = errors.New("location type is nil")
	// ErrNotAuthoritative means a follower attempted a local mutation.
	ErrNotAuthoritative = errors.New("map is a follower and cannot mutate locally")
)

// RestoreWarning describes a saved element that could not be applied.
type RestoreWarning struct {
	Element string // e.g. "location 12", "connection 4"
	Message string
}

func (w RestoreWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Element, w.Message)
}
