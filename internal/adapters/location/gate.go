package location

import "sync/atomic"

// Gate is a runtime-togglable location permission.
type Gate struct {
	granted atomic.Bool
}

// NewGate creates a Gate with the given initial permission.
func NewGate(granted bool) *Gate {
	g := &Gate{}
	g.granted.Store(granted)
	return g
}

// LocationGranted implements ports.PermissionGate.
func (g *Gate) LocationGranted() bool {
	return g.granted.Load()
}

// SetLocationGranted changes the permission. Revoking it does not end
// subscriptions that are already open.
func (g *Gate) SetLocationGranted(granted bool) {
	g.granted.Store(granted)
}
