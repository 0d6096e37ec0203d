package drone

import (
	"context"
	"slices"
	"sync"

	"github.com/dshills/missioncontrol/internal/beans/property"
	"github.com/dshills/missioncontrol/internal/concurrent"
)

// FlightScope holds the drones known to the flight view and the one
// currently selected.
type FlightScope struct {
	current *property.Property[*Drone]

	mu     sync.RWMutex
	drones []*Drone
}

// NewFlightScope creates an empty scope. When sc is non-nil, changes of the
// current drone are executed on it.
func NewFlightScope(sc concurrent.SynchronizationContext) (*FlightScope, error) {
	b := property.NewBuilder[*Drone]().Name("currentDrone")
	if sc != nil {
		b.SynchronizationContext(sc)
	}
	md, err := b.Create()
	if err != nil {
		return nil, err
	}

	s := &FlightScope{}
	if s.current, err = property.New(s, md); err != nil {
		return nil, err
	}
	return s, nil
}

// CurrentDrone returns the selected drone property. Its value is nil while
// no drone is selected.
func (s *FlightScope) CurrentDrone() property.ReadOnly[*Drone] { return s.current }

// Add registers d with the scope.
func (s *FlightScope) Add(d *Drone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.drones, d) {
		s.drones = append(s.drones, d)
	}
}

// Drones returns the registered drones in registration order.
func (s *FlightScope) Drones() []*Drone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.drones)
}

// Select makes d the current drone. A nil d clears the selection.
func (s *FlightScope) Select(ctx context.Context, d *Drone) error {
	if d != nil {
		s.Add(d)
	}
	return s.current.Set(ctx, d)
}

// Close clears the selection and releases the scope's property.
func (s *FlightScope) Close() {
	s.current.Dispose()
}
