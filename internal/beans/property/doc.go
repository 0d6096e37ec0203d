// Package property implements observable, thread-safe properties.
//
// A Property is created from Metadata that may place it in a consistency
// group, tie it to a synchronization context and restrict access with a
// predicate. Properties can follow another property through Bind, and a
// Path derives a read-only property from a chain of properties whose links
// change at runtime:
//
//	platform, err := property.Select(
//		property.From[*drone.Drone](scope.CurrentDrone()),
//		func(d *drone.Drone) property.ReadOnly[drone.Platform] { return d.Platform() },
//	).Build(property.WithFallback(drone.UnknownPlatform))
//
// Listeners are notified after the write left its critical section, in the
// order the writes happened, with the listener list captured when delivery
// of a change starts.
package property
