// Package drone models simulated drones and the flight scope that tracks
// which drone the operator is working with.
package drone

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/missioncontrol/internal/beans/access"
	"github.com/dshills/missioncontrol/internal/beans/property"
	"github.com/dshills/missioncontrol/internal/concurrent"
	"github.com/dshills/missioncontrol/internal/measure"
)

// FlightMode is the autopilot mode reported by a drone.
type FlightMode string

// Flight modes.
const (
	ModeOnGround FlightMode = "on-ground"
	ModeTakeoff  FlightMode = "takeoff"
	ModeMission  FlightMode = "mission"
	ModeHold     FlightMode = "hold"
	ModeLanding  FlightMode = "landing"
)

// Telemetry is one consistent sample of a drone's state.
type Telemetry struct {
	Altitude measure.Quantity
	Speed    measure.Quantity
	Battery  measure.Quantity
	Mode     FlightMode
}

// Per-kind metadata defaults. Drones merge their per-instance fields onto
// these.
var (
	altitudeDefaults = measure.NewMetadataBuilder().
				Name("altitude").
				UnitInfo(measure.AltitudeInfo).
				InitialValue(measure.Of(0, measure.Meter)).
				MustCreate()
	speedDefaults = measure.NewMetadataBuilder().
			Name("speed").
			UnitInfo(measure.SpeedInfo).
			InitialValue(measure.Of(0, measure.MeterPerSecond)).
			MustCreate()
	batteryDefaults = measure.NewMetadataBuilder().
			Name("battery").
			UnitInfo(measure.BatteryInfo).
			InitialValue(measure.Of(100, measure.Percent)).
			MustCreate()
	modeDefaults = property.NewBuilder[FlightMode]().
			Name("flightMode").
			InitialValue(ModeOnGround).
			MustCreate()
)

// Drone is a simulated drone. Its telemetry properties share one
// consistency group so a reader can take a snapshot that never mixes two
// samples.
type Drone struct {
	serial    string
	telemetry *access.Group

	platform *property.Property[*PlatformDescription]
	altitude *property.Property[measure.Quantity]
	speed    *property.Property[measure.Quantity]
	battery  *property.Property[measure.Quantity]
	mode     *property.Property[FlightMode]
}

type options struct {
	serial   string
	sc       concurrent.SynchronizationContext
	style    measure.StyleProvider
	failFast bool
}

// Option configures a Drone.
type Option func(*options)

// WithSerial sets the serial number. Without it a random one is assigned.
func WithSerial(serial string) Option {
	return func(o *options) {
		o.serial = serial
	}
}

// WithSynchronizationContext ties the platform description to sc, the way UI
// state is tied to the UI goroutine.
func WithSynchronizationContext(sc concurrent.SynchronizationContext) Option {
	return func(o *options) {
		o.sc = sc
	}
}

// WithStyle sets the display style of the telemetry quantities.
func WithStyle(sp measure.StyleProvider) Option {
	return func(o *options) {
		o.style = sp
	}
}

// WithFailFast makes contended telemetry access fail instead of waiting.
func WithFailFast() Option {
	return func(o *options) {
		o.failFast = true
	}
}

// New creates a drone with the given platform.
func New(platform *PlatformDescription, opts ...Option) (*Drone, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.serial == "" {
		o.serial = uuid.NewString()
	}

	var groupOpts []access.Option
	if o.failFast {
		groupOpts = append(groupOpts, access.WithFailFast())
	}
	d := &Drone{
		serial:    o.serial,
		telemetry: access.NewGroup("telemetry-"+o.serial, groupOpts...),
	}

	platformMD := property.NewBuilder[*PlatformDescription]().
		Name("platformDescription").
		InitialValue(platform)
	if o.sc != nil {
		platformMD.SynchronizationContext(o.sc)
	}
	md, err := platformMD.Create()
	if err != nil {
		return nil, err
	}
	if d.platform, err = property.New(d, md); err != nil {
		return nil, err
	}

	quantity := func(defaults *property.Metadata[measure.Quantity]) (*property.Property[measure.Quantity], error) {
		b := measure.NewMetadataBuilder().ConsistencyGroup(d.telemetry)
		if o.style != nil {
			b.StyleProvider(o.style)
		}
		override, err := b.Create()
		if err != nil {
			return nil, err
		}
		return property.New(d, defaults.Merge(override))
	}
	if d.altitude, err = quantity(altitudeDefaults); err != nil {
		return nil, err
	}
	if d.speed, err = quantity(speedDefaults); err != nil {
		return nil, err
	}
	if d.battery, err = quantity(batteryDefaults); err != nil {
		return nil, err
	}

	modeMD := modeDefaults.Merge(property.NewBuilder[FlightMode]().ConsistencyGroup(d.telemetry).MustCreate())
	if d.mode, err = property.New(d, modeMD); err != nil {
		return nil, err
	}

	return d, nil
}

// Serial returns the drone serial number.
func (d *Drone) Serial() string { return d.serial }

// String implements fmt.Stringer.
func (d *Drone) String() string {
	p := d.platform.GetUncritical()
	if p == nil {
		return d.serial
	}
	return fmt.Sprintf("%s (%s)", d.serial, p.Name)
}

// Platform returns the platform description property.
func (d *Drone) Platform() property.ReadOnly[*PlatformDescription] { return d.platform }

// SetPlatform replaces the platform description, as happens when the drone
// reports its hardware after connecting.
func (d *Drone) SetPlatform(ctx context.Context, p *PlatformDescription) error {
	return d.platform.Set(ctx, p)
}

// Altitude returns the altitude property.
func (d *Drone) Altitude() property.ReadOnly[measure.Quantity] { return d.altitude }

// Speed returns the ground speed property.
func (d *Drone) Speed() property.ReadOnly[measure.Quantity] { return d.speed }

// Battery returns the battery level property.
func (d *Drone) Battery() property.ReadOnly[measure.Quantity] { return d.battery }

// FlightMode returns the flight mode property.
func (d *Drone) FlightMode() property.ReadOnly[FlightMode] { return d.mode }

// TelemetryGroup returns the consistency group of the telemetry properties.
func (d *Drone) TelemetryGroup() *access.Group { return d.telemetry }

// UpdateTelemetry writes a sample. Readers holding the telemetry group see
// either all of it or none of it.
func (d *Drone) UpdateTelemetry(ctx context.Context, t Telemetry) error {
	return d.telemetry.Do(ctx, func(ctx context.Context) error {
		if err := d.altitude.Set(ctx, t.Altitude); err != nil {
			return err
		}
		if err := d.speed.Set(ctx, t.Speed); err != nil {
			return err
		}
		if err := d.battery.Set(ctx, t.Battery); err != nil {
			return err
		}
		return d.mode.Set(ctx, t.Mode)
	})
}

// Snapshot reads all telemetry properties under the group lock.
func (d *Drone) Snapshot(ctx context.Context) (Telemetry, error) {
	var t Telemetry
	err := d.telemetry.Do(ctx, func(ctx context.Context) error {
		var err error
		if t.Altitude, err = d.altitude.Get(ctx); err != nil {
			return err
		}
		if t.Speed, err = d.speed.Get(ctx); err != nil {
			return err
		}
		if t.Battery, err = d.battery.Get(ctx); err != nil {
			return err
		}
		t.Mode, err = d.mode.Get(ctx)
		return err
	})
	return t, err
}

// Dispose releases the drone's properties.
func (d *Drone) Dispose() {
	d.platform.Dispose()
	d.altitude.Dispose()
	d.speed.Dispose()
	d.battery.Dispose()
	d.mode.Dispose()
}
