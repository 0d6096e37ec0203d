package measure

import "sync/atomic"

// System is a unit system preference.
type System int32

const (
	Metric System = iota
	Imperial
)

// String returns the system name.
func (s System) String() string {
	if s == Imperial {
		return "imperial"
	}
	return "metric"
}

// ParseSystem parses "metric" or "imperial".
func ParseSystem(s string) (System, bool) {
	switch s {
	case "metric", "":
		return Metric, true
	case "imperial":
		return Imperial, true
	default:
		return Metric, false
	}
}

// StyleProvider supplies the display preferences for quantities.
type StyleProvider interface {
	System() System
}

// Style is a StyleProvider whose system can be switched at runtime, for
// example by a configuration reload.
type Style struct {
	system atomic.Int32
}

// NewStyle returns a style using system s.
func NewStyle(s System) *Style {
	st := &Style{}
	st.system.Store(int32(s))
	return st
}

// System returns the current unit system.
func (s *Style) System() System {
	return System(s.system.Load())
}

// SetSystem switches the unit system.
func (s *Style) SetSystem(sys System) {
	s.system.Store(int32(sys))
}

// UnitInfo describes the units a quantity property is shown in.
type UnitInfo struct {
	Metric         Unit
	Imperial       Unit
	FractionDigits int
}

// Preferred returns the display unit for sys.
func (u UnitInfo) Preferred(sys System) Unit {
	if sys == Imperial {
		return u.Imperial
	}
	return u.Metric
}

// Common unit infos.
var (
	AltitudeInfo = UnitInfo{Metric: Meter, Imperial: Foot, FractionDigits: 1}
	DistanceInfo = UnitInfo{Metric: Kilometer, Imperial: Mile, FractionDigits: 2}
	SpeedInfo    = UnitInfo{Metric: MeterPerSecond, Imperial: MilePerHour, FractionDigits: 1}
	BatteryInfo  = UnitInfo{Metric: Percent, Imperial: Percent, FractionDigits: 0}
)
