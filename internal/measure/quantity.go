// Package measure provides quantities with units and the property metadata
// extension that describes how quantity properties are displayed.
package measure

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrIncompatibleUnit is returned when converting between dimensions.
var ErrIncompatibleUnit = errors.New("incompatible unit")

// Dimension is the physical dimension of a unit.
type Dimension int

const (
	Dimensionless Dimension = iota
	Length
	Speed
	Angle
	Percentage
)

// String returns the dimension name.
func (d Dimension) String() string {
	switch d {
	case Dimensionless:
		return "dimensionless"
	case Length:
		return "length"
	case Speed:
		return "speed"
	case Angle:
		return "angle"
	case Percentage:
		return "percentage"
	default:
		return "unknown"
	}
}

// Unit is a unit of measure. factor converts a value in this unit to the
// base unit of its dimension.
type Unit struct {
	Symbol    string
	Dimension Dimension
	factor    float64
}

// Units.
var (
	Unitless = Unit{Symbol: "", Dimension: Dimensionless, factor: 1}

	Meter     = Unit{Symbol: "m", Dimension: Length, factor: 1}
	Kilometer = Unit{Symbol: "km", Dimension: Length, factor: 1000}
	Foot      = Unit{Symbol: "ft", Dimension: Length, factor: 0.3048}
	Mile      = Unit{Symbol: "mi", Dimension: Length, factor: 1609.344}

	MeterPerSecond   = Unit{Symbol: "m/s", Dimension: Speed, factor: 1}
	KilometerPerHour = Unit{Symbol: "km/h", Dimension: Speed, factor: 1000.0 / 3600.0}
	MilePerHour      = Unit{Symbol: "mph", Dimension: Speed, factor: 1609.344 / 3600.0}
	Knot             = Unit{Symbol: "kn", Dimension: Speed, factor: 1852.0 / 3600.0}

	Degree = Unit{Symbol: "°", Dimension: Angle, factor: 1}

	Percent = Unit{Symbol: "%", Dimension: Percentage, factor: 1}
)

// Quantity is a value together with its unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

// Of returns a quantity of v in unit u.
func Of(v float64, u Unit) Quantity {
	return Quantity{Value: v, Unit: u}
}

// Convert returns q expressed in unit to.
func (q Quantity) Convert(to Unit) (Quantity, error) {
	if q.Unit.Dimension != to.Dimension {
		return Quantity{}, fmt.Errorf("%w: %s to %s", ErrIncompatibleUnit, q.Unit.Dimension, to.Dimension)
	}
	if q.Unit == to {
		return q, nil
	}
	return Quantity{Value: q.Value * q.Unit.factor / to.factor, Unit: to}, nil
}

// Format renders q with at most digits fraction digits.
func (q Quantity) Format(digits int) string {
	s := strconv.FormatFloat(q.Value, 'f', digits, 64)
	if q.Unit.Symbol == "" {
		return s
	}
	if q.Unit.Dimension == Angle || q.Unit.Dimension == Percentage {
		return s + q.Unit.Symbol
	}
	return s + " " + q.Unit.Symbol
}

// String implements fmt.Stringer.
func (q Quantity) String() string {
	return q.Format(2)
}
