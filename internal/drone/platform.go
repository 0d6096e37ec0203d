package drone

import (
	"github.com/dshills/missioncontrol/internal/measure"
)

// AirplaneType identifies a hardware platform family.
type AirplaneType string

// Known airplane types.
const (
	Falcon8     AirplaneType = "FALCON8"
	Falcon8Plus AirplaneType = "FALCON8PLUS"
	SiriusBasic AirplaneType = "SIRIUS_BASIC"
	SiriusPro   AirplaneType = "SIRIUS_PRO"
)

// PlatformDescription describes the hardware of a drone.
type PlatformDescription struct {
	ID           string
	Name         string
	AirplaneType AirplaneType
	FixedWing    bool
	MaxSpeed     measure.Quantity
	MaxAltitude  measure.Quantity
}

// Platforms lists the built-in platform descriptions by id.
var Platforms = map[string]*PlatformDescription{
	"falcon8": {
		ID:           "falcon8",
		Name:         "Falcon 8",
		AirplaneType: Falcon8,
		MaxSpeed:     measure.Of(16, measure.MeterPerSecond),
		MaxAltitude:  measure.Of(500, measure.Meter),
	},
	"falcon8plus": {
		ID:           "falcon8plus",
		Name:         "Falcon 8+",
		AirplaneType: Falcon8Plus,
		MaxSpeed:     measure.Of(16, measure.MeterPerSecond),
		MaxAltitude:  measure.Of(500, measure.Meter),
	},
	"sirius-basic": {
		ID:           "sirius-basic",
		Name:         "Sirius Basic",
		AirplaneType: SiriusBasic,
		FixedWing:    true,
		MaxSpeed:     measure.Of(18, measure.MeterPerSecond),
		MaxAltitude:  measure.Of(750, measure.Meter),
	},
	"sirius-pro": {
		ID:           "sirius-pro",
		Name:         "Sirius Pro",
		AirplaneType: SiriusPro,
		FixedWing:    true,
		MaxSpeed:     measure.Of(18, measure.MeterPerSecond),
		MaxAltitude:  measure.Of(750, measure.Meter),
	},
}

// PlatformIDs returns the ids of Platforms in a stable order.
func PlatformIDs() []string {
	return []string{"falcon8", "falcon8plus", "sirius-basic", "sirius-pro"}
}
