package models

import (
	"regexp"
	"strings"
)

// unitAliases maps lowercased unit spellings found in templates and typed
// input to their canonical unit.
var unitAliases = map[string]Unit{
	"lb":     UnitLb,
	"lbs":    UnitLb,
	"pound":  UnitLb,
	"pounds": UnitLb,
	"#":      UnitLb,

	"kg":        UnitKg,
	"kgs":       UnitKg,
	"kilo":      UnitKg,
	"kilos":     UnitKg,
	"kilogram":  UnitKg,
	"kilograms": UnitKg,

	"sec":     UnitSec,
	"secs":    UnitSec,
	"s":       UnitSec,
	"second":  UnitSec,
	"seconds": UnitSec,

	"bw":          UnitBW,
	"bodyweight":  UnitBW,
	"body weight": UnitBW,

	"band":  UnitBand,
	"bands": UnitBand,
}

var distanceAliases = map[string]DistanceUnit{
	"yds":    DistanceYards,
	"yd":     DistanceYards,
	"yard":   DistanceYards,
	"yards":  DistanceYards,
	"ft":     DistanceFeet,
	"foot":   DistanceFeet,
	"feet":   DistanceFeet,
	"m":      DistanceM,
	"meter":  DistanceM,
	"meters": DistanceM,
	"metre":  DistanceM,
	"metres": DistanceM,
}

// ParseUnit maps a possibly aliased unit name to its canonical unit.
// Returns the unit and true if recognized.
func ParseUnit(raw string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]
	return u, ok
}

// ParseDistanceUnit maps a possibly aliased distance unit to its canonical form.
func ParseDistanceUnit(raw string) (DistanceUnit, bool) {
	d, ok := distanceAliases[strings.ToLower(strings.TrimSpace(raw))]
	return d, ok
}

// ParseSection returns the section for a tag. Empty or unknown tags fall back
// to main, which is where untagged entries are displayed.
func ParseSection(raw string) Section {
	s := Section(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range SectionOrder {
		if s == known {
			return s
		}
	}
	return SectionMain
}

// targetWeightRe matches a leading number with an optional lb/kg suffix:
// "125 lb", "20 lb KB", "102.5kg", "75".
var targetWeightRe = regexp.MustCompile(`^([\d.]+)\s*(lb|kg)?`)

// ParseTargetWeight splits a free-form template weight into value and unit.
//
//	"125 lb"   -> ("125", lb)
//	"20 lb KB" -> ("20", lb)
//	"bw"       -> ("", bw)
//	""         -> ("", lb)
//
// Anything else is kept verbatim as the value with unit lb.
func ParseTargetWeight(raw string) (string, Unit) {
	if raw == "" {
		return "", UnitLb
	}
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if u, ok := unitAliases[trimmed]; ok && !u.Numeric() {
		return "", u
	}
	if m := targetWeightRe.FindStringSubmatch(trimmed); m != nil {
		unit := UnitLb
		if m[2] != "" {
			unit = Unit(m[2])
		}
		return m[1], unit
	}
	return raw, UnitLb
}
