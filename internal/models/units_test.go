package models

import "testing"

// TestParseUnit_Canonical verifies that canonical unit names pass through
// unchanged, confirming the alias map covers every unit.
func TestParseUnit_Canonical(t *testing.T) {
	for _, u := range []Unit{UnitLb, UnitKg, UnitSec, UnitBW, UnitBand} {
		got, ok := ParseUnit(string(u))
		if !ok {
			t.Errorf("ParseUnit(%q): expected ok=true", u)
		}
		if got != u {
			t.Errorf("ParseUnit(%q) = %q, want %q", u, got, u)
		}
	}
}

// TestParseUnit_Aliases verifies that common spellings typed at the prompt or
// found in older templates normalize to the canonical unit, in any casing.
func TestParseUnit_Aliases(t *testing.T) {
	cases := []struct {
		input string
		want  Unit
	}{
		{"lbs", UnitLb},
		{"Pounds", UnitLb},
		{"KG", UnitKg},
		{"kilograms", UnitKg},
		{"seconds", UnitSec},
		{"  s  ", UnitSec},
		{"Bodyweight", UnitBW},
		{"body weight", UnitBW},
		{"bands", UnitBand},
	}
	for _, tc := range cases {
		got, ok := ParseUnit(tc.input)
		if !ok {
			t.Errorf("ParseUnit(%q): expected ok=true", tc.input)
		}
		if got != tc.want {
			t.Errorf("ParseUnit(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// TestParseUnit_Unknown verifies that unrecognized units report ok=false so
// callers can reject the input.
func TestParseUnit_Unknown(t *testing.T) {
	if _, ok := ParseUnit("stone"); ok {
		t.Error("expected ok=false for unknown unit")
	}
}

// TestParseDistanceUnit verifies distance unit aliases.
func TestParseDistanceUnit(t *testing.T) {
	cases := []struct {
		input string
		want  DistanceUnit
		ok    bool
	}{
		{"yds", DistanceYards, true},
		{"Yards", DistanceYards, true},
		{"feet", DistanceFeet, true},
		{"m", DistanceM, true},
		{"metres", DistanceM, true},
		{"miles", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDistanceUnit(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseDistanceUnit(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

// TestParseSection verifies known tags map through and unknown or empty tags
// fall back to main.
func TestParseSection(t *testing.T) {
	cases := []struct {
		input string
		want  Section
	}{
		{"warmup", SectionWarmup},
		{"Core", SectionCore},
		{" cooldown ", SectionCooldown},
		{"", SectionMain},
		{"finisher", SectionMain},
	}
	for _, tc := range cases {
		if got := ParseSection(tc.input); got != tc.want {
			t.Errorf("ParseSection(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// TestParseTargetWeight verifies splitting of free-form template weights into
// value and unit, including equipment suffixes and bodyweight/band markers.
func TestParseTargetWeight(t *testing.T) {
	cases := []struct {
		input     string
		wantValue string
		wantUnit  Unit
	}{
		{"125 lb", "125", UnitLb},
		{"20 lb KB", "20", UnitLb},
		{"102.5kg", "102.5", UnitKg},
		{"75", "75", UnitLb},
		{"bw", "", UnitBW},
		{"BW", "", UnitBW},
		{"band", "", UnitBand},
		{"", "", UnitLb},
		{"light", "light", UnitLb},
	}
	for _, tc := range cases {
		value, unit := ParseTargetWeight(tc.input)
		if value != tc.wantValue || unit != tc.wantUnit {
			t.Errorf("ParseTargetWeight(%q) = (%q, %q), want (%q, %q)",
				tc.input, value, unit, tc.wantValue, tc.wantUnit)
		}
	}
}

// TestUnitNumeric verifies which units may carry a numeric value.
func TestUnitNumeric(t *testing.T) {
	numeric := map[Unit]bool{UnitLb: true, UnitKg: true, UnitSec: true, UnitBW: false, UnitBand: false}
	for u, want := range numeric {
		if got := u.Numeric(); got != want {
			t.Errorf("%q.Numeric() = %v, want %v", u, got, want)
		}
	}
	if Unit("").Valid() {
		t.Error("empty unit should not be valid")
	}
}
