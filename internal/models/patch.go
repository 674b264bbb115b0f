package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SetField names one editable field of a SetRecord.
type SetField int

const (
	FieldReps SetField = iota + 1
	FieldValue
	FieldUnit
	FieldDistance
	FieldDistanceUnit
	FieldNotes
	FieldCompleted
)

func (f SetField) String() string {
	switch f {
	case FieldReps:
		return "reps"
	case FieldValue:
		return "value"
	case FieldUnit:
		return "unit"
	case FieldDistance:
		return "distance"
	case FieldDistanceUnit:
		return "distance_unit"
	case FieldNotes:
		return "notes"
	case FieldCompleted:
		return "completed"
	}
	return "unknown"
}

// SetPatch replaces a single field of a set. Build one with the Patch*
// constructors; the zero value applies nothing.
type SetPatch struct {
	Field SetField

	reps     *int
	num      *float64
	unit     Unit
	distUnit DistanceUnit
	text     string
	flag     bool
}

func PatchReps(n *int) SetPatch { return SetPatch{Field: FieldReps, reps: clonePtr(n)} }

func PatchValue(v *float64) SetPatch { return SetPatch{Field: FieldValue, num: clonePtr(v)} }

func PatchUnit(u Unit) SetPatch { return SetPatch{Field: FieldUnit, unit: u} }

func PatchDistance(d *float64) SetPatch { return SetPatch{Field: FieldDistance, num: clonePtr(d)} }

// PatchDistanceUnit sets the distance unit; the empty unit clears it.
func PatchDistanceUnit(u DistanceUnit) SetPatch {
	return SetPatch{Field: FieldDistanceUnit, distUnit: u}
}

func PatchNotes(s string) SetPatch { return SetPatch{Field: FieldNotes, text: s} }

func PatchCompleted(b bool) SetPatch { return SetPatch{Field: FieldCompleted, flag: b} }

// Apply returns s with the patched field replaced. ok is false when the patch
// is empty or carries an invalid unit, in which case s is returned unchanged.
//
// Switching to a non-numeric unit drops the value, and a value patched onto a
// bw or band set is discarded.
func (p SetPatch) Apply(s SetRecord) (out SetRecord, ok bool) {
	out = s.Clone()
	switch p.Field {
	case FieldReps:
		out.Reps = clonePtr(p.reps)
	case FieldValue:
		if out.Unit.Numeric() {
			out.Value = clonePtr(p.num)
		} else {
			out.Value = nil
		}
	case FieldUnit:
		if !p.unit.Valid() {
			return s, false
		}
		out.Unit = p.unit
		if !p.unit.Numeric() {
			out.Value = nil
		}
	case FieldDistance:
		out.Distance = clonePtr(p.num)
	case FieldDistanceUnit:
		if p.distUnit != "" && !p.distUnit.Valid() {
			return s, false
		}
		out.DistanceUnit = p.distUnit
	case FieldNotes:
		out.Notes = p.text
	case FieldCompleted:
		out.Completed = p.flag
	default:
		return s, false
	}
	return out, true
}

// ParseSetPatch builds a patch from a field name and its textual value, as
// typed at a prompt. An empty value clears optional numeric fields.
func ParseSetPatch(field, raw string) (SetPatch, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "reps":
		if raw == "" {
			return PatchReps(nil), nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return SetPatch{}, fmt.Errorf("invalid reps %q", raw)
		}
		return PatchReps(&n), nil
	case "value", "val", "weight":
		v, err := parseOptionalFloat(raw)
		if err != nil {
			return SetPatch{}, fmt.Errorf("invalid value %q", raw)
		}
		return PatchValue(v), nil
	case "unit":
		u, ok := ParseUnit(raw)
		if !ok {
			return SetPatch{}, fmt.Errorf("unknown unit %q", raw)
		}
		return PatchUnit(u), nil
	case "distance", "dist":
		v, err := parseOptionalFloat(raw)
		if err != nil {
			return SetPatch{}, fmt.Errorf("invalid distance %q", raw)
		}
		return PatchDistance(v), nil
	case "distance_unit", "dunit":
		if raw == "" {
			return PatchDistanceUnit(""), nil
		}
		u, ok := ParseDistanceUnit(raw)
		if !ok {
			return SetPatch{}, fmt.Errorf("unknown distance unit %q", raw)
		}
		return PatchDistanceUnit(u), nil
	case "notes", "note":
		return PatchNotes(raw), nil
	case "completed", "done":
		if raw == "" {
			return PatchCompleted(true), nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return SetPatch{}, fmt.Errorf("invalid completed flag %q", raw)
		}
		return PatchCompleted(b), nil
	}
	return SetPatch{}, fmt.Errorf("unknown set field %q", field)
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
