// Package format renders planned targets and logged sets as short display
// strings. All functions are pure.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/claude/replog/internal/models"
)

const (
	// NoData is shown for a set with nothing logged.
	NoData = "—"
	// NoSets is shown for an empty set list.
	NoSets = "No sets"
)

// Target formats a planned prescription, e.g. "3x12-15@ 125 lb".
//
// Tokens are concatenated without a separator, so the reps and load segments
// run together. Callers and tests rely on that exact output.
func Target(t models.Target) string {
	var parts []string
	if t.Sets > 0 {
		parts = append(parts, fmt.Sprintf("%dx", t.Sets))
	}
	if t.Reps != "" {
		parts = append(parts, t.Reps)
	}
	switch {
	case t.Unit.Numeric() && t.Value != "":
		parts = append(parts, fmt.Sprintf("@ %s %s", t.Value, t.Unit))
	case t.Unit == models.UnitBW:
		parts = append(parts, "BW")
	case t.Unit == models.UnitBand:
		parts = append(parts, "Band")
	}
	if t.Distance != "" && t.DistanceUnit != "" {
		parts = append(parts, fmt.Sprintf("%s %s", t.Distance, t.DistanceUnit))
	}
	return strings.Join(parts, "")
}

// SetData formats one logged set, e.g. "12 reps @ 125 lb".
func SetData(s models.SetRecord) string {
	var parts []string
	if s.Reps != nil && *s.Reps != 0 {
		parts = append(parts, fmt.Sprintf("%d reps", *s.Reps))
	}
	switch {
	case s.Unit == models.UnitBW:
		parts = append(parts, "BW")
	case s.Unit == models.UnitBand:
		parts = append(parts, "Band")
	case s.Value != nil:
		parts = append(parts, fmt.Sprintf("%s %s", number(*s.Value), s.Unit))
	}
	if s.Distance != nil && s.DistanceUnit != "" {
		parts = append(parts, fmt.Sprintf("%s %s", number(*s.Distance), s.DistanceUnit))
	}
	if len(parts) == 0 {
		return NoData
	}
	return strings.Join(parts, " @ ")
}

// Sets formats a set list, e.g. "12 reps @ 125 lb / 10 reps @ 135 lb".
func Sets(sets []models.SetRecord) string {
	if len(sets) == 0 {
		return NoSets
	}
	out := make([]string, len(sets))
	for i, s := range sets {
		out[i] = SetData(s)
	}
	return strings.Join(out, " / ")
}

// number prints the shortest decimal form: 125, 102.5.
func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
