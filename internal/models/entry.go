package models

// Section tags group entries within a session.
type Section string

const (
	SectionWarmup   Section = "warmup"
	SectionMain     Section = "main"
	SectionCore     Section = "core"
	SectionCooldown Section = "cooldown"
)

// SectionOrder is the fixed display precedence of sections.
var SectionOrder = []Section{SectionWarmup, SectionMain, SectionCore, SectionCooldown}

// Unit is the load or duration unit of a set or target.
type Unit string

const (
	UnitLb   Unit = "lb"
	UnitKg   Unit = "kg"
	UnitSec  Unit = "sec"
	UnitBW   Unit = "bw"
	UnitBand Unit = "band"
)

// Numeric reports whether the unit carries a numeric value.
// Bodyweight and band sets never do.
func (u Unit) Numeric() bool {
	return u == UnitLb || u == UnitKg || u == UnitSec
}

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	return u.Numeric() || u == UnitBW || u == UnitBand
}

// DistanceUnit is the unit of a carried or walked distance. Empty means absent.
type DistanceUnit string

const (
	DistanceYards DistanceUnit = "yds"
	DistanceFeet  DistanceUnit = "ft"
	DistanceM     DistanceUnit = "m"
)

// Valid reports whether d is a known distance unit. The empty unit is not valid.
func (d DistanceUnit) Valid() bool {
	return d == DistanceYards || d == DistanceFeet || d == DistanceM
}

// SetRecord is one logged set.
type SetRecord struct {
	Reps         *int         `json:"reps"`
	Value        *float64     `json:"value"`
	Unit         Unit         `json:"unit"`
	Distance     *float64     `json:"distance"`
	DistanceUnit DistanceUnit `json:"distance_unit,omitempty"`
	Notes        string       `json:"notes"`
	Completed    bool         `json:"completed"`
}

// Clone returns a copy that shares no pointers with s.
func (s SetRecord) Clone() SetRecord {
	s.Reps = clonePtr(s.Reps)
	s.Value = clonePtr(s.Value)
	s.Distance = clonePtr(s.Distance)
	return s
}

// Target is the planned prescription for an exercise.
// Value and Distance are kept as text, the way templates store them.
type Target struct {
	Sets         int          `json:"target_sets"`
	Reps         string       `json:"target_reps"`
	Value        string       `json:"target_value"`
	Unit         Unit         `json:"target_unit"`
	Distance     string       `json:"target_distance"`
	DistanceUnit DistanceUnit `json:"target_distance_unit,omitempty"`
	Notes        string       `json:"program_notes,omitempty"`
}

// ExerciseEntry is one exercise's planned and logged performance within a session.
type ExerciseEntry struct {
	ID              string      `json:"id"`
	ExerciseID      string      `json:"exercise_id"`
	ExerciseName    string      `json:"exercise_name"`
	Section         Section     `json:"section"`
	Order           int         `json:"order"`
	Sets            []SetRecord `json:"sets"`
	RPE             *float64    `json:"rpe"`
	PainFlag        bool        `json:"pain_flag"`
	Notes           string      `json:"notes"`
	Target          Target      `json:"target"`
	LastSessionSets []SetRecord `json:"last_session_sets"`
	Dirty           bool        `json:"dirty"`
}

// Clone returns a deep copy of e.
func (e ExerciseEntry) Clone() ExerciseEntry {
	e.Sets = CloneSets(e.Sets)
	e.LastSessionSets = CloneSets(e.LastSessionSets)
	e.RPE = clonePtr(e.RPE)
	return e
}

// EntryUpdate is the persisted, user-editable part of an entry.
type EntryUpdate struct {
	ID       string      `json:"id"`
	Sets     []SetRecord `json:"sets"`
	RPE      *float64    `json:"rpe"`
	PainFlag bool        `json:"pain_flag"`
	Notes    string      `json:"notes"`
}

// Update extracts the persisted fields of e.
func (e ExerciseEntry) Update() EntryUpdate {
	sets := CloneSets(e.Sets)
	if sets == nil {
		sets = []SetRecord{}
	}
	return EntryUpdate{
		ID:       e.ID,
		Sets:     sets,
		RPE:      clonePtr(e.RPE),
		PainFlag: e.PainFlag,
		Notes:    e.Notes,
	}
}

// CloneSets deep-copies a set list. A nil list stays nil.
func CloneSets(sets []SetRecord) []SetRecord {
	if sets == nil {
		return nil
	}
	out := make([]SetRecord, len(sets))
	for i, s := range sets {
		out[i] = s.Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
