package session

import "github.com/claude/replog/internal/models"

// Position is the 1-based guided-mode location.
type Position struct {
	Exercise       int `json:"exercise"`
	TotalExercises int `json:"total_exercises"`
	Set            int `json:"set"`
	TotalSets      int `json:"total_sets"`
}

// Navigator steps through a session's entries one set at a time, in
// section order. It never fails: moves past either end are ignored.
type Navigator struct {
	s        *State
	active   bool
	exercise int
	set      int
}

// Active reports whether guided mode is on.
func (n *Navigator) Active() bool { return n.active }

// Indices returns the 0-based cursor.
func (n *Navigator) Indices() (exercise, set int) { return n.exercise, n.set }

// Enable turns guided mode on at the first set of the first exercise.
// Enabling an active navigator keeps its position.
func (n *Navigator) Enable() {
	if n.active {
		return
	}
	n.active = true
	n.exercise, n.set = 0, 0
}

// Disable turns guided mode off and resets the cursor.
func (n *Navigator) Disable() {
	n.reset()
}

func (n *Navigator) reset() {
	n.active = false
	n.exercise, n.set = 0, 0
}

// Advance moves to the next set, then to the next exercise. At the last set
// of the last exercise it stays put.
func (n *Navigator) Advance() {
	entries, ok := n.entries()
	if !ok {
		return
	}
	if n.set < maxSets(entries[n.exercise])-1 {
		n.set++
		return
	}
	if n.exercise < len(entries)-1 {
		n.exercise++
		n.set = 0
	}
}

// Previous moves back one set, crossing to the last set of the previous
// exercise. At (0, 0) it stays put.
func (n *Navigator) Previous() {
	entries, ok := n.entries()
	if !ok {
		return
	}
	if n.set > 0 {
		n.set--
		return
	}
	if n.exercise > 0 {
		n.exercise--
		n.set = max(maxSets(entries[n.exercise])-1, 0)
	}
}

// Next jumps to the first set of the next exercise.
func (n *Navigator) Next() {
	entries, ok := n.entries()
	if !ok {
		return
	}
	if n.exercise < len(entries)-1 {
		n.exercise++
		n.set = 0
	}
}

// Skip is Next under the name the skip affordance uses.
func (n *Navigator) Skip() { n.Next() }

// Position reports the cursor 1-based. It is all zeros when guided mode is
// off or the session has no entries.
func (n *Navigator) Position() Position {
	entries, ok := n.entries()
	if !ok {
		return Position{}
	}
	return Position{
		Exercise:       n.exercise + 1,
		TotalExercises: len(entries),
		Set:            n.set + 1,
		TotalSets:      maxSets(entries[n.exercise]),
	}
}

// Current returns a copy of the entry under the cursor.
func (n *Navigator) Current() (models.ExerciseEntry, bool) {
	entries, ok := n.entries()
	if !ok {
		return models.ExerciseEntry{}, false
	}
	return entries[n.exercise].Clone(), true
}

// entries returns the guided order with the cursor clamped into range, or
// false when there is nothing to navigate.
func (n *Navigator) entries() ([]*models.ExerciseEntry, bool) {
	if !n.active {
		return nil, false
	}
	entries := n.s.flat()
	if len(entries) == 0 {
		n.exercise, n.set = 0, 0
		return nil, false
	}
	if n.exercise >= len(entries) {
		n.exercise = len(entries) - 1
	}
	if last := maxSets(entries[n.exercise]) - 1; n.set > last {
		n.set = last
	}
	return entries, true
}

// maxSets is the planned set count, else the logged count, else 1.
func maxSets(e *models.ExerciseEntry) int {
	if e.Target.Sets > 0 {
		return e.Target.Sets
	}
	if len(e.Sets) > 0 {
		return len(e.Sets)
	}
	return 1
}
