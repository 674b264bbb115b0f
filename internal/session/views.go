package session

import "github.com/claude/replog/internal/models"

// SectionGroup is one non-empty section with its entries in insertion order.
type SectionGroup struct {
	Name    models.Section         `json:"name"`
	Entries []models.ExerciseEntry `json:"entries"`
}

// viewCache memoizes the groupings for one State version.
type viewCache struct {
	version   uint64
	valid     bool
	bySection map[models.Section][]*models.ExerciseEntry
	flat      []*models.ExerciseEntry
}

func (s *State) refresh() {
	if s.views.valid && s.views.version == s.version {
		return
	}
	by := make(map[models.Section][]*models.ExerciseEntry)
	for _, e := range s.entries {
		by[e.Section] = append(by[e.Section], e)
	}
	flat := make([]*models.ExerciseEntry, 0, len(s.entries))
	for _, sec := range models.SectionOrder {
		flat = append(flat, by[sec]...)
	}
	s.views = viewCache{version: s.version, valid: true, bySection: by, flat: flat}
}

// flat returns live entries in guided order: section precedence, then
// insertion order within a section.
func (s *State) flat() []*models.ExerciseEntry {
	s.refresh()
	return s.views.flat
}

// Entries returns copies of all entries in insertion order.
func (s *State) Entries() []models.ExerciseEntry {
	return cloneAll(s.entries)
}

// Entry returns a copy of one entry.
func (s *State) Entry(id string) (models.ExerciseEntry, bool) {
	e := s.find(id)
	if e == nil {
		return models.ExerciseEntry{}, false
	}
	return e.Clone(), true
}

// EntriesBySection groups entries by section tag, keeping insertion order
// within each group.
func (s *State) EntriesBySection() map[models.Section][]models.ExerciseEntry {
	s.refresh()
	out := make(map[models.Section][]models.ExerciseEntry, len(s.views.bySection))
	for sec, entries := range s.views.bySection {
		out[sec] = cloneAll(entries)
	}
	return out
}

// OrderedSections lists non-empty sections in warmup, main, core, cooldown order.
func (s *State) OrderedSections() []SectionGroup {
	s.refresh()
	var groups []SectionGroup
	for _, sec := range models.SectionOrder {
		entries := s.views.bySection[sec]
		if len(entries) == 0 {
			continue
		}
		groups = append(groups, SectionGroup{Name: sec, Entries: cloneAll(entries)})
	}
	return groups
}

// Flattened returns copies of the entries in guided order.
func (s *State) Flattened() []models.ExerciseEntry {
	return cloneAll(s.flat())
}

// DirtyEntries returns copies of entries with unsynced edits and records the
// revision of each, so a later MarkClean of their ids only clears entries
// left untouched since. Use UnsavedCount for display.
func (s *State) DirtyEntries() []models.ExerciseEntry {
	var out []models.ExerciseEntry
	for _, e := range s.entries {
		if e.Dirty {
			out = append(out, e.Clone())
			s.inflight[e.ID] = s.revs[e.ID]
		}
	}
	return out
}

// UnsavedCount is the number of dirty entries.
func (s *State) UnsavedCount() int {
	n := 0
	for _, e := range s.entries {
		if e.Dirty {
			n++
		}
	}
	return n
}

// HasUnsaved reports whether any entry is dirty.
func (s *State) HasUnsaved() bool {
	for _, e := range s.entries {
		if e.Dirty {
			return true
		}
	}
	return false
}

func cloneAll(entries []*models.ExerciseEntry) []models.ExerciseEntry {
	out := make([]models.ExerciseEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
