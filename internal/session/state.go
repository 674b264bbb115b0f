// Package session holds the in-memory model of one active workout: its
// entries, their unsynced edits, the guided-mode cursor and the rest timers.
//
// A State has exactly one logical writer. Callers that sync in the background
// share it through a Syncer, which serializes access.
package session

import (
	"log/slog"
	"time"

	"github.com/claude/replog/internal/models"
)

// Option configures a State.
type Option func(*State)

// WithClock replaces time.Now, for tests and replays.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(s *State) { s.log = log }
}

// State owns the ordered entries of one session.
type State struct {
	id      string
	name    string
	entries []*models.ExerciseEntry
	started time.Time

	// revs counts mutations per entry; inflight holds the revision each entry
	// had when it was last handed out in a batch.
	revs     map[string]uint64
	inflight map[string]uint64
	epoch    uint64

	version uint64
	views   viewCache

	now       func() time.Time
	log       *slog.Logger
	guide     *Navigator
	rest      *RestTimer
	countdown *Countdown
}

// New creates an empty State. Call Init to load a session.
func New(opts ...Option) *State {
	s := &State{
		now:      time.Now,
		log:      slog.New(slog.DiscardHandler),
		revs:     map[string]uint64{},
		inflight: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.guide = &Navigator{s: s}
	s.rest = &RestTimer{now: s.now}
	s.countdown = &Countdown{now: s.now}
	s.started = s.now()
	return s
}

// Init replaces all state with a new session. Prior entries, dirty flags,
// pending batches, timers and the guided position are discarded. The given
// entries are copied and start clean.
func (s *State) Init(id, displayName string, entries []models.ExerciseEntry) {
	s.id = id
	s.name = displayName
	s.entries = make([]*models.ExerciseEntry, 0, len(entries))
	s.revs = map[string]uint64{}
	s.inflight = map[string]uint64{}
	s.epoch++

	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		c := e.Clone()
		c.Section = models.ParseSection(string(c.Section))
		c.Dirty = false
		if seen[c.Order] {
			s.log.Warn("duplicate entry order", "session", id, "entry", c.ID, "order", c.Order)
		}
		seen[c.Order] = true
		s.entries = append(s.entries, &c)
	}

	s.started = s.now()
	s.guide.reset()
	s.rest.Reset()
	s.countdown.Reset()
	s.version++
}

// AddEntry appends an ad hoc entry. An order of zero, or one already in use,
// is replaced by the next free order. The entry starts clean.
func (s *State) AddEntry(entry models.ExerciseEntry) {
	if s.find(entry.ID) != nil {
		return
	}
	c := entry.Clone()
	c.Section = models.ParseSection(string(c.Section))
	c.Dirty = false

	maxOrder, taken := 0, false
	for _, e := range s.entries {
		if e.Order > maxOrder {
			maxOrder = e.Order
		}
		if e.Order == c.Order {
			taken = true
		}
	}
	if c.Order == 0 || taken {
		c.Order = maxOrder + 1
	}
	s.entries = append(s.entries, &c)
	s.version++
}

// AddSet appends a set to the entry. The new set copies the last set's
// reps, value, unit and distance with notes cleared and completed reset; an
// entry without sets gets an empty set in its target unit (lb if unset).
func (s *State) AddSet(entryID string) {
	e := s.find(entryID)
	if e == nil {
		return
	}

	var set models.SetRecord
	if n := len(e.Sets); n > 0 {
		set = e.Sets[n-1].Clone()
		set.Notes = ""
		set.Completed = false
	} else {
		unit := e.Target.Unit
		if !unit.Valid() {
			unit = models.UnitLb
		}
		set = models.SetRecord{Unit: unit}
	}

	sets := make([]models.SetRecord, len(e.Sets), len(e.Sets)+1)
	copy(sets, e.Sets)
	e.Sets = append(sets, set)
	s.touch(e)
}

// UpdateSet replaces one field of one set. Unknown entries, out-of-range
// indices and patches that do not apply are ignored.
func (s *State) UpdateSet(entryID string, index int, patch models.SetPatch) {
	e := s.find(entryID)
	if e == nil || index < 0 || index >= len(e.Sets) {
		return
	}
	updated, ok := patch.Apply(e.Sets[index])
	if !ok {
		return
	}
	sets := make([]models.SetRecord, len(e.Sets))
	copy(sets, e.Sets)
	sets[index] = updated
	e.Sets = sets
	s.touch(e)
}

// RemoveSet deletes the set at index. Invalid references are ignored.
func (s *State) RemoveSet(entryID string, index int) {
	e := s.find(entryID)
	if e == nil || index < 0 || index >= len(e.Sets) {
		return
	}
	sets := make([]models.SetRecord, 0, len(e.Sets)-1)
	sets = append(sets, e.Sets[:index]...)
	sets = append(sets, e.Sets[index+1:]...)
	e.Sets = sets
	s.touch(e)
}

// SetRPE records the entry's rate of perceived exertion; nil clears it.
func (s *State) SetRPE(entryID string, rpe *float64) {
	e := s.find(entryID)
	if e == nil {
		return
	}
	if rpe != nil {
		v := *rpe
		rpe = &v
	}
	e.RPE = rpe
	s.touch(e)
}

// TogglePainFlag flips the entry's pain flag.
func (s *State) TogglePainFlag(entryID string) {
	e := s.find(entryID)
	if e == nil {
		return
	}
	e.PainFlag = !e.PainFlag
	s.touch(e)
}

// SetEntryNotes replaces the entry's free-text notes.
func (s *State) SetEntryNotes(entryID, notes string) {
	e := s.find(entryID)
	if e == nil {
		return
	}
	e.Notes = notes
	s.touch(e)
}

// Batch is a snapshot of dirty entries taken for one persistence call.
type Batch struct {
	SessionID string
	Updates   []models.EntryUpdate

	epoch uint64
	revs  map[string]uint64
}

// IDs returns the entry ids in the batch, in batch order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b.Updates))
	for i, u := range b.Updates {
		ids[i] = u.ID
	}
	return ids
}

// Empty reports whether the batch carries no updates.
func (b Batch) Empty() bool { return len(b.Updates) == 0 }

// PendingBatch snapshots every dirty entry, in display order, and records the
// revision each one had at dispatch.
func (s *State) PendingBatch() Batch {
	b := Batch{SessionID: s.id, epoch: s.epoch, revs: map[string]uint64{}}
	for _, e := range s.flat() {
		if !e.Dirty {
			continue
		}
		b.Updates = append(b.Updates, e.Update())
		b.revs[e.ID] = s.revs[e.ID]
		s.inflight[e.ID] = s.revs[e.ID]
	}
	return b
}

// MarkClean clears the dirty flag of the listed entries whose revision still
// matches the one recorded by the last snapshot (PendingBatch or
// DirtyEntries) that included them. An edit made after the snapshot stays
// dirty for the next cycle, however often MarkClean is repeated, and ids no
// snapshot handed out are left alone. Returns the number of entries cleared.
func (s *State) MarkClean(ids []string) int {
	cleared := 0
	for _, id := range ids {
		e := s.find(id)
		if e == nil {
			continue
		}
		rev, sent := s.inflight[id]
		if !sent || s.revs[id] != rev {
			continue
		}
		delete(s.inflight, id)
		if e.Dirty {
			e.Dirty = false
			cleared++
		}
	}
	if cleared > 0 {
		s.version++
	}
	return cleared
}

// Acknowledge clears the dirty flag of entries in b that the store saved,
// checking revisions against b itself. Batches from before the last Init are
// ignored. Returns the number of entries cleared.
func (s *State) Acknowledge(b Batch, saved []string) int {
	if b.epoch != s.epoch {
		return 0
	}
	cleared := 0
	for _, id := range saved {
		rev, ok := b.revs[id]
		if !ok {
			continue
		}
		if s.inflight[id] == rev {
			delete(s.inflight, id)
		}
		e := s.find(id)
		if e == nil || !e.Dirty || s.revs[id] != rev {
			continue
		}
		e.Dirty = false
		cleared++
	}
	if cleared > 0 {
		s.version++
	}
	return cleared
}

// ID is the loaded session's id.
func (s *State) ID() string { return s.id }

// Name is the session's display name.
func (s *State) Name() string { return s.name }

// StartedAt is when Init last ran.
func (s *State) StartedAt() time.Time { return s.started }

// Version increases with every mutation.
func (s *State) Version() uint64 { return s.version }

// Guide returns the guided-mode navigator bound to this session.
func (s *State) Guide() *Navigator { return s.guide }

// Rest returns the between-sets rest timer.
func (s *State) Rest() *RestTimer { return s.rest }

// Countdown returns the timed-hold countdown.
func (s *State) Countdown() *Countdown { return s.countdown }

// ElapsedMinutes is whole minutes since Init, computed on each call.
func (s *State) ElapsedMinutes() int {
	d := s.now().Sub(s.started)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

func (s *State) find(id string) *models.ExerciseEntry {
	for _, e := range s.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (s *State) touch(e *models.ExerciseEntry) {
	e.Dirty = true
	s.revs[e.ID]++
	s.version++
}
