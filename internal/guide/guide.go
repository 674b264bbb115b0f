// Package guide is the line-oriented terminal controller for logging a
// session in guided mode.
package guide

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/claude/replog/internal/format"
	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/session"
)

const helpText = `guided mode:
  on | off            start or stop guided mode
  adv                 next set, then next exercise
  prev                previous set
  next | skip         first set of the next exercise
logging the set under the cursor:
  reps N              reps (empty clears)
  val X               load or seconds (empty clears)
  unit U              lb, kg, sec, bw, band
  dist X | dunit U    distance and its unit (yds, ft, m)
  done                mark the set completed and start the rest timer
  add                 add a set to the current exercise
  entry [SEC] NAME    add an exercise to the session (SEC defaults to main)
  rm N                remove set N of the current exercise
  rpe X               exercise RPE (empty clears)
  pain                toggle the pain flag
  note TEXT           exercise notes
viewing:
  sets | show         current exercise | whole session
  rest [SECONDS]      rest timer, or start a countdown
  sync                save now
  help | quit`

// EntryCreator stores an ad hoc exercise in the session and returns the new
// entry.
type EntryCreator interface {
	NewEntry(ctx context.Context, sessionID, exercise string, section models.Section) (models.ExerciseEntry, error)
}

// Controller reads commands and applies them to the session behind a Syncer.
type Controller struct {
	sy       *session.Syncer
	out      io.Writer
	log      *slog.Logger
	style    styles
	noPrompt bool
	creator  EntryCreator
}

type styles struct {
	section lipgloss.Style
	done    lipgloss.Style
	unsaved lipgloss.Style
	pain    lipgloss.Style
}

// New creates a Controller writing to out. Output is styled only when out
// is a color terminal.
func New(sy *session.Syncer, out io.Writer, log *slog.Logger) *Controller {
	r := lipgloss.NewRenderer(out)
	return &Controller{
		sy:  sy,
		out: out,
		log: log,
		style: styles{
			section: r.NewStyle().Bold(true),
			done:    r.NewStyle().Foreground(lipgloss.Color("2")),
			unsaved: r.NewStyle().Foreground(lipgloss.Color("3")),
			pain:    r.NewStyle().Foreground(lipgloss.Color("1")),
		},
	}
}

// DisablePrompt stops Run from printing prompts, for piped input.
func (c *Controller) DisablePrompt() { c.noPrompt = true }

// SetEntryCreator enables the entry command.
func (c *Controller) SetEntryCreator(ec EntryCreator) { c.creator = ec }

// Run reads commands from in until quit, EOF or ctx is done.
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	c.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if c.Exec(ctx, scanner.Text()) {
			return nil
		}
		c.prompt()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// Exec runs one command line. It reports whether the user asked to quit.
func (c *Controller) Exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(c.out, helpText)

	case "on":
		c.move((*session.Navigator).Enable)
	case "off":
		c.sy.Do(func(s *session.State) { s.Guide().Disable() })
		fmt.Fprintln(c.out, "guided mode off")
	case "adv":
		c.move((*session.Navigator).Advance)
	case "prev":
		c.move((*session.Navigator).Previous)
	case "next":
		c.move((*session.Navigator).Next)
	case "skip":
		c.move((*session.Navigator).Skip)

	case "reps", "val", "unit", "dist", "dunit":
		c.patch(cmd, arg)
	case "done":
		c.complete()
	case "add":
		c.addSet()
	case "entry":
		c.newEntry(ctx, arg)
	case "rm":
		c.removeSet(arg)
	case "rpe":
		c.setRPE(arg)
	case "pain":
		c.withEntry(func(s *session.State, e models.ExerciseEntry, _ int) {
			s.TogglePainFlag(e.ID)
			fmt.Fprintf(c.out, "pain flag %s for %s\n", onOff(!e.PainFlag), e.ExerciseName)
		})
	case "note", "notes":
		c.withEntry(func(s *session.State, e models.ExerciseEntry, _ int) {
			s.SetEntryNotes(e.ID, arg)
			fmt.Fprintf(c.out, "notes saved for %s\n", e.ExerciseName)
		})

	case "sets":
		c.withEntry(func(s *session.State, e models.ExerciseEntry, set int) {
			c.printSets(e, set)
		})
	case "show":
		c.sy.Do(c.printSession)
	case "rest":
		c.rest(arg)
	case "sync":
		c.syncNow(ctx)

	default:
		fmt.Fprintf(c.out, "unknown command %q (help lists commands)\n", cmd)
	}
	return false
}

// newEntry stores an exercise through the creator, then appends it to the
// State. The store call runs outside the Syncer lock.
func (c *Controller) newEntry(ctx context.Context, arg string) {
	if c.creator == nil {
		fmt.Fprintln(c.out, "adding exercises is not available here")
		return
	}
	section := models.SectionMain
	if first, rest, ok := strings.Cut(arg, " "); ok && isSection(first) {
		section = models.ParseSection(first)
		arg = strings.TrimSpace(rest)
	}
	if arg == "" {
		fmt.Fprintln(c.out, "usage: entry [SEC] NAME")
		return
	}

	var sessionID string
	c.sy.Do(func(s *session.State) { sessionID = s.ID() })
	e, err := c.creator.NewEntry(ctx, sessionID, arg, section)
	if err != nil {
		c.log.Warn("adding entry failed", "exercise", arg, "error", err)
		fmt.Fprintf(c.out, "could not add %s: %v\n", arg, err)
		return
	}
	c.sy.Do(func(s *session.State) { s.AddEntry(e) })
	fmt.Fprintf(c.out, "added %s to %s\n", e.ExerciseName, e.Section)
}

func isSection(word string) bool {
	w := models.Section(strings.ToLower(word))
	for _, sec := range models.SectionOrder {
		if w == sec {
			return true
		}
	}
	return false
}

func (c *Controller) prompt() {
	if c.noPrompt {
		return
	}
	var p string
	c.sy.Do(func(s *session.State) {
		e, ok := s.Guide().Current()
		if !ok {
			p = "> "
			return
		}
		pos := s.Guide().Position()
		p = fmt.Sprintf("[%d/%d %s set %d/%d] > ", pos.Exercise, pos.TotalExercises, e.ExerciseName, pos.Set, pos.TotalSets)
	})
	fmt.Fprint(c.out, p)
}

func (c *Controller) move(step func(*session.Navigator)) {
	c.sy.Do(func(s *session.State) {
		step(s.Guide())
		c.printPosition(s)
	})
}

func (c *Controller) printPosition(s *session.State) {
	e, ok := s.Guide().Current()
	if !ok {
		if s.Guide().Active() {
			fmt.Fprintln(c.out, "session has no exercises")
		} else {
			fmt.Fprintln(c.out, "guided mode is off")
		}
		return
	}
	pos := s.Guide().Position()
	fmt.Fprintf(c.out, "exercise %d/%d: %s", pos.Exercise, pos.TotalExercises, e.ExerciseName)
	if t := format.Target(e.Target); t != "" {
		fmt.Fprintf(c.out, " (%s)", t)
	}
	fmt.Fprintf(c.out, "\n  set %d/%d", pos.Set, pos.TotalSets)
	if set := pos.Set - 1; set < len(e.Sets) {
		fmt.Fprintf(c.out, ": %s", format.SetData(e.Sets[set]))
	}
	fmt.Fprintln(c.out)
	if set := pos.Set - 1; set < len(e.LastSessionSets) {
		fmt.Fprintf(c.out, "  last time: %s\n", format.SetData(e.LastSessionSets[set]))
	}
}

// withEntry runs fn on the entry and set index under the cursor, or tells
// the user there is none.
func (c *Controller) withEntry(fn func(s *session.State, e models.ExerciseEntry, set int)) {
	c.sy.Do(func(s *session.State) {
		e, ok := s.Guide().Current()
		if !ok {
			fmt.Fprintln(c.out, "no exercise selected (type on to start guided mode)")
			return
		}
		_, set := s.Guide().Indices()
		fn(s, e, set)
	})
}

// ensureSet adds sets until index exists and returns the updated entry.
func ensureSet(s *session.State, e models.ExerciseEntry, index int) models.ExerciseEntry {
	for len(e.Sets) <= index {
		s.AddSet(e.ID)
		e, _ = s.Entry(e.ID)
	}
	return e
}

var patchFields = map[string]string{
	"reps":  "reps",
	"val":   "value",
	"unit":  "unit",
	"dist":  "distance",
	"dunit": "distance_unit",
}

func (c *Controller) patch(cmd, arg string) {
	field := patchFields[strings.ToLower(cmd)]
	p, err := models.ParseSetPatch(field, arg)
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	c.withEntry(func(s *session.State, e models.ExerciseEntry, set int) {
		if p.Field == models.FieldValue && set < len(e.Sets) && !e.Sets[set].Unit.Numeric() {
			fmt.Fprintf(c.out, "%s sets take no value\n", e.Sets[set].Unit)
			return
		}
		if p.Field == models.FieldValue && set >= len(e.Sets) && e.Target.Unit.Valid() && !e.Target.Unit.Numeric() {
			fmt.Fprintf(c.out, "%s sets take no value\n", e.Target.Unit)
			return
		}
		e = ensureSet(s, e, set)
		s.UpdateSet(e.ID, set, p)
		e, _ = s.Entry(e.ID)
		fmt.Fprintf(c.out, "set %d: %s\n", set+1, format.SetData(e.Sets[set]))
	})
}

func (c *Controller) complete() {
	c.withEntry(func(s *session.State, e models.ExerciseEntry, set int) {
		e = ensureSet(s, e, set)
		s.UpdateSet(e.ID, set, models.PatchCompleted(true))
		e, _ = s.Entry(e.ID)
		fmt.Fprintf(c.out, "set %d done: %s\n", set+1, format.SetData(e.Sets[set]))
		s.Rest().Start()
		s.Guide().Advance()
		c.printPosition(s)
	})
}

func (c *Controller) addSet() {
	c.withEntry(func(s *session.State, e models.ExerciseEntry, _ int) {
		s.AddSet(e.ID)
		e, _ = s.Entry(e.ID)
		fmt.Fprintf(c.out, "%s: %d sets\n", e.ExerciseName, len(e.Sets))
	})
}

func (c *Controller) removeSet(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		fmt.Fprintf(c.out, "usage: rm N (set number, from 1)\n")
		return
	}
	c.withEntry(func(s *session.State, e models.ExerciseEntry, _ int) {
		if n > len(e.Sets) {
			fmt.Fprintf(c.out, "%s has %d sets\n", e.ExerciseName, len(e.Sets))
			return
		}
		s.RemoveSet(e.ID, n-1)
		fmt.Fprintf(c.out, "removed set %d of %s\n", n, e.ExerciseName)
	})
}

func (c *Controller) setRPE(arg string) {
	var rpe *float64
	if arg != "" && arg != "-" {
		v, err := strconv.ParseFloat(strings.ReplaceAll(arg, ",", "."), 64)
		if err != nil {
			fmt.Fprintf(c.out, "invalid rpe %q\n", arg)
			return
		}
		rpe = &v
	}
	c.withEntry(func(s *session.State, e models.ExerciseEntry, _ int) {
		s.SetRPE(e.ID, rpe)
		if rpe == nil {
			fmt.Fprintf(c.out, "rpe cleared for %s\n", e.ExerciseName)
			return
		}
		fmt.Fprintf(c.out, "rpe %s for %s\n", strconv.FormatFloat(*rpe, 'f', -1, 64), e.ExerciseName)
	})
}

func (c *Controller) printSets(e models.ExerciseEntry, cursor int) {
	fmt.Fprintf(c.out, "%s", e.ExerciseName)
	if t := format.Target(e.Target); t != "" {
		fmt.Fprintf(c.out, " (%s)", t)
	}
	fmt.Fprintln(c.out)
	if len(e.Sets) == 0 {
		fmt.Fprintf(c.out, "  %s\n", format.NoSets)
	}
	for i, set := range e.Sets {
		mark := " "
		if i == cursor {
			mark = ">"
		}
		done := ""
		if set.Completed {
			done = " " + c.style.done.Render("✓")
		}
		fmt.Fprintf(c.out, "%s %d. %s%s\n", mark, i+1, format.SetData(set), done)
	}
	if e.RPE != nil {
		fmt.Fprintf(c.out, "  rpe %s\n", strconv.FormatFloat(*e.RPE, 'f', -1, 64))
	}
	if e.PainFlag {
		fmt.Fprintln(c.out, "  "+c.style.pain.Render("pain flagged"))
	}
	if e.Notes != "" {
		fmt.Fprintf(c.out, "  notes: %s\n", e.Notes)
	}
}

func (c *Controller) printSession(s *session.State) {
	fmt.Fprintf(c.out, "%s · %d min\n", s.Name(), s.ElapsedMinutes())
	current, _ := s.Guide().Indices()
	guided := s.Guide().Active()

	n := 0
	for _, group := range s.OrderedSections() {
		fmt.Fprintln(c.out, c.style.section.Render(strings.ToUpper(string(group.Name))))
		for _, e := range group.Entries {
			mark := " "
			if guided && n == current {
				mark = ">"
			}
			dirty := ""
			if e.Dirty {
				dirty = " " + c.style.unsaved.Render("*")
			}
			fmt.Fprintf(c.out, "%s %d. %s", mark, n+1, e.ExerciseName)
			if t := format.Target(e.Target); t != "" {
				fmt.Fprintf(c.out, " (%s)", t)
			}
			fmt.Fprintf(c.out, ": %s%s\n", format.Sets(e.Sets), dirty)
			n++
		}
	}
	if s.HasUnsaved() {
		fmt.Fprintln(c.out, c.style.unsaved.Render(fmt.Sprintf("%d unsaved", s.UnsavedCount())))
	}
}

func (c *Controller) rest(arg string) {
	if arg != "" {
		secs, err := strconv.Atoi(arg)
		if err != nil || secs <= 0 {
			fmt.Fprintf(c.out, "usage: rest [SECONDS]\n")
			return
		}
		c.sy.Do(func(s *session.State) { s.Countdown().Start(secs) })
		fmt.Fprintf(c.out, "countdown %ds started\n", secs)
		return
	}
	c.sy.Do(func(s *session.State) {
		if s.Rest().Running() {
			fmt.Fprintf(c.out, "resting %s\n", clock(s.Rest().Elapsed()))
		} else {
			fmt.Fprintln(c.out, "rest timer not running")
		}
		switch cd := s.Countdown(); {
		case cd.Running():
			fmt.Fprintf(c.out, "countdown %s left\n", clock(cd.Remaining()))
		case cd.Finished():
			fmt.Fprintln(c.out, "countdown finished")
		}
	})
}

func (c *Controller) syncNow(ctx context.Context) {
	n, err := c.sy.SyncOnce(ctx)
	switch {
	case errors.Is(err, session.ErrSyncInFlight):
		fmt.Fprintln(c.out, "a save is already in progress")
	case err != nil:
		c.log.Warn("manual sync failed", "error", err)
		fmt.Fprintf(c.out, "save failed: %v (changes are kept and retried)\n", err)
	default:
		fmt.Fprintf(c.out, "saved %d\n", n)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func clock(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
