// Package trackrun implements the run entity: the ordered collection of
// cyclone tracks produced by one tracking execution, together with its
// time step, source provenance, tracker settings and category columns.
package trackrun

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/pmctools/cyclotrack/internal/track"
)

// BaseColumns is the fixed observation schema shared by every track in a
// run. Category columns are appended after these.
var BaseColumns = []string{"lon", "lat", "vort", "time", "area", "vortex_type"}

// Settings holds tracker configuration as raw key-value pairs. Values keep
// their source text so that archiving a run reproduces them exactly; typed
// access goes through the getter methods.
type Settings map[string]string

// Merge combines other into s, with other winning on key conflicts.
func (s Settings) Merge(other Settings) {
	for k, v := range other {
		s[k] = v
	}
}

// Clone returns an independent copy.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Float returns the value for key parsed as a float64.
func (s Settings) Float(key string) (float64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
		return 0, false
	}
	return f, true
}

// Int returns the value for key parsed as an int.
func (s Settings) Int(key string) (int, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

type category struct {
	label string
	flags []bool // aligned with Run.tracks positions
}

// Run owns an ordered set of tracks with unique, ascending ids. It is
// created empty or built by a loader, and extended by appending another
// run's tracks with deterministic id renumbering.
type Run struct {
	tracks    []*track.Track
	tstepH    float64
	sources   []string
	settings  Settings
	cats      []category
	inclusive bool
}

// New returns an empty run with the given nominal time step in hours.
// An empty run is a first-class state, not an error.
func New(tstepH float64) *Run {
	return &Run{tstepH: tstepH, settings: Settings{}}
}

// TstepH returns the nominal time step in hours, or 0 when unknown.
func (r *Run) TstepH() float64 { return r.tstepH }

// SetTstepH overrides the nominal time step.
func (r *Run) SetTstepH(h float64) { r.tstepH = h }

// InferTstep derives the time step from the first track with at least two
// observations and stores it, unless a time step is already set.
func (r *Run) InferTstep() {
	if r.tstepH != 0 {
		return
	}
	for _, tr := range r.tracks {
		if tr.Len() > 1 {
			r.tstepH = tr.Obs(1).Time.Sub(tr.Obs(0).Time).Hours()
			return
		}
	}
}

// Sources returns the source paths that contributed tracks, in load order.
func (r *Run) Sources() []string { return r.sources }

// AddSource records a data source path.
func (r *Run) AddSource(src string) { r.sources = append(r.sources, src) }

// Settings returns the merged tracker settings. Callers must treat the map
// as read-only.
func (r *Run) Settings() Settings { return r.settings }

// MergeSettings merges other into the run's settings, last writer wins.
func (r *Run) MergeSettings(other Settings) { r.settings.Merge(other) }

// Size returns the number of distinct tracks.
func (r *Run) Size() int { return len(r.tracks) }

// Columns returns the current column schema: the fixed observation columns
// followed by one column per category label.
func (r *Run) Columns() []string {
	cols := slices.Clone(BaseColumns)
	for _, c := range r.cats {
		cols = append(cols, c.label)
	}
	return cols
}

// AppendObservations validates the observation sequence as a track and
// appends it under one more than the highest existing id. It returns the
// assigned id. Appending to a categorised run extends every category
// column with false.
func (r *Run) AppendObservations(obs []track.Observation) (int, error) {
	id := 0
	for _, tr := range r.tracks {
		if tr.ID() >= id {
			id = tr.ID() + 1
		}
	}
	tr, err := track.New(id, obs)
	if err != nil {
		return 0, err
	}
	r.tracks = append(r.tracks, tr)
	for i := range r.cats {
		r.cats[i].flags = append(r.cats[i].flags, false)
	}
	return id, nil
}

// Track returns the track with the given id.
func (r *Run) Track(id int) (*track.Track, error) {
	for _, tr := range r.tracks {
		if tr.ID() == id {
			return tr, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrTrackNotFound, id)
}

// Tracks returns a restartable sequence over (id, track) pairs in
// collection order: ascending ids for loaded, appended or merged runs,
// selection order for views built by SelectIDs. Mutating the run
// invalidates an in-flight iteration; obtain a fresh sequence after any
// mutation.
func (r *Run) Tracks() iter.Seq2[int, *track.Track] {
	return func(yield func(int, *track.Track) bool) {
		for _, tr := range r.tracks {
			if !yield(tr.ID(), tr) {
				return
			}
		}
	}
}

// Extend appends the tracks of other, renumbering all ids to consecutive
// 0..n-1 in append order. Settings are merged last-writer-wins, sources
// are concatenated and category columns are unioned with absent flags
// filled false. Extending fails when the nominal time steps differ or when
// the two runs disagree on categorisation state: between non-empty runs
// either both carry category columns (under the same inclusivity) or
// neither does.
func (r *Run) Extend(other *Run) error {
	if r.Size() > 0 && other.Size() > 0 {
		if r.IsCategorised() != other.IsCategorised() {
			return fmt.Errorf("%w: categorised %v vs %v", ErrCategoryStateMismatch, r.IsCategorised(), other.IsCategorised())
		}
		if r.IsCategorised() && r.inclusive != other.inclusive {
			return fmt.Errorf("%w: inclusive %v vs %v", ErrCategoryStateMismatch, r.inclusive, other.inclusive)
		}
	}
	if r.tstepH == 0 {
		r.tstepH = other.tstepH
	} else if other.tstepH != 0 && r.tstepH != other.tstepH {
		return fmt.Errorf("%w: %g h vs %g h", ErrTimestepMismatch, r.tstepH, other.tstepH)
	}
	if other.Size() > 0 && r.Size() == 0 {
		r.inclusive = other.inclusive
	}

	r.sources = append(r.sources, other.sources...)
	r.settings.Merge(other.settings)

	nSelf, nOther := len(r.tracks), len(other.tracks)
	merged := make([]*track.Track, 0, nSelf+nOther)
	for i, tr := range r.tracks {
		merged = append(merged, tr.WithID(i))
	}
	for i, tr := range other.tracks {
		merged = append(merged, tr.WithID(nSelf+i))
	}

	// Union of category columns, self order first.
	var mergedCats []category
	for _, c := range r.cats {
		flags := make([]bool, nSelf+nOther)
		copy(flags, c.flags)
		if oc := other.findCat(c.label); oc != nil {
			copy(flags[nSelf:], oc.flags)
		}
		mergedCats = append(mergedCats, category{label: c.label, flags: flags})
	}
	for _, oc := range other.cats {
		if r.findCat(oc.label) != nil {
			continue
		}
		flags := make([]bool, nSelf+nOther)
		copy(flags[nSelf:], oc.flags)
		mergedCats = append(mergedCats, category{label: oc.label, flags: flags})
	}

	r.tracks = merged
	r.cats = mergedCats
	return nil
}

// SelectIDs returns a read-only view containing the tracks with the given
// ids, sharing the underlying observation columns.
func (r *Run) SelectIDs(ids ...int) (*Run, error) {
	out := r.emptyLike()
	for _, id := range ids {
		pos := -1
		for i, tr := range r.tracks {
			if tr.ID() == id {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("%w: %d", ErrTrackNotFound, id)
		}
		out.appendShared(r, pos)
	}
	return out, nil
}

// SelectRange returns a read-only view over the tracks at positions
// [from, to), sharing the underlying observation columns.
func (r *Run) SelectRange(from, to int) (*Run, error) {
	if from < 0 || to > len(r.tracks) || from > to {
		return nil, fmt.Errorf("%w: [%d, %d) of %d", ErrBadSelection, from, to, len(r.tracks))
	}
	out := r.emptyLike()
	for pos := from; pos < to; pos++ {
		out.appendShared(r, pos)
	}
	return out, nil
}

// Subset returns a read-only view with the tracks belonging to every one
// of the given category labels.
func (r *Run) Subset(labels ...string) (*Run, error) {
	if len(labels) == 0 {
		return r, nil
	}
	if !r.IsCategorised() {
		return nil, ErrNotCategorised
	}
	out := r.emptyLike()
	for pos := range r.tracks {
		in := true
		for _, label := range labels {
			c := r.findCat(label)
			if c == nil {
				return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownCategory, label, r.CatLabels())
			}
			in = in && c.flags[pos]
		}
		if in {
			out.appendShared(r, pos)
		}
	}
	return out, nil
}

// TimeSlice returns a run whose observations fall within the inclusive
// [start, end] interval. Tracks left with no observations are dropped;
// surviving tracks keep their ids and category flags. Sources are cleared
// since the result no longer corresponds to any loaded directory.
func (r *Run) TimeSlice(start, end time.Time) (*Run, error) {
	if start.IsZero() && end.IsZero() {
		return r, nil
	}
	out := New(r.tstepH)
	out.settings = r.settings.Clone()
	out.inclusive = r.inclusive
	for _, c := range r.cats {
		out.cats = append(out.cats, category{label: c.label})
	}
	for pos, tr := range r.tracks {
		var kept []track.Observation
		for _, o := range tr.Observations() {
			if !start.IsZero() && o.Time.Before(start) {
				continue
			}
			if !end.IsZero() && o.Time.After(end) {
				continue
			}
			kept = append(kept, o)
		}
		if len(kept) == 0 {
			continue
		}
		sliced, err := track.New(tr.ID(), kept)
		if err != nil {
			return nil, err
		}
		out.tracks = append(out.tracks, sliced)
		for i, c := range r.cats {
			out.cats[i].flags = append(out.cats[i].flags, c.flags[pos])
		}
	}
	return out, nil
}

// IsCategorised reports whether any category column exists.
func (r *Run) IsCategorised() bool { return len(r.cats) > 0 }

// Inclusive reports whether the category columns form an inclusive chain,
// each category a subset of the previous one.
func (r *Run) Inclusive() bool { return r.inclusive }

// SetInclusive records the inclusivity of the category schema.
func (r *Run) SetInclusive(v bool) { r.inclusive = v }

// CatLabels returns the category labels in column order.
func (r *Run) CatLabels() []string {
	out := make([]string, len(r.cats))
	for i, c := range r.cats {
		out[i] = c.label
	}
	return out
}

// SetCategory writes a category column, creating it if absent and
// overwriting it otherwise. The flags slice must have one entry per track
// in position order.
func (r *Run) SetCategory(label string, flags []bool) error {
	if len(flags) != len(r.tracks) {
		return fmt.Errorf("%w: %d flags for %d tracks", ErrFlagLength, len(flags), len(r.tracks))
	}
	own := slices.Clone(flags)
	if c := r.findCat(label); c != nil {
		c.flags = own
		return nil
	}
	r.cats = append(r.cats, category{label: label, flags: own})
	return nil
}

// Category returns the boolean membership column for a label.
func (r *Run) Category(label string) ([]bool, error) {
	if !r.IsCategorised() {
		return nil, ErrNotCategorised
	}
	c := r.findCat(label)
	if c == nil {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownCategory, label, r.CatLabels())
	}
	return slices.Clone(c.flags), nil
}

// CategorySize returns the number of tracks belonging to all given labels.
// With no labels it equals Size.
func (r *Run) CategorySize(labels ...string) (int, error) {
	sub, err := r.Subset(labels...)
	if err != nil {
		return 0, err
	}
	return sub.Size(), nil
}

// ClearCategories removes every category column.
func (r *Run) ClearCategories() {
	r.cats = nil
	r.inclusive = false
}

// RemoveCategory drops one category column. On an inclusive run it also
// drops the dependent child categories, whose labels contain the removed
// label as a chain component.
func (r *Run) RemoveCategory(label string) error {
	if r.findCat(label) == nil {
		return fmt.Errorf("%w: %q (have %v)", ErrUnknownCategory, label, r.CatLabels())
	}
	keep := r.cats[:0]
	for _, c := range r.cats {
		if c.label == label {
			continue
		}
		if r.inclusive && slices.Contains(splitChain(c.label), label) {
			continue
		}
		keep = append(keep, c)
	}
	r.cats = keep
	if len(r.cats) == 0 {
		r.inclusive = false
	}
	return nil
}

// RenameCategory renames a category column in place.
func (r *Run) RenameCategory(old, new string) error {
	c := r.findCat(old)
	if c == nil {
		return fmt.Errorf("%w: %q (have %v)", ErrUnknownCategory, old, r.CatLabels())
	}
	c.label = new
	return nil
}

func (r *Run) findCat(label string) *category {
	for i := range r.cats {
		if r.cats[i].label == label {
			return &r.cats[i]
		}
	}
	return nil
}

// emptyLike returns an empty run carrying over metadata and category
// labels (with no flags yet), ready for appendShared.
func (r *Run) emptyLike() *Run {
	out := New(r.tstepH)
	out.sources = slices.Clone(r.sources)
	out.settings = r.settings.Clone()
	out.inclusive = r.inclusive
	for _, c := range r.cats {
		out.cats = append(out.cats, category{label: c.label})
	}
	return out
}

// appendShared appends the track at position pos of src as a shared view,
// carrying its category flags.
func (r *Run) appendShared(src *Run, pos int) {
	r.tracks = append(r.tracks, src.tracks[pos])
	for i, c := range src.cats {
		r.cats[i].flags = append(r.cats[i].flags, c.flags[pos])
	}
}
