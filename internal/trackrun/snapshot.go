package trackrun

import (
	"fmt"
	"slices"

	"github.com/pmctools/cyclotrack/internal/track"
)

// Snapshot is the full serializable state of a run: every track with its
// id and observations, the category columns, and the run metadata. Saving
// a snapshot and restoring it must reproduce an equivalent run.
type Snapshot struct {
	TstepH     float64           `json:"tstep_h" msgpack:"tstep_h"`
	Sources    []string          `json:"sources,omitempty" msgpack:"sources"`
	Settings   map[string]string `json:"settings,omitempty" msgpack:"settings"`
	Inclusive  bool              `json:"inclusive,omitempty" msgpack:"inclusive"`
	Categories []CategoryColumn  `json:"categories,omitempty" msgpack:"categories"`
	Tracks     []TrackRecord     `json:"tracks" msgpack:"tracks"`
}

// CategoryColumn is one category label with its per-track membership flags
// in track position order.
type CategoryColumn struct {
	Label string `json:"label" msgpack:"label"`
	Flags []bool `json:"flags" msgpack:"flags"`
}

// TrackRecord is one track's id and raw observations.
type TrackRecord struct {
	ID  int                 `json:"id" msgpack:"id"`
	Obs []track.Observation `json:"obs" msgpack:"obs"`
}

// Snapshot captures the run's complete state.
func (r *Run) Snapshot() *Snapshot {
	s := &Snapshot{
		TstepH:    r.tstepH,
		Sources:   slices.Clone(r.sources),
		Settings:  map[string]string(r.settings.Clone()),
		Inclusive: r.inclusive,
	}
	for _, c := range r.cats {
		s.Categories = append(s.Categories, CategoryColumn{Label: c.label, Flags: slices.Clone(c.flags)})
	}
	for _, tr := range r.tracks {
		s.Tracks = append(s.Tracks, TrackRecord{ID: tr.ID(), Obs: tr.Observations()})
	}
	return s
}

// FromSnapshot reconstructs a run, validating every track and the category
// column lengths. Track ids must be unique and strictly ascending.
func FromSnapshot(s *Snapshot) (*Run, error) {
	r := New(s.TstepH)
	r.sources = slices.Clone(s.Sources)
	if s.Settings != nil {
		r.settings = Settings(s.Settings).Clone()
	}
	r.inclusive = s.Inclusive

	prev := -1
	for _, rec := range s.Tracks {
		if rec.ID <= prev {
			return nil, fmt.Errorf("%w: id %d after %d", ErrDuplicateID, rec.ID, prev)
		}
		tr, err := track.New(rec.ID, rec.Obs)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", rec.ID, err)
		}
		r.tracks = append(r.tracks, tr)
		prev = rec.ID
	}

	for _, col := range s.Categories {
		if err := r.SetCategory(col.Label, col.Flags); err != nil {
			return nil, fmt.Errorf("category %q: %w", col.Label, err)
		}
	}
	return r, nil
}
