// Package classify assigns named categories to the tracks of a run by
// evaluating predicate rules. A track belongs to a category iff every
// predicate of that category's rule holds for it; categories are
// independent of each other unless an inclusive chain is requested.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmctools/cyclotrack/internal/track"
	"github.com/pmctools/cyclotrack/internal/trackrun"
)

// Predicate is a pure, side-effect-free boolean function of a single
// track. A returned error aborts classification for the whole run.
type Predicate func(*track.Track) (bool, error)

// Rule pairs a category label with the ordered predicates that define
// membership (logical AND across the list).
type Rule struct {
	Label      string
	Predicates []Predicate
}

// ErrReservedLabel rejects the "all" label, which selects every track.
var ErrReservedLabel = errors.New(`classify: "all" is not a permitted category label`)

// Error identifies the category and track on which a predicate failed.
type Error struct {
	Category string
	TrackID  int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classify: category %q, track %d: %v", e.Category, e.TrackID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options tunes a classification pass. The zero value classifies with
// independent categories, replacing any existing ones, without progress
// reporting.
type Options struct {
	// Inclusive makes each category a subset of the previous one; chain
	// labels are joined with trackrun.ChainSep.
	Inclusive bool

	// Keep preserves existing category columns instead of clearing them.
	Keep bool

	// Progress, when non-nil, is called after each track with the number
	// of tracks evaluated so far and the total. It is an observability
	// hook only and must not affect results.
	Progress func(done, total int)
}

// Apply evaluates the rules against every track of the run and writes one
// boolean category column per rule. Re-applying the same rules to
// unchanged data is idempotent. On a predicate error no column is
// written and a *Error identifying the (category, track) pair is
// returned.
func Apply(run *trackrun.Run, rules []Rule, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	labels, err := chainLabels(rules, opts.Inclusive)
	if err != nil {
		return err
	}

	total := run.Size()
	flags := make([][]bool, len(rules))
	for i := range flags {
		flags[i] = make([]bool, total)
	}

	done := 0
	pos := 0
	for id, tr := range run.Tracks() {
		prev := true
		for ri, rule := range rules {
			flag := true
			if opts.Inclusive {
				flag = prev
			}
			for _, pred := range rule.Predicates {
				ok, err := pred(tr)
				if err != nil {
					return &Error{Category: labels[ri], TrackID: id, Err: err}
				}
				flag = flag && ok
			}
			flags[ri][pos] = flag
			if opts.Inclusive {
				prev = flag
			}
		}
		pos++
		done++
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}

	if !opts.Keep {
		run.ClearCategories()
	}
	run.SetInclusive(opts.Inclusive)
	for ri, label := range labels {
		if err := run.SetCategory(label, flags[ri]); err != nil {
			return err
		}
	}
	return nil
}

// chainLabels validates the rule labels and, for inclusive runs, prefixes
// each label with its ancestry, newest first: c joined after [b, a]
// becomes "c|b|a".
func chainLabels(rules []Rule, inclusive bool) ([]string, error) {
	labels := make([]string, len(rules))
	for i, rule := range rules {
		if rule.Label == "all" {
			return nil, ErrReservedLabel
		}
		if !inclusive || i == 0 {
			labels[i] = rule.Label
			continue
		}
		parts := []string{rule.Label}
		for j := i - 1; j >= 0; j-- {
			parts = append(parts, rules[j].Label)
		}
		labels[i] = strings.Join(parts, trackrun.ChainSep)
	}
	return labels, nil
}
